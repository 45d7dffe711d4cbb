package handlers

import (
	"net/http"

	"github.com/Dosada05/album-bracket/middleware"
	"github.com/Dosada05/album-bracket/services"
)

type RoundHandler struct {
	bracketService services.BracketService
}

func NewRoundHandler(bs services.BracketService) *RoundHandler {
	return &RoundHandler{bracketService: bs}
}

// null снимает результат раунда
type setWinnerRequest struct {
	WinnerID *int64 `json:"winner_id" validate:"omitempty,gt=0"`
}

// GetHandler обрабатывает GET /rounds/{roundID}
func (h *RoundHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	roundID, err := getInt64FromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, err := h.bracketService.GetRound(r.Context(), currentUserID, roundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetWinnerHandler обрабатывает PUT /rounds/{roundID}/winner
func (h *RoundHandler) SetWinnerHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	roundID, err := getInt64FromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input setWinnerRequest
	if !readValidJSON(w, r, &input) {
		return
	}

	round, err := h.bracketService.SetRoundWinner(r.Context(), currentUserID, roundID, input.WinnerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
