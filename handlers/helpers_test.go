package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/album-bracket/brackets"
	"github.com/Dosada05/album-bracket/selection"
	"github.com/Dosada05/album-bracket/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantField  string
		wantValue  float64
	}{
		{"tournament not found", services.ErrTournamentNotFound, http.StatusNotFound, "", 0},
		{"round not found", fmt.Errorf("load: %w", services.ErrRoundNotFound), http.StatusNotFound, "", 0},
		{"forbidden", services.ErrForbiddenOperation, http.StatusForbidden, "", 0},
		{"limit", &selection.LimitExceededError{Requested: 200, Limit: 128}, http.StatusUnprocessableEntity, "max_album_count", 128},
		{"insufficient", &selection.InsufficientAlbumsError{Requested: 9, Available: 4}, http.StatusUnprocessableEntity, "available", 4},
		{"validation", fmt.Errorf("%w: bad name", services.ErrValidationFailed), http.StatusUnprocessableEntity, "", 0},
		{"invalid winner", brackets.ErrInvalidWinner, http.StatusBadRequest, "", 0},
		{"leaf", brackets.ErrLeafImmutable, http.StatusBadRequest, "", 0},
		{"undecided", brackets.ErrUndecidedWinner, http.StatusBadRequest, "", 0},
		{"not ready", services.ErrBracketNotReady, http.StatusConflict, "", 0},
		{"export disabled", services.ErrExportDisabled, http.StatusNotImplemented, "", 0},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			if tt.wantField != "" {
				assert.Equal(t, tt.wantValue, body[tt.wantField])
			}
		})
	}
}

func TestReadValidJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"name":"ok","album_count":4}`, true, 0},
		{"empty body", ``, false, http.StatusBadRequest},
		{"unknown field", `{"name":"ok","rounds":3}`, false, http.StatusBadRequest},
		{"two values", `{"name":"ok"}{"name":"ok"}`, false, http.StatusBadRequest},
		{"wrong type", `{"name":"ok","album_count":"four"}`, false, http.StatusBadRequest},
		{"missing name", `{"album_count":4}`, false, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/tournaments", strings.NewReader(tt.body))

			var dst createTournamentRequest
			ok := readValidJSON(rec, req, &dst)

			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestSetWinnerRequest_AcceptsNull(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/rounds/1/winner", strings.NewReader(`{"winner_id":null}`))

	var dst setWinnerRequest
	require.True(t, readValidJSON(rec, req, &dst))
	assert.Nil(t, dst.WinnerID)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/rounds/1/winner", strings.NewReader(`{"winner_id":-3}`))
	assert.False(t, readValidJSON(rec, req, &dst))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
