package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/album-bracket/handlers"
	"github.com/Dosada05/album-bracket/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// CreateRateLimit caps tournament creations per user and CreateRateWindow.
	CreateRateLimit  int
	CreateRateWindow time.Duration
	RequestTimeout   time.Duration
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	roundHandler *handlers.RoundHandler,
	albumHandler *handlers.AlbumHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	authenticate := middleware.Authenticate(opts.JWTSecret)

	// Websocket живёт дольше любого таймаута запроса
	router.With(authenticate).Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/albums", func(r chi.Router) {
			r.Get("/", albumHandler.ListHandler)
			r.Put("/", albumHandler.ImportHandler)
			r.Delete("/{albumID}", albumHandler.RemoveHandler)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", tournamentHandler.ListHandler)
			r.With(createRateLimit(opts)).Post("/", tournamentHandler.CreateHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByIDHandler)
				r.Patch("/", tournamentHandler.UpdateHandler)
				r.Delete("/", tournamentHandler.DeleteHandler)
				r.Get("/bracket", tournamentHandler.GetBracketHandler)
				r.Post("/bracket/export", tournamentHandler.ExportBracketHandler)
			})
		})

		r.Route("/rounds/{roundID}", func(r chi.Router) {
			r.Get("/", roundHandler.GetHandler)
			r.Put("/winner", roundHandler.SetWinnerHandler)
		})
	})
}

// createRateLimit limits tournament creation per authenticated user, which
// bounds calls to the generation API.
func createRateLimit(opts Options) func(http.Handler) http.Handler {
	if opts.CreateRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := opts.CreateRateWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(opts.CreateRateLimit, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			userID, err := middleware.GetUserIDFromContext(r.Context())
			if err != nil {
				return httprate.KeyByIP(r)
			}
			return userID.String(), nil
		}),
	)
}
