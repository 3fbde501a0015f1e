package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/matchday/handlers"
	"github.com/Dosada05/matchday/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Players   *handlers.PlayerHandler
	Matches   *handlers.MatchHandler
	Mvp       *handlers.MvpHandler
	Health    *handlers.HealthHandler
	WebSocket *handlers.WebSocketHandler
}

// SetupRoutes mounts the API on router. gate deduplicates player and match creation.
func SetupRoutes(router chi.Router, h Handlers, gate *middleware.IdempotencyGate, corsOrigin string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.IdempotencyKeyHeader},
		ExposedHeaders:   []string{middleware.ReplayedHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health.Health)

	router.Route("/ws", func(r chi.Router) {
		r.Get("/matches", h.WebSocket.ServeMatchesWs)
		r.Get("/matches/{matchID}", h.WebSocket.ServeMatchWs)
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(15 * time.Second))

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.Players.ListPlayers)
			r.With(gate.Handler).Post("/", h.Players.CreatePlayer)
			r.Get("/mvp-stats", h.Mvp.Leaderboard)

			r.Route("/{playerID}", func(r chi.Router) {
				r.Get("/", h.Players.GetPlayer)
				r.Put("/", h.Players.UpdatePlayer)
				r.Delete("/", h.Players.DeletePlayer)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.Matches.ListMatches)
			r.With(gate.Handler).Post("/", h.Matches.CreateMatch)
			r.Get("/played", h.Matches.ListPlayedMatches)

			r.Route("/{matchID}", func(r chi.Router) {
				r.Get("/", h.Matches.GetMatch)
				r.Put("/", h.Matches.UpdateMatch)
				r.Delete("/", h.Matches.DeleteMatch)
				r.Post("/compo", h.Matches.AssignComposition)
				r.Post("/score", h.Matches.EnterScore)
				r.Delete("/score", h.Matches.ResetScore)

				r.Get("/mvp", h.Mvp.GetTally)
				r.Get("/mvp/status", h.Mvp.GetVoteStatus)
				r.Post("/mvp/vote", h.Mvp.CastVote)
				r.Delete("/mvp/vote", h.Mvp.RetractVote)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"message":"the requested resource could not be found"}}` + "\n"))
	})
}
