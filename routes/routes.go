package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/football-league/handlers"
	"github.com/Dosada05/football-league/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options задает параметры маршрутизатора, не зависящие от обработчиков.
type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	competitionHandler *handlers.CompetitionHandler,
	fixtureHandler *handlers.FixtureHandler,
	standingsHandler *handlers.StandingsHandler,
	advancementHandler *handlers.AdvancementHandler,
	matchHandler *handlers.MatchHandler,
	teamHandler *handlers.TeamHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Админские маршруты
	adminOnly := func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret))
		r.Use(middleware.Authorize(opts.JWTSecret != "", middleware.RoleAdmin))
	}

	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket не проходит через rate limiter и таймаут
	router.Get("/ws/competitions/{competitionID}", webSocketHandler.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", teamHandler.ListTeams)
			r.Get("/{teamID}", teamHandler.GetTeamByID)

			r.Group(func(r chi.Router) {
				adminOnly(r)
				r.Post("/", teamHandler.CreateTeam)
			})
		})

		r.Route("/competitions", func(r chi.Router) {
			r.Get("/", competitionHandler.List)

			r.Group(func(r chi.Router) {
				adminOnly(r)
				r.Post("/", competitionHandler.Create)
			})

			r.Route("/{competitionID}", func(r chi.Router) {
				// Публичные маршруты
				r.Get("/", competitionHandler.Get)
				r.Get("/teams", competitionHandler.ListTeams)
				r.Get("/fixtures", fixtureHandler.Schedule)
				r.Get("/knockout/rounds", fixtureHandler.Rounds)
				r.Get("/standings", standingsHandler.Competition)
				r.Get("/standings/groups", standingsHandler.Groups)
				r.Get("/rules", advancementHandler.ListRules)
				r.Get("/to/{toID}/eligible-teams", advancementHandler.EligibleTeams)
				r.Get("/advancement-summary", advancementHandler.Summary)

				r.Group(func(r chi.Router) {
					adminOnly(r)

					r.Patch("/", competitionHandler.Update)
					r.Post("/teams", competitionHandler.AddTeams)
					r.Post("/teams/manual", competitionHandler.AddTeamsManual)

					r.Post("/generate-fixtures", fixtureHandler.Generate)
					r.Post("/reschedule", fixtureHandler.Reschedule)
					r.Post("/knockout/seed", fixtureHandler.SeedKnockout)
					r.Post("/knockout/rounds/{roundOrder}/resolve", fixtureHandler.ResolveRound)

					r.Post("/archive", standingsHandler.Archive)

					r.Post("/rules", advancementHandler.CreateRule)
					r.Post("/apply-rules", advancementHandler.ApplyRules)
					r.Post("/advance-to/{toID}", advancementHandler.Advance)
					r.Post("/advance-manual/{toID}", advancementHandler.AdvanceManual)
				})
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", matchHandler.List)
			r.Get("/{matchID}", matchHandler.Get)

			r.Group(func(r chi.Router) {
				adminOnly(r)
				r.Post("/", matchHandler.Schedule)
				r.Post("/{matchID}/start", matchHandler.Start)
				r.Post("/{matchID}/score", matchHandler.UpdateScore)
				r.Post("/{matchID}/finish", matchHandler.Finish)
				r.Post("/{matchID}/cancel", matchHandler.Cancel)
			})
		})
	})
}
