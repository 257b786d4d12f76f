package http

import (
	"log/slog"

	"github.com/Emmanuel246/natours/internal/auth"
	"github.com/Emmanuel246/natours/internal/cache"
	"github.com/Emmanuel246/natours/internal/config"
	"github.com/Emmanuel246/natours/internal/domain/user"
	"github.com/Emmanuel246/natours/internal/http/handlers"
	"github.com/Emmanuel246/natours/internal/http/middlewares"
	"github.com/Emmanuel246/natours/internal/observability"
	"github.com/Emmanuel246/natours/internal/payments"
	"github.com/Emmanuel246/natours/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// NewRouter wires every route. All dependencies come in from main so tests
// can assemble a router around fakes.
func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, store cache.Cache, prom *observability.Prom, provider payments.Provider) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("natours"))
	r.Use(prom.HTTPMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// operational endpoints stay outside the API group

	health := handlers.NewHealthHandler(pool)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// wire up repositories

	usersRepo := postgres.NewUsersRepo(pool, prom)
	toursRepo := postgres.NewToursRepo(pool, prom)
	reviewsRepo := postgres.NewReviewsRepo(pool, prom)
	bookingsRepo := postgres.NewBookingsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	authMW := middlewares.NewAuthMiddleware(jwtManager, usersRepo)
	authLimiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	limited := authLimiter.Middleware(middlewares.KeyByIP)

	// wire up handlers

	authHandler := handlers.NewAuthHandler(usersRepo, jobsRepo, jwtManager, cfg, log)
	usersHandler := handlers.NewUsersHandler(usersRepo, log)
	toursHandler := handlers.NewToursHandler(toursRepo, store, log)
	reviewsHandler := handlers.NewReviewsHandler(reviewsRepo, log)
	bookingsHandler := handlers.NewBookingsHandler(bookingsRepo, toursRepo, provider, jobsRepo, cfg, log)

	api := r.Group("/api/v1")

	users := api.Group("/users")
	{
		users.POST("/signup", limited, authHandler.SignUp)
		users.POST("/login", limited, authHandler.Login)
		users.GET("/logout", authHandler.Logout)
		users.POST("/forgotPassword", limited, authHandler.ForgotPassword)
		users.PATCH("/resetPassword/:token", limited, authHandler.ResetPassword)

		users.GET("/me", authMW.Protect(), usersHandler.Me)
		users.PATCH("/updateMyPassword", authMW.Protect(), authHandler.UpdatePassword)
		users.PATCH("/updateMe", authMW.Protect(), usersHandler.UpdateMe)
		users.DELETE("/deleteMe", authMW.Protect(), usersHandler.DeleteMe)

		// admin-only user management
		admin := users.Group("", authMW.Protect(), middlewares.RestrictTo(user.RoleAdmin))
		{
			admin.GET("", usersHandler.List)
			admin.POST("", usersHandler.Create)
			admin.GET("/:id", usersHandler.Get)
			admin.PATCH("/:id", usersHandler.Update)
			admin.DELETE("/:id", usersHandler.Delete)
		}
	}

	tours := api.Group("/tours")
	{
		tours.GET("", toursHandler.List)
		tours.GET("/top-5-cheap", handlers.AliasTopTours(), toursHandler.ListTop)
		tours.GET("/stats", toursHandler.Stats)
		tours.GET("/monthly-plan/:year", authMW.Protect(),
			middlewares.RestrictTo(user.RoleAdmin, user.RoleLeadGuide, user.RoleGuide),
			toursHandler.MonthlyPlan)
		tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", toursHandler.Within)
		tours.GET("/distances/:latlng/unit/:unit", toursHandler.Distances)
		tours.GET("/:id", toursHandler.Get)

		tours.POST("", authMW.Protect(),
			middlewares.RestrictTo(user.RoleAdmin, user.RoleLeadGuide),
			toursHandler.Create)
		tours.PATCH("/:id", authMW.Protect(),
			middlewares.RestrictTo(user.RoleAdmin, user.RoleLeadGuide),
			toursHandler.Update)
		tours.DELETE("/:id", authMW.Protect(),
			middlewares.RestrictTo(user.RoleAdmin, user.RoleLeadGuide),
			toursHandler.Delete)

		// nested reviews
		tours.GET("/:id/reviews", reviewsHandler.ListByTour)
		tours.POST("/:id/reviews", authMW.Protect(),
			middlewares.RestrictTo(user.RoleUser),
			reviewsHandler.Create)
	}

	reviews := api.Group("/reviews", authMW.Protect())
	{
		reviews.GET("/:id", reviewsHandler.Get)
		reviews.PATCH("/:id", middlewares.RestrictTo(user.RoleUser, user.RoleAdmin), reviewsHandler.Update)
		reviews.DELETE("/:id", middlewares.RestrictTo(user.RoleUser, user.RoleAdmin), reviewsHandler.Delete)
	}

	bookings := api.Group("/bookings")
	{
		// payment processor redirect target, reachable without a session
		bookings.GET("/claim", bookingsHandler.Claim)

		bookings.GET("/checkout-session/:id", authMW.Protect(), bookingsHandler.CheckoutSession)
		bookings.GET("/my-bookings", authMW.Protect(), bookingsHandler.MyBookings)

		admin := bookings.Group("", authMW.Protect(), middlewares.RestrictTo(user.RoleAdmin, user.RoleLeadGuide))
		{
			admin.GET("", bookingsHandler.List)
			admin.GET("/:id", bookingsHandler.Get)
		}
	}

	return r
}
