package http

import (
	"net/http"
	"time"

	"github.com/go-api-otp/internal/application/passcode"
	"github.com/go-api-otp/internal/application/register"
	"github.com/go-api-otp/internal/config"
	jwtinfra "github.com/go-api-otp/internal/infrastructure/jwt"
	"github.com/go-api-otp/internal/pkg/otp"
	"github.com/go-api-otp/internal/transport/http/handler"
	appmiddleware "github.com/go-api-otp/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo AccountRepository
	Passcodes   *passcode.Store
	Generator   *otp.Generator
	Delivery    DeliveryQueue
	JWTProvider *jwtinfra.Provider
	RateLimiter *appmiddleware.RateLimiter
	Now         func() time.Time
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	sensitiveRL := deps.RateLimiter
	if sensitiveRL == nil {
		// 5 requests/second, burst of 10
		sensitiveRL = appmiddleware.NewRateLimiter(rate.Limit(5), 10, nil)
	}

	svcDeps := register.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		Passcodes:   deps.Passcodes,
		Generator:   deps.Generator,
		Timing: otp.Timing{
			Lifetime: time.Duration(cfg.OTP.ExpireMinutes) * time.Minute,
			Cooldown: time.Duration(cfg.OTP.ResendMinutes) * time.Minute,
		},
		Delivery: deps.Delivery,
		Subject:  cfg.OTP.EmailSubject,
		Now:      deps.Now,
	}
	if deps.JWTProvider != nil {
		svcDeps.JWTProvider = deps.JWTProvider
	}
	registerSvc := register.NewService(svcDeps)

	healthH := handler.NewHealthHandler()
	registerH := handler.NewRegisterHandler(registerSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/register/verify-email", registerH.VerifyEmail)
			r.Post("/register/verify-email/resend", registerH.Resend)
			r.Post("/register/verify-email/confirm", registerH.Confirm)
		})
	})

	return r
}
