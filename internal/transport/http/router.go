package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/bozor-api/internal/application/account"
	"github.com/bozor-api/internal/application/otp"
	"github.com/bozor-api/internal/application/register"
	"github.com/bozor-api/internal/config"
	"github.com/bozor-api/internal/domain"
	jwtinfra "github.com/bozor-api/internal/infrastructure/jwt"
	"github.com/bozor-api/internal/transport/http/handler"
	appmiddleware "github.com/bozor-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AdminRepo   AccountRepository
	ClientRepo  AccountRepository
	MarketRepo  AccountRepository
	Ephemeral   EphemeralStore
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	adminOnly := appmiddleware.RequireRole(domain.RoleSuperAdmin, domain.RoleAdmin)
	superadminOnly := appmiddleware.RequireRole(domain.RoleSuperAdmin)

	// 5 requests/second, burst of 10, on credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	newAccountHandler := func(kind domain.AccountKind, repo AccountRepository) *handler.AccountHandler {
		accSvc := account.NewService(account.ServiceDeps{
			Kind:     kind,
			Accounts: repo,
			Tokens:   deps.JWTProvider,
		})
		return handler.NewAccountHandler(accSvc, deps.JWTProvider, cfg.RefreshTokenDays)
	}
	// Admins are provisioned by the superadmin, so only the self-registering
	// kinds get the OTP flow.
	newRegisterHandler := func(kind domain.AccountKind, repo AccountRepository) *handler.RegisterHandler {
		otpSvc := otp.NewService(otp.ServiceDeps{
			Kind:        kind,
			Accounts:    repo,
			Store:       deps.Ephemeral,
			OtpTTL:      cfg.OtpTTL,
			VerifyTTL:   cfg.VerifyTTL,
			MaxAttempts: cfg.MaxOtpAttempts,
		})
		regSvc := register.NewService(register.ServiceDeps{
			Kind:     kind,
			Accounts: repo,
			Store:    deps.Ephemeral,
		})
		return handler.NewRegisterHandler(kind, otpSvc, regSvc)
	}

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.JWTProvider, cfg.RefreshTokenDays)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/auth/refresh", authH.Refresh)
		r.Post("/auth/signout", authH.SignOut)

		for _, entry := range []struct {
			prefix string
			kind   domain.AccountKind
			repo   AccountRepository
		}{
			{"/clients", domain.KindClient, deps.ClientRepo},
			{"/markets", domain.KindMarket, deps.MarketRepo},
		} {
			accH := newAccountHandler(entry.kind, entry.repo)
			regH := newRegisterHandler(entry.kind, entry.repo)
			r.Route(entry.prefix, func(r chi.Router) {
				r.With(sensitiveRL.Limit).Post("/register/request-otp", regH.RequestOtp)
				r.With(sensitiveRL.Limit).Post("/register/verify-otp", regH.VerifyOtp)
				r.Post("/register/complete", regH.Complete)
				r.With(sensitiveRL.Limit).Post("/login", accH.Login)
				r.Get("/check-phone", accH.CheckPhone)
				r.Get("/check-username", accH.CheckUsername)

				r.Group(func(r chi.Router) {
					r.Use(authMw)

					r.Get("/me/profile", accH.Me)
					r.Patch("/me/profile", accH.UpdateMe)

					r.Group(func(r chi.Router) {
						r.Use(adminOnly)

						r.Get("/", accH.List)
						r.Post("/", accH.Create)
						r.Get("/{id}", accH.Get)
						r.Patch("/{id}", accH.Update)
						r.Delete("/{id}", accH.Delete)
					})
				})
			})
		}

		adminAccH := newAccountHandler(domain.KindAdmin, deps.AdminRepo)
		r.Route("/admin", func(r chi.Router) {
			r.With(sensitiveRL.Limit).Post("/login", adminAccH.Login)

			r.Group(func(r chi.Router) {
				r.Use(authMw)

				r.With(adminOnly).Get("/me/profile", adminAccH.Me)
				r.With(adminOnly).Patch("/me/profile", adminAccH.UpdateMe)

				// Managing admin accounts themselves is reserved for the
				// superadmin.
				r.Group(func(r chi.Router) {
					r.Use(superadminOnly)

					r.Get("/", adminAccH.List)
					r.Post("/", adminAccH.Create)
					r.Get("/{id}", adminAccH.Get)
					r.Patch("/{id}", adminAccH.Update)
					r.Delete("/{id}", adminAccH.Delete)
				})
			})
		})
	})

	return r
}
