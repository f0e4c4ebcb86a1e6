package apiapp

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/infra/metrics"
	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	billingsvc "github.com/ssmoliagin/weekendguide/internal/services/billing"
	catalogsvc "github.com/ssmoliagin/weekendguide/internal/services/catalog"
	geosvc "github.com/ssmoliagin/weekendguide/internal/services/geo"
	markerssvc "github.com/ssmoliagin/weekendguide/internal/services/markers"
	notificationssvc "github.com/ssmoliagin/weekendguide/internal/services/notifications"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	reviewssvc "github.com/ssmoliagin/weekendguide/internal/services/reviews"
	unlocksvc "github.com/ssmoliagin/weekendguide/internal/services/unlock"
	visitssvc "github.com/ssmoliagin/weekendguide/internal/services/visits"
	wikisvc "github.com/ssmoliagin/weekendguide/internal/services/wiki"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService     *authsvc.Service
	ProfileService  *profilesvc.Service
	CatalogService  *catalogsvc.Service
	GeoService      *geosvc.Service
	UnlockService   *unlocksvc.Service
	VisitService    *visitssvc.Service
	BillingService  *billingsvc.Service
	ReviewService   *reviewssvc.Service
	WikiService     *wikisvc.Service
	MarkerService   *markerssvc.Service
	NotificationHub *notificationssvc.Hub
	Logger          *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	healthHandler := handlers.NewHealthHandler()
	meHandler := handlers.NewMeHandler(deps.ProfileService, deps.UnlockService, deps.VisitService)
	catalogHandler := handlers.NewCatalogHandler(deps.CatalogService, deps.GeoService, deps.UnlockService, deps.ProfileService)
	visitHandler := handlers.NewVisitHandler(deps.VisitService)
	reviewHandler := handlers.NewReviewHandler(deps.ReviewService)
	wikiHandler := handlers.NewWikiHandler(deps.WikiService)
	markerHandler := handlers.NewMarkerHandler(deps.MarkerService)
	billingHandler := handlers.NewBillingHandler(deps.BillingService)
	notificationsHandler := handlers.NewNotificationsHandler(deps.NotificationHub, deps.Logger)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	timeoutMW := chimiddleware.Timeout(requestTimeout)

	r.Get("/healthz", healthHandler.Get)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/notifications/ws", notificationsHandler.WS)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMW)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/google", authHandler.Google)
				r.Post("/dev", authHandler.Dev)
				r.Post("/refresh", authHandler.Refresh)
				r.With(authMW).Post("/logout", authHandler.Logout)
				r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW)

				r.Get("/me", meHandler.Get)
				r.Put("/me/preferences", meHandler.Preferences)
				r.Put("/me/identity", meHandler.Identity)
				r.Post("/me/favorites/{poi_id}/toggle", meHandler.ToggleFavorite)
				r.Get("/me/collection", meHandler.Collection)
				r.Get("/me/visited", meHandler.Visited)
				r.Get("/me/flags/{flag}", meHandler.Flag)
				r.Put("/me/flags/{flag}", meHandler.SetFlag)

				r.Route("/catalog/countries", func(r chi.Router) {
					r.Get("/", catalogHandler.Countries)
					r.Get("/{country}/regions", catalogHandler.Regions)
					r.Get("/{country}/regions/{region}/pois", catalogHandler.POIs)
					r.Post("/{country}/regions/{region}/unlock", catalogHandler.Unlock)
					r.Get("/{country}/locate", catalogHandler.Locate)
				})

				r.Post("/pois/visit", visitHandler.Visit)
				r.Get("/pois/{poi_id}/reviews", reviewHandler.List)
				r.Post("/pois/{poi_id}/reviews", reviewHandler.Create)

				r.Get("/wiki/summary", wikiHandler.Summary)
				r.Get("/markers/{category}", markerHandler.Icon)

				r.Post("/billing/confirm", billingHandler.Confirm)
				r.Get("/billing/subscription", billingHandler.Subscription)
			})
		})
	})
}
