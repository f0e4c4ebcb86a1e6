package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/config"
	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
	"github.com/ssmoliagin/weekendguide/internal/infra/httpclient"
	"github.com/ssmoliagin/weekendguide/internal/infra/metrics"
	s3infra "github.com/ssmoliagin/weekendguide/internal/infra/s3"
	"github.com/ssmoliagin/weekendguide/internal/infra/telegram"
	pgrepo "github.com/ssmoliagin/weekendguide/internal/repo/postgres"
	redrepo "github.com/ssmoliagin/weekendguide/internal/repo/redis"
	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	billingsvc "github.com/ssmoliagin/weekendguide/internal/services/billing"
	catalogsvc "github.com/ssmoliagin/weekendguide/internal/services/catalog"
	geosvc "github.com/ssmoliagin/weekendguide/internal/services/geo"
	markerssvc "github.com/ssmoliagin/weekendguide/internal/services/markers"
	notificationssvc "github.com/ssmoliagin/weekendguide/internal/services/notifications"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	"github.com/ssmoliagin/weekendguide/internal/services/profilesync"
	ratesvc "github.com/ssmoliagin/weekendguide/internal/services/rate"
	reviewssvc "github.com/ssmoliagin/weekendguide/internal/services/reviews"
	unlocksvc "github.com/ssmoliagin/weekendguide/internal/services/unlock"
	visitssvc "github.com/ssmoliagin/weekendguide/internal/services/visits"
	wikisvc "github.com/ssmoliagin/weekendguide/internal/services/wiki"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	mirror     *profilesync.Mirror
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, cfg.CORS, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	recorder := metrics.Recorder{}
	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	profileRepo := redrepo.NewProfileRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	cacheRepo := redrepo.NewCacheRepo(redisClient)
	profileDocs := pgrepo.NewProfileDocumentRepo(pool)

	profileService := profilesvc.NewService(profileRepo, profilesvc.Config{
		WelcomeBonusGP: cfg.Rules.WelcomeBonusGP,
	}, log.Named("profiles"))
	var mirror *profilesync.Mirror
	if pool != nil {
		mirror = profilesync.NewMirror(profileDocs, cfg.Sync.Timeout, log.Named("profilesync"))
		mirror.AttachMetrics(recorder)
		profileService.AttachMirror(mirror)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, cfg.Auth.RefreshTTL)
	authService.AttachProfiles(profileService)
	authService.EnableDevLogin(cfg.Auth.DevLogin)
	if strings.TrimSpace(cfg.Auth.GoogleClientID) != "" {
		authService.AttachVerifier(authsvc.NewGoogleVerifier(cfg.Auth.GoogleClientID))
	} else {
		log.Warn("google client id is empty, google sign-in is disabled")
	}

	diskCache := catalogsvc.NewDiskCache(catalogsvc.NewS3Storage(s3Client, cfg.S3.Bucket), cfg.Catalog.CacheDir, log.Named("catalog"))
	diskCache.AttachMetrics(recorder)
	catalogService := catalogsvc.NewService(diskCache, catalogsvc.Config{
		Prefix:          cfg.Catalog.Prefix,
		FallbackLang:    cfg.Catalog.FallbackLang,
		NearbyLimit:     cfg.Catalog.NearbyLimit,
		NearbyLimitHard: cfg.Catalog.NearbyLimitHard,
	}, log.Named("catalog"))
	geoService := geosvc.NewService(catalogService)

	hub := notificationssvc.NewHub(cfg.CORS.AllowedOrigins, log.Named("ws"))
	notificationService := notificationssvc.NewService(hub, profileService, log.Named("notifications"))

	unlockService := unlocksvc.NewService(unlocksvc.Dependencies{
		Profiles: profileService,
		Catalog:  catalogService,
		Notifier: notificationService,
		Metrics:  recorder,
		Logger:   log.Named("unlock"),
	}, unlocksvc.Config{
		DefaultRegionCost: cfg.Rules.DefaultRegionCost,
	})
	visitService := visitssvc.NewService(visitssvc.Dependencies{
		Profiles:  profileService,
		Catalog:   catalogService,
		Proximity: geoService,
		Notifier:  notificationService,
		Metrics:   recorder,
		Logger:    log.Named("visits"),
	}, visitssvc.Config{
		RadiusM:         cfg.Rules.VisitRadiusM,
		GPSCheckTimeout: cfg.Rules.GPSCheckTimeout,
		Rewards:         rules.NewRewards(cfg.Rules.RewardByCategory, cfg.Rules.DefaultReward),
	})
	billingService := billingsvc.NewService(billingsvc.Dependencies{
		Purchases: pgrepo.NewPurchaseRepo(pool),
		Profiles:  profileService,
		Regions:   unlockService,
		Expired:   profileDocs,
		Metrics:   recorder,
		Logger:    log.Named("billing"),
	}, billingsvc.Config{
		AllowDevProvider: !cfg.IsProduction(),
	})

	reviewService := reviewssvc.NewService(reviewssvc.Dependencies{
		Store:    pgrepo.NewReviewRepo(pool),
		Limiter:  ratesvc.NewLimiter(rateRepo, "reviews", ratesvc.Window{Span: time.Minute, Limit: cfg.Rules.ReviewsPerMinute}),
		Profiles: profileService,
		Logger:   log.Named("reviews"),
	})
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		if bot, err := telegram.NewBot(cfg.Bot.Token); err != nil {
			log.Warn("telegram bot init failed, review alerts are disabled", zap.Error(err))
		} else {
			reviewService.AttachModeration(bot, cfg.Bot.ModerationChatID)
		}
	}

	wikiService := wikisvc.NewService(httpclient.New(cfg.Wiki.Timeout), wikisvc.Config{
		BaseURL: cfg.Wiki.BaseURL,
		RPS:     cfg.Wiki.RPS,
		Burst:   cfg.Wiki.Burst,
	}, log.Named("wiki"))
	wikiService.AttachCache(cacheRepo)

	markerService := markerssvc.NewService(markerssvc.Config{
		Dir:  cfg.Markers.Dir,
		Size: cfg.Markers.Size,
	}, log.Named("markers"))

	RegisterRoutes(r, Dependencies{
		AuthService:     authService,
		ProfileService:  profileService,
		CatalogService:  catalogService,
		GeoService:      geoService,
		UnlockService:   unlockService,
		VisitService:    visitService,
		BillingService:  billingService,
		ReviewService:   reviewService,
		WikiService:     wikiService,
		MarkerService:   markerService,
		NotificationHub: hub,
		Logger:          log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		mirror:     mirror,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.mirror != nil {
		if err := a.mirror.Wait(ctx); err != nil {
			a.logger.Warn("profile mirror did not drain", zap.Error(err))
		}
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
