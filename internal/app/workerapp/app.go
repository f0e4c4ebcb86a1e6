package workerapp

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/config"
	"github.com/ssmoliagin/weekendguide/internal/infra/metrics"
	"github.com/ssmoliagin/weekendguide/internal/jobs/subscriptions"
	pgrepo "github.com/ssmoliagin/weekendguide/internal/repo/postgres"
	redrepo "github.com/ssmoliagin/weekendguide/internal/repo/redis"
	billingsvc "github.com/ssmoliagin/weekendguide/internal/services/billing"
	markerssvc "github.com/ssmoliagin/weekendguide/internal/services/markers"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	"github.com/ssmoliagin/weekendguide/internal/services/profilesync"
)

const markerWarmupJob = "marker_warmup"

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	mirror   *profilesync.Mirror
	expiry   *subscriptions.ExpiryJob
	markers  *markerssvc.Service
	cron     *cron.Cron
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker app: %w", err)
	}

	recorder := metrics.Recorder{}
	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	profileDocs := pgrepo.NewProfileDocumentRepo(pool)

	mirror := profilesync.NewMirror(profileDocs, cfg.Sync.Timeout, logger.Named("profilesync"))
	mirror.AttachMetrics(recorder)
	profileService := profilesvc.NewService(redrepo.NewProfileRepo(redisClient), profilesvc.Config{
		WelcomeBonusGP: cfg.Rules.WelcomeBonusGP,
	}, logger.Named("profiles"))
	profileService.AttachMirror(mirror)

	billingService := billingsvc.NewService(billingsvc.Dependencies{
		Purchases: pgrepo.NewPurchaseRepo(pool),
		Profiles:  profileService,
		Expired:   profileDocs,
		Metrics:   recorder,
		Logger:    logger.Named("billing"),
	}, billingsvc.Config{})

	expiry := subscriptions.NewExpiryJob(billingService, logger.Named("jobs"))
	expiry.AttachMetrics(recorder)

	cronLogger := cronLog{logger: logger.Named("cron")}
	scheduler := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	), cron.WithLogger(cronLogger))

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		redis:    redisClient,
		mirror:   mirror,
		expiry:   expiry,
		markers: markerssvc.NewService(markerssvc.Config{
			Dir:  cfg.Markers.Dir,
			Size: cfg.Markers.Size,
		}, logger.Named("markers")),
		cron: scheduler,
	}, nil
}

// Run warms the marker cache, schedules the periodic jobs and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("worker app started")

	a.warmMarkers(ctx)

	if _, err := a.cron.AddFunc(a.cfg.Jobs.SubscriptionSweep, func() {
		if err := a.expiry.Run(ctx); err != nil {
			a.logger.Error("subscription expiry failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule %s: %w", a.expiry.Name(), err)
	}
	if _, err := a.cron.AddFunc(a.cfg.Jobs.MarkerWarmup, func() {
		a.warmMarkers(ctx)
	}); err != nil {
		return fmt.Errorf("schedule %s: %w", markerWarmupJob, err)
	}

	a.cron.Start()
	<-ctx.Done()

	stopped := a.cron.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		a.logger.Warn("cron jobs did not finish in time")
	}
	return nil
}

func (a *App) Close() {
	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.mirror.Wait(waitCtx); err != nil {
		a.logger.Warn("profile mirror did not drain", zap.Error(err))
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
}

func (a *App) warmMarkers(ctx context.Context) {
	started := time.Now()
	rendered, err := a.markers.Warm(ctx)
	metrics.RecordJobRun(markerWarmupJob, time.Since(started), err)
	if err != nil {
		a.logger.Warn("marker warmup failed", zap.Error(err))
		return
	}
	a.logger.Info("marker warmup completed", zap.Int("rendered", rendered))
}

type cronLog struct {
	logger *zap.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
