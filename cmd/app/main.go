package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/classbooking/config"
	"github.com/Domenick1991/classbooking/internal/bootstrap"
	"github.com/Domenick1991/classbooking/internal/cache"
	"github.com/Domenick1991/classbooking/internal/clock"
	"github.com/Domenick1991/classbooking/internal/kafka"
	"github.com/Domenick1991/classbooking/internal/obs"
	"github.com/Domenick1991/classbooking/internal/ratelimit"
	"github.com/Domenick1991/classbooking/internal/service/booking"
	"github.com/Domenick1991/classbooking/internal/service/sessions"
	"github.com/Domenick1991/classbooking/internal/service/waitlist"
	"github.com/Domenick1991/classbooking/internal/txretry"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: failed to load .env: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		log.Fatalf("init tracer: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatalf("load timezone: %v", err)
	}
	clk := clock.NewSystem(loc)

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.SessionsCacheTTLDuration())
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		log.Printf("WARNING: kafka unreachable at startup, booking events will be dropped until it recovers: %v", err)
	}
	cancelCheck()

	limiter := ratelimit.New(redisCache, clk, ratelimit.WithDailyLimit(cfg.Booking.DailyAttemptLimit))
	runner := txretry.New(txretry.WithMaxAttempts(cfg.Booking.TxMaxAttempts))

	deps := booking.NewDeps(store.Reservations, runner, clk,
		booking.WithRateLimiter(limiter),
		booking.WithCache(redisCache),
		booking.WithEvents(producer, cfg.Kafka.BookingEventsTopic),
	)

	svc := bootstrap.Services{
		Sessions: sessions.NewSessionService(store.Sessions, redisCache),
		Bookings: &booking.BookingService{Deps: deps},
		Waitlist: waitlist.NewWaitlistService(deps),
	}

	if err := bootstrap.Run(ctx, cfg, svc); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
