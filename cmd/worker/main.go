package main

import (
	"context"
	"errors"
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
	"github.com/Domenick1991/classbooking/internal/service/reminder"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing.ServiceName+"-worker", cfg.Tracing.OTLPEndpoint)
	if err != nil {
		log.Fatalf("init tracer: %v", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatalf("load timezone: %v", err)
	}

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.SessionsCacheTTLDuration())
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	checkKafka(ctx, producer)

	gateway, closeGateway, err := bootstrap.NewPushGateway(cfg, producer)
	if err != nil {
		log.Fatalf("init push gateway: %v", err)
	}
	defer closeGateway()

	interval := cfg.Worker.ReminderInterval()
	if !reminder.SupportedLocale(cfg.Worker.ReminderLocale) {
		log.Printf("WARNING: unsupported reminder locale %q, using %q", cfg.Worker.ReminderLocale, reminder.DefaultLocale)
	}
	dispatcher := reminder.NewDispatcher(store.Sessions, store.Reservations, gateway, clock.NewSystem(loc),
		reminder.WithLocker(redisCache, interval),
		reminder.WithLookahead(cfg.Worker.ReminderLookaheadMinutes),
		reminder.WithSendConcurrency(cfg.Worker.SendConcurrency),
		reminder.WithLocale(cfg.Worker.ReminderLocale),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.ConsumeBookingEvents(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
			if err := redisCache.InvalidateSessions(ctx, event.DayOfWeek); err != nil {
				log.Printf("WARNING: failed to invalidate sessions cache on %s: %v", event.Type, err)
			}
			return nil
		}); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	runReminders := func() {
		runCtx, cancelRun := context.WithTimeout(ctx, interval)
		defer cancelRun()
		sent, err := dispatcher.Run(runCtx)
		switch {
		case errors.Is(err, reminder.ErrRunSkipped):
			log.Printf("reminder run skipped: another run holds the lock")
		case err != nil:
			log.Printf("reminder run error: %v", err)
		case sent > 0:
			log.Printf("dispatched %d reminders", sent)
		}
	}

	reminderTicker := time.NewTicker(interval)
	defer reminderTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	runReminders()
	for {
		select {
		case <-reminderTicker.C:
			runReminders()
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}

func checkKafka(ctx context.Context, producer *kafka.Producer) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := producer.CheckConnection(checkCtx); err != nil {
		log.Printf("WARNING: kafka unreachable at startup, push messages and cache invalidation will fail until it recovers: %v", err)
	}
}
