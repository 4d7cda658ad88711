package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/Domenick1991/classbooking/config"
	"github.com/Domenick1991/classbooking/internal/kafka"
	"github.com/Domenick1991/classbooking/internal/push"
	"github.com/Domenick1991/classbooking/internal/repository"
	"github.com/Domenick1991/classbooking/internal/repository/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reservations is implemented by both store drivers.
type Reservations interface {
	repository.ReservationRepository
	repository.ReminderRepository
}

type Store struct {
	Sessions     repository.SessionRepository
	Reservations Reservations
	close        func()
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore connects the configured database driver. Postgres migrations are
// applied before the store is returned.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("using sqlite store at %s", cfg.SQLitePath)
		return &Store{
			Sessions:     repository.NewSQLiteSessionRepository(db),
			Reservations: repository.NewSQLiteReservationRepository(db),
			close:        func() { _ = db.Close() },
		}, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return &Store{
			Sessions:     repository.NewPGSessionRepository(pool),
			Reservations: repository.NewPGReservationRepository(pool),
			close:        pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// NewPushGateway selects the push delivery driver. The returned close func
// is never nil.
func NewPushGateway(cfg *config.Config, producer *kafka.Producer) (push.Gateway, func(), error) {
	switch cfg.Push.Driver {
	case config.PushDriverKafka:
		return push.NewKafkaGateway(producer, cfg.Kafka.PushTopic), func() {}, nil
	case config.PushDriverRabbitMQ:
		gw, err := push.NewRabbitGateway(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return gw, func() { _ = gw.Close() }, nil
	default:
		return push.NewLogGateway(), func() {}, nil
	}
}
