package microservices

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/kafka"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/memstore"
	repo "github.com/Temutjin2k/ladies-drive/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ladies-drive/internal/adapter/rabbit"
	redisadapter "github.com/Temutjin2k/ladies-drive/internal/adapter/redis"
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
	"github.com/Temutjin2k/ladies-drive/internal/service/driver"
	"github.com/Temutjin2k/ladies-drive/internal/service/ride"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
	"github.com/Temutjin2k/ladies-drive/pkg/postgres"
	"github.com/Temutjin2k/ladies-drive/pkg/rabbit"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

type rideStore interface {
	Create(ctx context.Context, ride *models.RideRequest) error
	Get(ctx context.Context, id string) (*models.RideRequest, error)
	Update(ctx context.Context, ride *models.RideRequest) error
	List(ctx context.Context, filter models.RideFilter) ([]models.RideRequest, error)
	Stats(ctx context.Context) (*models.RideStats, error)
}

type userStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Count(ctx context.Context, filter models.UserFilter) (int, error)
}

type eventStore interface {
	Record(ctx context.Context, ev models.RideEvent) error
}

type changeFeed interface {
	SubscribeRides(ctx context.Context) <-chan models.RideRequest
	SubscribeUsers(ctx context.Context) <-chan models.User
}

// infra is the storage and messaging every service mode is built on.
// Optional backends stay nil when disabled in the config.
type infra struct {
	rides  rideStore
	users  userStore
	events eventStore
	tm     trm.TxManager
	feed   changeFeed

	postgresDB *postgres.PostgreDB
	pgFeed     *repo.Feed
	mem        *memstore.Store

	rabbit    *rabbit.RabbitMQ
	broker    *rabbitadapter.RideBroker
	locations *redisadapter.LocationIndex
	producer  *kafka.LocationProducer

	pingers map[string]handler.Pinger
	log     logger.Logger
}

func newInfra(ctx context.Context, cfg config.Config, log logger.Logger) (_ *infra, err error) {
	trm.SetRetryHook(metrics.TxRetriesTotal.Inc)

	in := &infra{
		pingers: make(map[string]handler.Pinger),
		log:     log,
	}
	defer func() {
		if err != nil {
			in.close(ctx)
		}
	}()

	switch cfg.Store.Driver {
	case types.StoreMemory:
		log.Warn(ctx, "using in-memory store: data is lost on restart and not shared with other service processes")
		in.mem = memstore.New()
		in.rides, in.users, in.events = in.mem.Rides(), in.mem.Users(), in.mem.Events()
		in.tm, in.feed = in.mem, in.mem
	default:
		if err := in.openPostgres(ctx, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.RabbitMQ.Enabled {
		in.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "failed to connect to rabbitmq", err)
			return nil, err
		}
		in.broker = rabbitadapter.NewRideBroker(in.rabbit, log)
		in.pingers["rabbitmq"] = rabbitPinger{in.rabbit}
	}

	if cfg.Redis.Enabled {
		in.locations, err = redisadapter.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error(ctx, "failed to connect to redis", err)
			return nil, err
		}
		in.pingers["redis"] = in.locations
	}

	if cfg.Kafka.Enabled && cfg.Mode == types.DriverService {
		in.producer = kafka.NewLocationProducer(cfg.Kafka.Brokers, cfg.Kafka.LocationTopic)
	}

	return in, nil
}

func (in *infra) openPostgres(ctx context.Context, cfg config.Config) error {
	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		in.log.Error(ctx, "failed to setup database", err)
		return err
	}
	in.postgresDB = db

	if err := repo.Migrate(ctx, db.Pool); err != nil {
		in.log.Error(ctx, "failed to migrate database", err)
		return err
	}

	in.rides = repo.NewRideRepo(db.Pool)
	in.users = repo.NewUserRepo(db.Pool)
	in.events = repo.NewRideEventRepo(db.Pool)
	in.tm = trm.New(db.Pool)
	in.pgFeed = repo.NewFeed(db.Pool, in.log)
	in.feed = in.pgFeed
	in.pingers["postgres"] = db.Pool

	return nil
}

// start launches the background loops owned by infra.
func (in *infra) start(ctx context.Context, errCh chan<- error) {
	if in.pgFeed == nil {
		return
	}
	go func() {
		if err := in.pgFeed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("change feed: %w", err)
		}
	}()
}

// publisher keeps a disabled broker a nil interface.
func (in *infra) publisher() ride.Publisher {
	if in.broker == nil {
		return nil
	}
	return in.broker
}

func (in *infra) positions() dispatch.LocationIndex {
	if in.locations == nil {
		return nil
	}
	return in.locations
}

func (in *infra) driverIndex() driver.LocationIndex {
	if in.locations == nil {
		return nil
	}
	return in.locations
}

func (in *infra) locationStream() driver.LocationStream {
	if in.producer == nil {
		return nil
	}
	return in.producer
}

func (in *infra) retryPolicy(cfg config.Config) trm.RetryPolicy {
	policy := trm.DefaultRetryPolicy
	if cfg.Dispatch.RetryAttempts > 0 {
		policy.Attempts = cfg.Dispatch.RetryAttempts
	}
	return policy
}

func (in *infra) close(ctx context.Context) {
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			in.log.Warn(ctx, "failed to close kafka producer", "error", err.Error())
		}
	}
	if in.locations != nil {
		if err := in.locations.Close(); err != nil {
			in.log.Warn(ctx, "failed to close redis client", "error", err.Error())
		}
	}
	if in.rabbit != nil {
		if err := in.rabbit.Close(ctx); err != nil {
			in.log.Warn(ctx, "failed to close rabbitmq", "error", err.Error())
		}
	}
	if in.pgFeed != nil {
		in.pgFeed.Close()
	}
	if in.postgresDB != nil {
		in.postgresDB.Close()
	}
	if in.mem != nil {
		in.mem.Close()
	}
}

type rabbitPinger struct {
	client *rabbit.RabbitMQ
}

func (p rabbitPinger) Ping(context.Context) error {
	if p.client.IsConnectionClosed() {
		return rabbit.ErrClosed
	}
	return nil
}
