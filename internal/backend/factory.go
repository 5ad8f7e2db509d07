package backend

import (
	"context"
	"errors"
	"fmt"

	"estimator/internal/amqp"
	"estimator/internal/core"
	"estimator/internal/gateway/memory"
	"estimator/internal/log"
	"estimator/internal/services"
	"estimator/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// dial opens the change-event publisher; replaced in tests.
	dial func(url, exchange, queue string) (publisher, error)
}

type publisher interface {
	services.ChangePublisher
	Close() error
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
		dial: func(url, exchange, queue string) (publisher, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend builds the configured store and, when AMQP is configured,
// decorates it so estimation changes are published.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(ctx, config, res)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Resources: repo,
		Accounts:  repo,
		Ready:     repo.Ping,
		Cleanup:   repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	store := memory.New()
	if config.SeedFile != "" {
		var err error
		if store, err = memory.NewFromFile(config.SeedFile); err != nil {
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
	}
	page, _ := store.ListEstimations(context.Background(), core.EstimationQuery{Limit: 1})
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile, log.FieldCount, page.Total)
	return &Result{Resources: store, Accounts: store}, nil
}

// attachPublisher wraps res.Resources in a PublishingBackend. A broker that
// cannot be reached is logged and the backend runs without events.
func (f *DefaultFactory) attachPublisher(_ context.Context, config Config, res *Result) {
	if config.AMQPURL == "" {
		return
	}
	pub, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		return
	}
	f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)

	res.Resources = services.NewPublishingBackend(res.Resources, pub)
	inner := res.Cleanup
	res.Cleanup = func() error {
		err := pub.Close()
		if inner != nil {
			err = errors.Join(err, inner())
		}
		return err
	}
}
