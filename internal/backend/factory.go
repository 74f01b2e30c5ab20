package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bondsim/internal/amqp"
	"bondsim/internal/storage"
	"bondsim/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the run store and, when configured, the AMQP client.
// An unreachable broker is logged and the backend continues without export jobs.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store storage.RunStore
	switch config.Type {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.Info("Initialized SQLite run store", "component", "backend", "db_path", config.SQLiteDBPath)
	case MemoryStore:
		store = memory.NewStore()
		f.logger.Info("Initialized memory run store", "component", "backend")
	default:
		return nil, fmt.Errorf("unsupported run store: %s", config.Type)
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without export jobs", "component", "backend", "error", err)
		} else {
			amqpClient = client
			f.logger.Info("Initialized AMQP client",
				"component", "backend",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Store: store,
		AMQP:  amqpClient,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}
