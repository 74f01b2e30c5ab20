package backend

import (
	"context"

	"bondsim/internal/amqp"
	"bondsim/internal/services"
	"bondsim/internal/storage"
)

// CleanupFunc releases backend resources
type CleanupFunc func() error

// BackendResult holds the run store and the optional AMQP client.
type BackendResult struct {
	Store   storage.RunStore
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the export publisher, or nil when AMQP is not configured.
func (r *BackendResult) Publisher() services.ExportPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type StoreType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// StoreType selects the RunStore implementation
type StoreType string

const (
	SQLiteStore StoreType = "sqlite"
	MemoryStore StoreType = "memory"
)

func (st StoreType) String() string {
	return string(st)
}

func (st StoreType) IsValid() bool {
	switch st {
	case SQLiteStore, MemoryStore:
		return true
	default:
		return false
	}
}
