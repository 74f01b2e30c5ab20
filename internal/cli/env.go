package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"bondsim/internal/amqp"
	"bondsim/internal/config"
	"bondsim/internal/services"
	"bondsim/internal/yield"
)

// Env carries what the commands need. Nil collaborators are built from Config
// on first use.
type Env struct {
	Config *config.Config
	Out    io.Writer
	Err    io.Writer

	Models    services.ModelProvider
	Publisher services.ExportPublisher

	closers []func() error
}

// NewEnv returns an Env writing to stdout and stderr.
func NewEnv(cfg *config.Config) *Env {
	return &Env{Config: cfg, Out: os.Stdout, Err: os.Stderr}
}

func (e *Env) models() (services.ModelProvider, error) {
	if e.Models != nil {
		return e.Models, nil
	}
	if e.Config == nil {
		return nil, errors.New("no configuration loaded")
	}
	svc, err := NewYieldService(e.Config)
	if err != nil {
		return nil, err
	}
	e.Models = svc
	return svc, nil
}

func (e *Env) publisher() (services.ExportPublisher, error) {
	if e.Publisher != nil {
		return e.Publisher, nil
	}
	if e.Config == nil || e.Config.AMQPURL == "" {
		return nil, services.ErrExportUnavailable
	}
	client, err := amqp.NewClient(e.Config.AMQPURL, e.Config.AMQPExchange, e.Config.AMQPQueue)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, client.Close)
	e.Publisher = client
	return client, nil
}

func (e *Env) currency() string {
	if e.Config == nil {
		return ""
	}
	return e.Config.Currency
}

// Close releases connections opened by the commands.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	e.closers = nil
	return errors.Join(errs...)
}

func (e *Env) oracle(ctx context.Context) (yield.Oracle, error) {
	m, err := e.models()
	if err != nil {
		return nil, err
	}
	model, err := m.Model(ctx)
	if err != nil {
		return nil, err
	}
	return model.Oracle, nil
}
