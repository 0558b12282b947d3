package main

import (
	"context"
	"io"

	"github.com/Travis-Britz/ddnsd"
	"github.com/judwhite/go-svc"
	"github.com/rs/zerolog"
)

// program runs the poll loop as a service.
type program struct {
	configPath string

	cfg    *Config
	client *ddnsd.Client
	logger zerolog.Logger
	closer io.Closer

	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Init(env svc.Environment) error {
	cfg, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}
	p.cfg = cfg
	p.logger, p.closer = logFromConfig(cfg.Log)

	p.client, err = buildClient(cfg, p.logger)
	if err != nil {
		p.closer.Close()
		return err
	}
	p.logger.Info().
		Str("domain", cfg.Domain).
		Str("provider", cfg.Provider).
		Str("resolver", cfg.Resolver.Method).
		Bool("windows_service", env.IsWindowsService()).
		Msg("initialized")
	return nil
}

func (p *program) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		if err := p.client.Run(ctx, p.cfg.IntervalDuration()); err != nil {
			p.logger.Error().Err(err).Msg("poll loop stopped")
		}
	}()
	return nil
}

func (p *program) Stop() error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	p.logger.Info().Msg("shutdown")
	return p.closer.Close()
}
