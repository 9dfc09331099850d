// Package server provides application lifecycle management including
// graceful startup and shutdown with signal handling.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component that can be started and stopped.
type Service interface {
	// Start begins the service. It blocks until the service is stopped, ctx is
	// cancelled, or an error occurs.
	Start(ctx context.Context) error
	// Stop gracefully stops the service.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
// A nil StopFn is a no-op.
type FuncService struct {
	StartFn func(ctx context.Context) error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start(ctx context.Context) error { return f.StartFn(ctx) }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

// Ticker returns a FuncService that calls fn every interval until stopped.
// Errors from fn are logged and do not stop the service.
//
// Precondition: interval > 0; fn and logger must be non-nil.
func Ticker(name string, interval time.Duration, logger *zap.Logger, fn func(ctx context.Context) error) *FuncService {
	stop := make(chan struct{})
	var once sync.Once
	return &FuncService{
		StartFn: func(ctx context.Context) error {
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					if err := fn(ctx); err != nil {
						logger.Warn("periodic task failed", zap.String("service", name), zap.Error(err))
					}
				case <-stop:
					return nil
				case <-ctx.Done():
					return nil
				}
			}
		},
		StopFn: func() { once.Do(func() { close(stop) }) },
	}
}

// OnSignal returns a FuncService that calls fn each time one of sigs arrives,
// until stopped. Errors from fn are logged and do not stop the service.
//
// Precondition: fn and logger must be non-nil; sigs is non-empty.
func OnSignal(name string, logger *zap.Logger, fn func(ctx context.Context) error, sigs ...os.Signal) *FuncService {
	ch := make(chan os.Signal, 1)
	svc := onSignal(name, logger, fn, ch)
	start := svc.StartFn
	svc.StartFn = func(ctx context.Context) error {
		signal.Notify(ch, sigs...)
		defer signal.Stop(ch)
		return start(ctx)
	}
	return svc
}

func onSignal(name string, logger *zap.Logger, fn func(ctx context.Context) error, ch <-chan os.Signal) *FuncService {
	stop := make(chan struct{})
	var once sync.Once
	return &FuncService{
		StartFn: func(ctx context.Context) error {
			for {
				select {
				case sig := <-ch:
					logger.Info("signal received", zap.String("service", name), zap.String("signal", sig.String()))
					if err := fn(ctx); err != nil {
						logger.Warn("signal handler failed", zap.String("service", name), zap.Error(err))
					}
				case <-stop:
					return nil
				case <-ctx.Done():
					return nil
				}
			}
		},
		StopFn: func() { once.Do(func() { close(stop) }) },
	}
}

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a named service for lifecycle management.
// Services are started in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts all services and blocks until a termination signal is received
// (SIGINT or SIGTERM), a service fails, or ctx is cancelled. Services are then
// stopped in reverse order.
//
// Postcondition: All services are stopped when this method returns. The returned
// error is the first service failure, or nil on a clean shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(ctx); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services)

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
