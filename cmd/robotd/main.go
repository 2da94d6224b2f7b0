//go:build !(rp2040 || rp2350)

// Command robotd drives the robot from a host: it serves the HTTP control
// API, streams rangefinder samples and optionally reads console commands
// from stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"robotcode-go/logging"
	"robotcode-go/services/config"
	"robotcode-go/services/console"
)

const shutdownGrace = 5 * time.Second

func main() {
	path := flag.String("config", "", "YAML config file")
	profile := flag.String("profile", "", "embedded device profile (sim, pi)")
	flag.Parse()

	if err := run(config.Options{Path: *path, Profile: *profile}); err != nil {
		fmt.Fprintln(os.Stderr, "robotd:", err)
		os.Exit(1)
	}
}

func run(opts config.Options) (err error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	r, err := newRobot(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, r.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.sample(ctx)
	}()

	if cfg.Console {
		var rng console.Ranger
		if r.rng != nil {
			rng = r.rng
		}
		con := console.New(r.ctrl, rng, os.Stdout)
		go func() {
			// stdin cannot be interrupted; the goroutine ends with the process.
			if err := con.Run(ctx, os.Stdin); err != nil {
				logger.Warn("console", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{Addr: cfg.HTTP.Listen, Handler: r.handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Listen))
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
		stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if serr := srv.Shutdown(sctx); serr != nil && serr != http.ErrServerClosed {
		err = multierr.Append(err, serr)
	}
	wg.Wait()
	if err == http.ErrServerClosed {
		err = nil
	}
	return err
}
