package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/ivyedsg/repify-web/apiclient"
	"github.com/ivyedsg/repify-web/auth"
	"github.com/ivyedsg/repify-web/internal/config"
	"github.com/ivyedsg/repify-web/server"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/ivyedsg/repify-web/sessions/cookiestore"
	"github.com/ivyedsg/repify-web/sessions/memstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := buildDependencies(ctx, c)
	if err != nil {
		return err
	}
	handler, err := server.New(c, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DefaultContextLogger = &log.Logger
	if c.IsDev() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func buildDependencies(ctx context.Context, c config.Config) (server.Dependencies, error) {
	client := apiclient.New(c.GetAPIBaseURL(), c.GetAPITimeout(),
		apiclient.WithCache(c.GetAPICacheSize(), c.GetAPICacheTTL()))
	store := sessions.NewStore(client, sessions.Lifetimes{
		AccessTTL:  c.GetAccessTokenTTL(),
		RefreshTTL: c.GetRefreshTokenTTL(),
	})

	deps := server.Dependencies{
		Authorizer: auth.NewCredentialExchange(client),
		Store:      store,
		Prober:     client,
		API:        client,
	}

	switch c.GetSessionStore() {
	case config.SessionStoreMemory:
		carrier := memstore.New(memstore.NewInMemoryRepo(), c.GetCookieName())
		go carrier.RunSweeper(ctx, sweepInterval, time.Now)
		deps.Carrier, deps.Invalidator = carrier, carrier
	default:
		codec, err := cookiestore.NewCodec(c.GetSessionSecret())
		if err != nil {
			return server.Dependencies{}, fmt.Errorf("session codec: %w", err)
		}
		carrier := cookiestore.New(codec, c.GetCookieName())
		deps.Carrier, deps.Invalidator = carrier, carrier
	}
	log.Info().Str("api", c.GetAPIBaseURL()).Str("session_store", c.GetSessionStore()).Msg("Dependencies ready")
	return deps, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
