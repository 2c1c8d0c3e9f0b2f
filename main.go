package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"wasd/game"
	"wasd/lobby"
	"wasd/server"
)

const (
	releaseVersion = "0.4.0"
	timeout        = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

func settingsFor(cfg *Config) server.Settings {
	s := server.SettingsForRate(cfg.tickRate)
	s.StageClearDelay = cfg.stageClearDelay
	s.Rules.DeathLogSize = cfg.deathLogSize
	return s
}

// serve 启动 HTTP + WebSocket 服务，ctx 取消后优雅退出
func serve(ctx context.Context, cfg *Config) (err error) {
	if err := server.InitLogger(cfg.logFile, cfg.verbose); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, ignoreSyncErr(server.SyncLogger())) }()

	levels, err := game.LoadLevelsFile(cfg.levels)
	if err != nil {
		return err
	}

	ws := server.NewWSTransport(cfg.allowedOrigin)
	hub := server.NewHub(lobby.NewManager(), ws, levels, settingsFor(cfg))

	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler: server.NewRouter(hub, ws, server.RouterConfig{
			Version:   releaseVersion,
			PublicURL: cfg.publicURL,
			Profile:   cfg.profile,
		}),
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: timeout,
	}

	errs := make(chan error, 1)
	go func() {
		server.Log.Infof("wasd v%s listening on %s (%d stages, %d TPS)", releaseVersion, srv.Addr, len(levels), cfg.tickRate)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			return err
		}
	}
	server.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	hub.Close()
	return err
}

// ignoreSyncErr stderr 等终端设备不支持 fsync
func ignoreSyncErr(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
