/*
Package main implements a peer monitor for a Bitcoin node: it polls getpeerinfo,
disconnects every peer that combines the "libre" connection type with the
PREFERENTIAL_PEERING service, and bans its IP address for a fixed duration.
It features environment-driven configuration with flag overrides, a single-pass
mode, and a safety-first preview mode.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/config"
	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/enforce"
	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/failure"
	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/monitor"
	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/rpc"
)

const (
	APP        = "goPeerScythe"
	AppSnake   = "go-peer-scythe"
	VERSION    = "0.1.0"
	REPOSITORY = "https://github.com/lao-tseu-is-alive/go-peer-scythe"
)

// Process exit codes.
const (
	exitOK        = 0
	exitStartup   = 1
	exitPassError = 2
)

var log = slog.Disabled

// setupLogging hands one subsystem logger per package out of a shared backend.
func setupLogging(w io.Writer, level string) {
	backend := slog.NewBackend(w)
	lvl, _ := slog.LevelFromString(level)

	loggers := map[string]func(slog.Logger){
		"SCYT": func(l slog.Logger) { log = l },
		"MNTR": monitor.UseLogger,
		"ENFC": enforce.UseLogger,
		"RPCG": rpc.UseLogger,
	}
	for tag, use := range loggers {
		l := backend.Logger(tag)
		l.SetLevel(lvl)
		use(l)
	}
}

// newGateway picks the JSON-RPC gateway when a host is configured and the
// bitcoin-cli gateway otherwise. The returned func releases it.
func newGateway(cfg config.Config) (rpc.Gateway, func(), error) {
	if cfg.UseRPC() {
		gw, err := rpc.NewRPCGateway(cfg.RPCHost, cfg.RPCUser, cfg.RPCPass)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("🔗 Using JSON-RPC endpoint %s", cfg.RPCHost)
		return gw, gw.Shutdown, nil
	}

	gw, err := rpc.NewCLIGateway(cfg.GatewayPath, cfg.GatewayArgs)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("🔗 Using gateway executable %s", gw.Path())
	return gw, func() {}, nil
}

// run is main without os.Exit, returning the process exit code.
func run(ctx context.Context, args []string, stdout io.Writer) int {
	fmt.Fprintf(stdout, "🚀 🛡️ Starting App:'%s', ver:%s, Repo: %s\n", APP, VERSION, REPOSITORY)

	cfg, err := config.Load(args, stdout)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stdout, "❌ FATAL: invalid configuration: %v\n", err)
		return exitStartup
	}
	if cfg.PrintVersion {
		return exitOK
	}

	setupLogging(stdout, cfg.LogLevel)

	if cfg.PreviewMode {
		log.Infof("🔍 PREVIEW MODE: No peer will be disconnected or banned.")
	}

	gw, release, err := newGateway(cfg)
	if err != nil {
		log.Criticalf("❌ FATAL: %v", err)
		return exitStartup
	}
	defer release()

	node := rpc.NewNodeClient(gw)
	executor := enforce.New(node, enforce.Config{
		BanDuration: cfg.BanDuration(),
		Preview:     cfg.PreviewMode,
	})
	mon := monitor.New(node, executor, monitor.Config{
		Interval:   cfg.PollInterval(),
		SinglePass: cfg.RunOnce,
	})

	log.Infof("👁️  Watching for %s peers (mode=%s interval=%s bantime=%s)",
		"libre+PREFERENTIAL_PEERING", cfg.RunMode(), cfg.PollInterval(), cfg.BanDuration())

	if cfg.RunOnce {
		err := mon.Run(ctx)
		switch {
		case err == nil:
			return exitOK
		case failure.Is(err, failure.ErrFetch), failure.Is(err, failure.ErrDecode):
			return exitPassError
		default:
			log.Errorf("❌ ERROR: %v", err)
			return exitStartup
		}
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		select {
		case sig := <-sigChan:
			log.Infof("🛑 Received %v, finishing current work and shutting down...", sig)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	group.Go(func() error {
		defer cancel()
		return mon.Run(gctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("❌ ERROR: %v", err)
		return exitStartup
	}

	log.Infof("✅ %s stopped.", APP)
	return exitOK
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}
