package sweeps

import (
	"time"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/engine"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/metrics"
	"github.com/julianstephens/trainsync/internal/server"
)

type ServeCmd struct {
	Addr              string        `help:"Listen address. Defaults to server.addr."`
	SyncInterval      time.Duration `help:"Time between sync sweeps. Defaults to server.sync_interval."`
	ReconcileInterval time.Duration `help:"Time between reconcile sweeps. Defaults to server.reconcile_interval."`
}

func (c *ServeCmd) options(ctx *cli.Context) server.Options {
	opts := server.Options{
		Addr:              ctx.Config.Server.Addr,
		SyncInterval:      ctx.Config.Server.SyncInterval,
		ReconcileInterval: ctx.Config.Server.ReconcileInterval,
	}
	if c.Addr != "" {
		opts.Addr = c.Addr
	}
	if c.SyncInterval != 0 {
		opts.SyncInterval = c.SyncInterval
	}
	if c.ReconcileInterval != 0 {
		opts.ReconcileInterval = c.ReconcileInterval
	}
	return opts
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	if err := logger.Init(logger.Config{
		Debug:     ctx.Config.Log.Debug,
		ConfigDir: ctx.StateDir,
		Stderr:    true,
		JSON:      ctx.Config.Log.JSON,
	}); err != nil {
		return err
	}

	sigCtx, stop := signalContext()
	defer stop()

	reg := metrics.New()
	orch, err := ctx.Orchestrator(sigCtx, engine.WithRecorder(reg))
	if err != nil {
		return err
	}

	opts := c.options(ctx)
	ctx.Printf("Serving %s on http://%s\n", ctx.Store.Identity(), opts.Addr)
	return server.New(orch, reg, opts).Run(sigCtx)
}
