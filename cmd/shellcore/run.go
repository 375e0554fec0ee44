package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	handlers "github.com/GriffinCanCode/AiPlugs/backend/internal/api/http"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/api/ws"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/browser/chrome"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/server"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		headless bool
		execPath string
		startURL string
		noAPI    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch Chrome and inject matched scripts on every navigation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCore(flags)
			if err != nil {
				return err
			}
			defer c.logger.Sync()

			if cmd.Flags().Changed("headless") {
				c.cfg.Chrome.Headless = headless
			}
			if execPath != "" {
				c.cfg.Chrome.Path = execPath
			}
			if startURL != "" {
				target, err := handlers.NormalizeURL(startURL)
				if err != nil {
					return err
				}
				c.cfg.Chrome.StartURL = target
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, c, !noAPI)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "run Chrome headless")
	cmd.Flags().StringVar(&execPath, "chrome", "", "Chrome executable; overrides CHROME_PATH")
	cmd.Flags().StringVar(&startURL, "start-url", "", "first page to open")
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "do not serve the control API")

	return cmd
}

// view is the part of the browser host the hub calls back into
type view interface {
	Readiness(id types.ContextID) (types.Readiness, error)
	ExecuteInContext(ctx context.Context, id types.ContextID, code string) error
}

// hostRef lets the hub be built before the browser it drives exists
type hostRef struct {
	mu   sync.RWMutex
	host view
}

// bind publishes host and then runs start, so the first navigation can
// never reach an unbound reference
func (r *hostRef) bind(host view, start func()) {
	r.mu.Lock()
	r.host = host
	r.mu.Unlock()
	start()
}

func (r *hostRef) load() view {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

func (r *hostRef) Readiness(id types.ContextID) (types.Readiness, error) {
	h := r.load()
	if h == nil {
		return types.ReadinessLoading, navigation.ErrContextGone
	}
	return h.Readiness(id)
}

func (r *hostRef) ExecuteInContext(ctx context.Context, id types.ContextID, code string) error {
	h := r.load()
	if h == nil {
		return navigation.ErrContextGone
	}
	return h.ExecuteInContext(ctx, id, code)
}

func run(ctx context.Context, c *core, serveAPI bool) error {
	logger := c.logger.Logger
	stream := ws.NewStream(logger, c.metrics)

	ref := &hostRef{}
	hub := navigation.NewHub(ref, ref, c.matcher, c.scheduler,
		navigation.WithLogger(logger),
		navigation.WithMetrics(c.metrics),
		navigation.WithReporter(stream),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })

	host, err := chrome.Launch(gctx, chrome.Options{
		ExecPath: c.cfg.Chrome.Path,
		Headless: c.cfg.Chrome.Headless,
		StartURL: c.cfg.Chrome.StartURL,
	}, c.engine, hub, logger)
	if err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("launch chrome: %w", err)
	}
	ref.bind(host, host.Start)

	g.Go(func() error {
		defer host.Close()
		select {
		case <-gctx.Done():
		case <-host.Done():
			logger.Info("Browser closed")
		}
		return context.Canceled
	})

	if serveAPI {
		srv := server.New(c.cfg, handlers.Deps{
			Store:   c.store,
			Engine:  c.engine,
			Browser: host,
			Hub:     hub,
			Matcher: c.matcher,
		}, stream, c.metrics, logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	logger.Info("Shell core running",
		zap.String("matcher", c.matcher.Endpoint()),
		zap.Bool("matcher_enabled", c.matcher.Enabled()),
		zap.Bool("control_api", serveAPI))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shell core stopped")
	return nil
}
