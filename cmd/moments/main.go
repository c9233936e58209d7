package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/moments/config"
	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/service"
	"github.com/d60-Lab/moments/internal/session"
	"github.com/d60-Lab/moments/pkg/logger"
	"github.com/d60-Lab/moments/pkg/monitor"
	"github.com/d60-Lab/moments/pkg/tracing"
)

var version = "dev"

// app 每次命令执行时装配的依赖
type app struct {
	cfgFile string
	verbose bool

	cfg         *config.Config
	svc         *service.Coordinator
	sentry      bool
	stopTracing func(context.Context) error
	closeStore  func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "moments",
		Short:         "Photo-sharing client: follow people, post moments, like and comment",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./config.yaml or $HOME/.moments/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.signUpCmd(), a.signInCmd(), a.signOutCmd(), a.whoamiCmd(),
		a.feedCmd(), a.searchCmd(), a.albumCmd(), a.profileCmd(),
		a.followCmd(), a.unfollowCmd(),
		a.likeCmd(), a.postCmd(), a.commentCmd(), a.commentsCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.LoadFile(a.cfgFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if a.stopTracing, err = tracing.Init(ctx, cfg.Tracing); err != nil {
		return err
	}
	if a.sentry, err = monitor.Init(cfg.Sentry, version); err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}

	store, closeStore, err := session.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.closeStore = closeStore
	gw := gateway.New(cfg.Backend.URL, cfg.Backend.APIKey, store, gateway.WithTimeout(cfg.Backend.Timeout))

	var report func(error)
	if a.sentry {
		report = monitor.Capture
	}
	a.cfg = cfg
	a.svc = service.NewCoordinator(gw, service.Options{
		Bucket:              cfg.Backend.Bucket,
		ProfileRetryMax:     cfg.Signup.ProfileRetryMax,
		ProfileRetryInitial: cfg.Signup.ProfileRetryInitial,
		Errors:              service.NewErrorSlot(report),
	})
	return nil
}

func (a *app) teardown() error {
	defer logger.Sync()
	if a.sentry {
		monitor.Flush()
	}
	var errs []error
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
		a.closeStore = nil
	}
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.stopTracing(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
