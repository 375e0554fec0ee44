package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/bypass"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/injection"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/matcher"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/policy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags override environment configuration
type globalFlags struct {
	policyFile string
	logLevel   string
	dev        bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "shellcore",
		Short:         "Navigation-triggered script injection for the AiPlugs browser shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.policyFile, "policy", "", "security policy file (JSON or YAML); overrides SHELL_POLICY_FILE")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level; overrides LOG_LEVEL")
	cmd.PersistentFlags().BoolVar(&flags.dev, "dev", false, "development logging")

	cmd.AddCommand(newRunCmd(&flags))
	cmd.AddCommand(newReplayCmd(&flags))
	cmd.AddCommand(newPolicyCmd(&flags))

	return cmd
}

// core holds the components shared by every subcommand
type core struct {
	cfg       *config.Config
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	store     *policy.Store
	engine    *bypass.Engine
	matcher   *matcher.Client
	scheduler *injection.Scheduler
}

func newCore(flags *globalFlags) (*core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags.policyFile != "" {
		cfg.Policy.File = flags.policyFile
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.dev {
		cfg.Logging.Development = true
	}

	logger := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
	metrics := monitoring.NewMetrics()
	store := loadPolicy(cfg.Policy.File, logger.Logger)

	c := &core{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		store:   store,
		engine:  bypass.New(store, bypass.WithLogger(logger.Logger), bypass.WithMetrics(metrics)),
		matcher: matcher.New(matcher.Config{
			Host:    cfg.Matcher.Host,
			Port:    cfg.Matcher.Port,
			Timeout: cfg.Matcher.Timeout,
			Breaker: cfg.Matcher.Breaker,
		}, matcher.WithLogger(logger.Logger), matcher.WithMetrics(metrics)),
		scheduler: injection.NewScheduler(injection.Config{
			Host: cfg.Matcher.Host,
			Port: cfg.Matcher.Port,
		}, injection.WithLogger(logger.Logger), injection.WithMetrics(metrics)),
	}
	return c, nil
}

// loadPolicy never fails: an unreadable document means nothing is bypassed
func loadPolicy(path string, logger *zap.Logger) *policy.Store {
	if path == "" {
		logger.Info("No policy file configured, security bypass disabled")
		return policy.NewStore(policy.SecurityPolicy{})
	}
	store, err := policy.LoadFile(path)
	if err != nil {
		logger.Warn("Policy file unreadable, security bypass disabled",
			zap.String("path", path), zap.Error(err))
	}
	for _, issue := range store.Issues() {
		logger.Warn("Policy issue", zap.String("path", path), zap.String("issue", issue.String()))
	}
	return store
}
