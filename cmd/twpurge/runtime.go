package main

import (
	"fmt"

	"github.com/aatumaykin/twpurge/internal/config"
	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/purge"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/aatumaykin/twpurge/internal/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newClient builds the remote client. Tests replace it with a mock.
var newClient = func(cfg *config.Config, log *logger.Logger) twitter.Client {
	return twitter.NewAPIClient(twitter.APIConfig{
		Credentials: twitter.Credentials{
			ConsumerKey:       cfg.Twitter.ConsumerKey,
			ConsumerSecret:    cfg.Twitter.ConsumerSecret,
			AccessToken:       cfg.Twitter.AccessToken,
			AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
		},
		BaseURL:            cfg.Twitter.BaseURL,
		RequestTimeout:     cfg.Twitter.RequestTimeout(),
		MinRequestInterval: cfg.Twitter.MinRequestInterval(),
	}, log)
}

// runtimeEnv is everything a command needs once configuration is accepted.
type runtimeEnv struct {
	cfg     *config.Config
	log     *logger.Logger
	printer *prompt.Printer
	colors  bool
	metrics *metrics.PrometheusMetrics
	client  twitter.Client
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvOptional(envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	if colorMode != "" {
		cfg.Output.Color = colorMode
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*runtimeEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	colors, err := prompt.ColorsEnabled(cfg.Output.Color)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	runID := uuid.NewString()
	log = log.With(
		logger.Field{Key: "run_id", Value: runID},
		logger.Field{Key: "command", Value: cmd.Name()},
	)
	logger.SetDefault(log)

	log.Info("twpurge starting",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "config", Value: configPath})

	return &runtimeEnv{
		cfg:     cfg,
		log:     log,
		printer: prompt.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), colors),
		colors:  colors,
		metrics: metrics.New(cfg.Metrics.Namespace),
		client:  newClient(cfg, log),
	}, nil
}

// fetchRetry is the retry policy for page requests.
func (r *runtimeEnv) fetchRetry() retry.Config {
	fetch := purge.DefaultFetchRetry()
	fetch.MaxAttempts = r.cfg.Purge.FetchAttempts
	return fetch
}

// close exports metrics and releases the log output.
func (r *runtimeEnv) close() {
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		r.log.Error("failed to write metrics textfile", err,
			logger.Field{Key: "path", Value: r.cfg.Metrics.Textfile})
	}
	if err := r.log.Close(); err != nil {
		r.printer.Warning("closing log output: %v", err)
	}
}
