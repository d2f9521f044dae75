package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/lingoflow/internal/assets"
	"github.com/3leaps/lingoflow/internal/config"
	"github.com/3leaps/lingoflow/internal/observability"
	"github.com/3leaps/lingoflow/internal/server"
	"github.com/3leaps/lingoflow/internal/server/handlers"
	"github.com/3leaps/lingoflow/pkg/completion"
	"github.com/3leaps/lingoflow/pkg/extract/textract"
	"github.com/3leaps/lingoflow/pkg/intake"
	"github.com/3leaps/lingoflow/pkg/jobstore"
	"github.com/3leaps/lingoflow/pkg/notify"
	snsnotify "github.com/3leaps/lingoflow/pkg/notify/sns"
	"github.com/3leaps/lingoflow/pkg/orchestrator"
	"github.com/3leaps/lingoflow/pkg/pipeline"
	"github.com/3leaps/lingoflow/pkg/retry"
	"github.com/3leaps/lingoflow/pkg/status"
	"github.com/3leaps/lingoflow/pkg/storage"
	s3store "github.com/3leaps/lingoflow/pkg/storage/s3"
	"github.com/3leaps/lingoflow/pkg/translate/awstranslate"
)

var errMissingBuckets = errors.New("storage.input_bucket and storage.output_bucket are required")

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the translation pipeline server",
	Long: `Run the HTTP server exposing document intake, status queries, and the
storage event hook, together with the event dispatcher that drives the
orchestration and completion stages.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override listen host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := map[string]any{}
	if serveHost != "" || servePort != 0 {
		serverOverride := map[string]any{}
		if serveHost != "" {
			serverOverride["host"] = serveHost
		}
		if servePort != 0 {
			serverOverride["port"] = servePort
		}
		overrides["server"] = serverOverride
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	if cfg.Storage.InputBucket == "" || cfg.Storage.OutputBucket == "" {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration",
			errMissingBuckets)
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	jobs, err := jobstore.Open(ctx, jobstore.Config{Path: cfg.JobStore.Path})
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to open job store", err)
	}
	defer func() { _ = jobs.Close() }()

	inputStore, err := newBucketStore(ctx, cfg, cfg.Storage.InputBucket)
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to input bucket", err)
	}
	defer func() { _ = inputStore.Close() }()

	var scratchStore storage.Store = inputStore
	if cfg.Storage.ScratchBucket != "" && cfg.Storage.ScratchBucket != cfg.Storage.InputBucket {
		s, err := newBucketStore(ctx, cfg, cfg.Storage.ScratchBucket)
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to scratch bucket", err)
		}
		defer func() { _ = s.Close() }()
		scratchStore = s
	}

	outputStore, err := newBucketStore(ctx, cfg, cfg.Storage.OutputBucket)
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to output bucket", err)
	}
	defer func() { _ = outputStore.Close() }()

	translator, err := awstranslate.New(ctx, awstranslate.Config{
		Region:  regionOr(cfg.Translation.Region, cfg.Storage.Region),
		Profile: cfg.Storage.Profile,
	})
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to create translation client", err)
	}

	extractor, err := textract.New(ctx, textract.Config{
		Region:  regionOr(cfg.Extraction.Region, cfg.Storage.Region),
		Profile: cfg.Storage.Profile,
	})
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to create extraction client", err)
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.Notify.TopicARN != "" {
		p, err := snsnotify.New(ctx, snsnotify.Config{
			TopicARN: cfg.Notify.TopicARN,
			Region:   regionOr(cfg.Notify.Region, cfg.Storage.Region),
			Profile:  cfg.Storage.Profile,
		})
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to create notification publisher", err)
		}
		publisher = p
	}

	intakeSvc := intake.New(inputStore, inputStore, translator, jobs, intake.Config{
		SyncThresholdBytes:    cfg.Translation.SyncThresholdBytes,
		MaxPayloadBytes:       cfg.Translation.MaxPayloadBytes,
		DefaultTargetLanguage: cfg.Translation.DefaultTargetLanguage,
		ValidateLanguage:      assets.IsSupportedLanguage,
	}, logger)

	orchSvc := orchestrator.New(inputStore, scratchStore, extractor, translator, jobs, publisher,
		orchestrator.Config{
			OutputBucket:          cfg.Storage.OutputBucket,
			DataAccessRole:        cfg.Translation.DataAccessRole,
			DefaultTargetLanguage: cfg.Translation.DefaultTargetLanguage,
			ExtractPoll:           retry.Fixed(cfg.Extraction.PollAttempts, cfg.Extraction.PollInterval),
		}, logger)

	completionSvc := completion.New(jobs, publisher, logger)

	router := pipeline.NewRouter(cfg.Storage.InputBucket, cfg.Storage.OutputBucket,
		orchSvc, completionSvc, logger)
	dispatcher := pipeline.NewDispatcher(router, pipeline.DispatcherConfig{
		Workers: cfg.Workers,
	}, logger)

	resolver := status.New(jobs, translator, outputStore, outputStore, status.Config{}, logger)

	handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
	if cfg.Health.Enabled {
		handlers.InitHealthManager(versionInfo.Version)
		manager := handlers.GetHealthManager()
		manager.RegisterChecker("jobstore", jobStoreHealthChecker{store: jobs})
		manager.RegisterChecker("signal", signalHealthChecker{})
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithIntake(intakeSvc),
		server.WithStatusResolver(resolver),
		server.WithEventSink(dispatcher),
		server.WithLogger(logger),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	)

	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	dispatcher.Start(dispatchCtx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	logger.Info("lingoflow server started",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("input_bucket", cfg.Storage.InputBucket),
		zap.String("output_bucket", cfg.Storage.OutputBucket),
		zap.Int("workers", cfg.Workers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down on signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown incomplete", zap.Error(err))
	}

	dispatcher.Stop()
	logger.Info("Event dispatcher drained",
		zap.Int64("processed", dispatcher.Processed()),
		zap.Int64("failed", dispatcher.Failed()))

	return nil
}

func newBucketStore(ctx context.Context, cfg *config.Config, bucket string) (*s3store.Store, error) {
	return s3store.New(ctx, s3store.Config{
		Bucket:         bucket,
		Region:         cfg.Storage.Region,
		Endpoint:       cfg.Storage.Endpoint,
		Profile:        cfg.Storage.Profile,
		ForcePathStyle: cfg.Storage.ForcePathStyle,
	})
}

func regionOr(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// jobStoreHealthChecker probes the job record database.
type jobStoreHealthChecker struct {
	store *jobstore.Store
}

func (c jobStoreHealthChecker) CheckHealth(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// signalHealthChecker always reports healthy; it exists so the readiness
// probe has at least one registered check even with health-critical
// dependencies disabled.
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil
}
