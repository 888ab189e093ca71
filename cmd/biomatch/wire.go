package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"

	"github.com/hupe1980/biomatch"
	"github.com/hupe1980/biomatch/audit"
	"github.com/hupe1980/biomatch/audit/dynamo"
	"github.com/hupe1980/biomatch/audit/natsink"
	"github.com/hupe1980/biomatch/audit/sqlsink"
	"github.com/hupe1980/biomatch/blobstore"
	"github.com/hupe1980/biomatch/blobstore/minio"
	"github.com/hupe1980/biomatch/blobstore/s3"
	"github.com/hupe1980/biomatch/codec"
	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/hupe1980/biomatch/internal/config"
	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/store/sqlite"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Config  *config.Config
	Store   *sqlite.Store
	Engine  *biomatch.Engine
	Audit   *audit.Logger
	Metrics *biomatch.BasicMetricsCollector
	Logger  *biomatch.Logger

	closers []func() error
}

// Close releases every resource in reverse wiring order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WireApp decodes the configuration held by v and wires the engine with its
// store, audit sinks and artifact publisher.
func WireApp(ctx context.Context, v *viper.Viper) (*App, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  newLogger(cfg, v.GetBool("verbose")),
		Metrics: &biomatch.BasicMetricsCollector{},
	}

	st, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, bmerr.Errorf(bmerr.CodeCLISetupFailure, "opening store: %w", err)
	}
	app.Store = st
	app.closers = append(app.closers, st.Close)

	sink, err := wireAudit(ctx, cfg, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Audit = audit.NewLogger(sink,
		audit.WithSlog(app.Logger.Logger),
		audit.WithDropHook(app.Metrics.RecordAuditDrop),
	)

	policy, _ := cfg.Policy()
	opts := []biomatch.Option{
		biomatch.WithIndexDir(cfg.IndexDir),
		biomatch.WithIVFConfig(cfg.IVFConfig()),
		biomatch.WithLoadPolicy(policy),
		biomatch.WithLogger(app.Logger),
		biomatch.WithMetrics(app.Metrics),
		biomatch.WithAudit(app.Audit),
		biomatch.WithSampleWriter(st),
	}
	for _, m := range modality.All() {
		mc := cfg.Modality(m)
		if mc.Threshold > 0 {
			opts = append(opts, biomatch.WithThreshold(m, mc.Threshold))
		}
		if mc.Dimension > 0 {
			opts = append(opts, biomatch.WithDimension(m, mc.Dimension))
		}
	}

	pub, err := wirePublisher(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if pub != nil {
		opts = append(opts, biomatch.WithPublisher(pub))
		if cfg.Publish.Restore {
			opts = append(opts, biomatch.WithRestoreFromPublisher())
		}
	}

	app.Engine = biomatch.New(st, st, opts...)
	return app, nil
}

func newLogger(cfg *config.Config, verbose bool) *biomatch.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	if cfg.Log.Format == "json" {
		return biomatch.NewJSONLogger(level)
	}
	return biomatch.NewTextLogger(level)
}

func wireAudit(ctx context.Context, cfg *config.Config, app *App) (audit.Sink, error) {
	var sinks []audit.Sink

	if cfg.HasSink("log") {
		sinks = append(sinks, audit.SlogSink{Logger: app.Logger.Logger})
	}

	if cfg.HasSink("sqlite") {
		s, err := sqlsink.New(ctx, app.Store.DB())
		if err != nil {
			return nil, bmerr.Errorf(bmerr.CodeCLISetupFailure, "creating sqlite audit sink: %w", err)
		}
		sinks = append(sinks, s)
	}

	if cfg.HasSink("dynamodb") {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, bmerr.Errorf(bmerr.CodeCLISetupFailure, "loading aws config: %w", err)
		}
		sinks = append(sinks, dynamo.New(dynamodb.NewFromConfig(awsCfg), cfg.Audit.DynamoTable))
	}

	if cfg.HasSink("nats") {
		s, nc, err := natsink.Connect(cfg.Audit.NATSURL, cfg.Audit.NATSPrefix, nats.MaxReconnects(5))
		if err != nil {
			return nil, bmerr.Errorf(bmerr.CodeCLISetupFailure, "connecting to nats: %w", err)
		}
		app.closers = append(app.closers, func() error {
			// Flush pending audit entries before the process exits.
			return nc.Drain()
		})
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return audit.Multi(sinks...), nil
	}
}

func wirePublisher(ctx context.Context, cfg *config.Config) (*blobstore.Publisher, error) {
	var st blobstore.Store

	switch cfg.Publish.Backend {
	case "none":
		return nil, nil
	case "local":
		if err := os.MkdirAll(cfg.Publish.Dir, 0o755); err != nil {
			return nil, bmerr.Errorf(bmerr.CodeCLISetupFailure, "creating publish directory: %w", err)
		}
		st = blobstore.NewLocalStore(cfg.Publish.Dir)
	case "s3":
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Publish.S3.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Publish.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, bmerr.Errorf(bmerr.CodeCLISetupFailure, "loading aws config: %w", err)
		}
		st = s3.NewStore(awss3.NewFromConfig(awsCfg), cfg.Publish.S3.Bucket, "")
	case "minio":
		mc := cfg.Publish.MinIO
		client, err := minio.Dial(mc.Endpoint, mc.AccessKey, mc.SecretKey, mc.Secure)
		if err != nil {
			return nil, bmerr.Errorf(bmerr.CodeCLISetupFailure, "creating minio client: %w", err)
		}
		st = minio.NewStore(client, mc.Bucket, "")
	default:
		return nil, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue, "unknown publish backend %q", cfg.Publish.Backend)
	}

	c, err := codec.Parse(cfg.Publish.Codec)
	if err != nil {
		return nil, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue, "publish codec: %w", err)
	}
	return blobstore.NewPublisher(st,
		blobstore.WithCodec(c),
		blobstore.WithPrefix(cfg.Publish.Prefix),
	), nil
}
