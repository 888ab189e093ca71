// Package config loads the biomatch command configuration with the
// precedence flag > environment (BIOMATCH_) > file > defaults.
package config

import (
	"errors"
	"strings"

	"github.com/hupe1980/biomatch"
	"github.com/hupe1980/biomatch/codec"
	"github.com/hupe1980/biomatch/internal/bmerr"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/modality"
	"github.com/spf13/viper"
)

// Config is the top-level biomatch configuration.
type Config struct {
	Database   string           `mapstructure:"database"`
	IndexDir   string           `mapstructure:"index_dir"`
	LoadPolicy string           `mapstructure:"load_policy"`
	Log        LogConfig        `mapstructure:"log"`
	IVF        IVFConfig        `mapstructure:"ivf"`
	Modalities ModalitiesConfig `mapstructure:"modalities"`
	Publish    PublishConfig    `mapstructure:"publish"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IVFConfig holds the index build parameters.
type IVFConfig struct {
	NClusters int   `mapstructure:"n_clusters"`
	NProbe    int   `mapstructure:"n_probe"`
	TopK      int   `mapstructure:"top_k"`
	MaxIter   int   `mapstructure:"max_iter"`
	Seed      int64 `mapstructure:"seed"`
}

// ModalitiesConfig holds per-modality overrides. Zero values keep the
// built-in defaults.
type ModalitiesConfig struct {
	Face      ModalityConfig `mapstructure:"face"`
	Voice     ModalityConfig `mapstructure:"voice"`
	Signature ModalityConfig `mapstructure:"signature"`
}

// ModalityConfig overrides threshold and embedding dimension.
type ModalityConfig struct {
	Threshold float32 `mapstructure:"threshold"`
	Dimension int     `mapstructure:"dimension"`
}

// PublishConfig selects where rebuilt artifacts are uploaded.
type PublishConfig struct {
	Backend string      `mapstructure:"backend"`
	Codec   string      `mapstructure:"codec"`
	Prefix  string      `mapstructure:"prefix"`
	Restore bool        `mapstructure:"restore"`
	Dir     string      `mapstructure:"dir"`
	S3      S3Config    `mapstructure:"s3"`
	MinIO   MinIOConfig `mapstructure:"minio"`
}

// S3Config configures the S3 backend. Credentials and region come from the
// default AWS configuration chain.
type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
}

// MinIOConfig configures the MinIO backend.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// AuditConfig selects the audit sinks.
type AuditConfig struct {
	// Sinks is any combination of log, sqlite, dynamodb and nats.
	Sinks       []string `mapstructure:"sinks"`
	DynamoTable string   `mapstructure:"dynamo_table"`
	NATSURL     string   `mapstructure:"nats_url"`
	NATSPrefix  string   `mapstructure:"nats_prefix"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	def := ivf.DefaultConfig()

	v.SetDefault("database", "biomatch.db")
	v.SetDefault("index_dir", "indexes")
	v.SetDefault("load_policy", "always")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ivf.n_clusters", def.NClusters)
	v.SetDefault("ivf.n_probe", def.NProbe)
	v.SetDefault("ivf.top_k", def.TopK)
	v.SetDefault("ivf.max_iter", def.MaxIter)
	v.SetDefault("ivf.seed", def.Seed)
	v.SetDefault("publish.backend", "none")
	v.SetDefault("publish.codec", codec.Default.Name())
	v.SetDefault("publish.prefix", "biomatch")
	v.SetDefault("audit.sinks", []string{"log", "sqlite"})
	v.SetDefault("audit.dynamo_table", "biomatch-search-logs")
	v.SetDefault("audit.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("audit.nats_prefix", "biomatch.audit")
}

// SetupEnv binds BIOMATCH_ prefixed environment variables; nested keys use
// underscores (BIOMATCH_IVF_N_CLUSTERS).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("BIOMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, bmerr.Errorf(bmerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Database == "" {
		errs = append(errs, invalid("config: database must not be empty"))
	}
	if c.IndexDir == "" {
		errs = append(errs, invalid("config: index_dir must not be empty"))
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if err := c.IVFConfig().Validate(); err != nil {
		errs = append(errs, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue, "config: ivf: %w", err))
	}
	for _, m := range modality.All() {
		mc := c.Modality(m)
		if mc.Threshold < 0 || mc.Threshold > 2 {
			errs = append(errs, invalid("config: modalities."+m.String()+".threshold must be within [0, 2]"))
		}
		if mc.Dimension < 0 {
			errs = append(errs, invalid("config: modalities."+m.String()+".dimension must not be negative"))
		}
	}

	errs = append(errs, c.validatePublish()...)
	errs = append(errs, c.validateAudit()...)
	return errs
}

func (c *Config) validatePublish() []error {
	var errs []error

	if _, err := codec.Parse(c.Publish.Codec); err != nil {
		errs = append(errs, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue, "config: publish.codec: %w", err))
	}

	switch c.Publish.Backend {
	case "none":
	case "local":
		if c.Publish.Dir == "" {
			errs = append(errs, invalid("config: publish.dir is required for the local backend"))
		}
	case "s3":
		if c.Publish.S3.Bucket == "" {
			errs = append(errs, invalid("config: publish.s3.bucket is required for the s3 backend"))
		}
	case "minio":
		if c.Publish.MinIO.Endpoint == "" || c.Publish.MinIO.Bucket == "" {
			errs = append(errs, invalid("config: publish.minio.endpoint and publish.minio.bucket are required for the minio backend"))
		}
	default:
		errs = append(errs, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue,
			"config: publish.backend must be one of [none, local, s3, minio], got %q", c.Publish.Backend))
	}

	if c.Publish.Restore && c.Publish.Backend == "none" {
		errs = append(errs, invalid("config: publish.restore requires a publish backend"))
	}
	return errs
}

func (c *Config) validateAudit() []error {
	var errs []error

	valid := map[string]bool{"log": true, "sqlite": true, "dynamodb": true, "nats": true}
	for _, s := range c.Audit.Sinks {
		if !valid[s] {
			errs = append(errs, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue,
				"config: audit.sinks must only contain [log, sqlite, dynamodb, nats], got %q", s))
		}
	}
	return errs
}

// Policy returns the configured index load policy.
func (c *Config) Policy() (biomatch.LoadPolicy, error) {
	switch c.LoadPolicy {
	case "always", "":
		return biomatch.LoadPolicyAlways, nil
	case "cached":
		return biomatch.LoadPolicyCached, nil
	default:
		return 0, bmerr.Errorf(bmerr.CodeConfigValidateInvalidValue,
			"config: load_policy must be one of [always, cached], got %q", c.LoadPolicy)
	}
}

// IVFConfig converts the ivf section.
func (c *Config) IVFConfig() ivf.Config {
	return ivf.Config{
		NClusters: c.IVF.NClusters,
		NProbe:    c.IVF.NProbe,
		TopK:      c.IVF.TopK,
		MaxIter:   c.IVF.MaxIter,
		Seed:      c.IVF.Seed,
	}
}

// Modality returns the overrides of m.
func (c *Config) Modality(m modality.Modality) ModalityConfig {
	switch m {
	case modality.Face:
		return c.Modalities.Face
	case modality.Voice:
		return c.Modalities.Voice
	case modality.Signature:
		return c.Modalities.Signature
	default:
		return ModalityConfig{}
	}
}

// HasSink reports whether the audit sink name is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Audit.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func invalid(msg string) error {
	return bmerr.New(bmerr.CodeConfigValidateInvalidValue, msg)
}
