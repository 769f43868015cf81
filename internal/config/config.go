// Package config loads photomap settings from defaults, an optional
// photomap.yaml file, PHOTOMAP_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for a run.
type Config struct {
	Photos   PhotosConfig   `mapstructure:"photos"`
	Output   OutputConfig   `mapstructure:"output"`
	EXIF     EXIFConfig     `mapstructure:"exif"`
	Log      LogConfig      `mapstructure:"log"`
	S3       S3Config       `mapstructure:"s3"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PhotosConfig locates the photo tree and its sidecar.
type PhotosConfig struct {
	Dir          string `mapstructure:"dir"`
	MetadataFile string `mapstructure:"metadata_file"`
	PublicPrefix string `mapstructure:"public_prefix"`
}

// OutputConfig controls the artifact.
type OutputConfig struct {
	Path          string `mapstructure:"path"`
	IncludeSource bool   `mapstructure:"include_source"`
}

type EXIFConfig struct {
	BruteForce bool `mapstructure:"brute_force"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // cli, text, json
	File   string `mapstructure:"file"`
}

// S3Config configures the optional object storage sink.
type S3Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	ArtifactKey  string `mapstructure:"artifact_key"`
	UploadPhotos bool   `mapstructure:"upload_photos"`
	PhotoPrefix  string `mapstructure:"photo_prefix"`
}

// KafkaConfig configures the optional artifact-updated event.
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Broker  string `mapstructure:"broker"`
	Topic   string `mapstructure:"topic"`
}

// PostgresConfig configures the optional catalog table.
type PostgresConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// Options tells Load where to look besides the environment.
type Options struct {
	// File is an explicit config file; it must exist when set.
	File string
	// Flags, when set, override matching keys. See FlagKeys.
	Flags *pflag.FlagSet
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"photos-dir":    "photos.dir",
	"output":        "output.path",
	"public-prefix": "photos.public_prefix",
	"with-source":   "output.include_source",
	"log-level":     "log.level",
}

// legacyEnv keeps the MINIO_* and KAFKA_* names used by the rest of the
// deployment working next to the PHOTOMAP_* ones.
var legacyEnv = map[string]string{
	"s3.endpoint":   "MINIO_ENDPOINT",
	"s3.access_key": "MINIO_ACCESS_KEY",
	"s3.secret_key": "MINIO_SECRET_KEY",
	"s3.use_ssl":    "MINIO_USE_SSL",
	"kafka.broker":  "KAFKA_BROKER",
	"kafka.topic":   "KAFKA_TOPIC",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("photos.dir", "projects/travel-map/photos")
	v.SetDefault("photos.metadata_file", "metadata.json")
	v.SetDefault("photos.public_prefix", "/travel-photos")
	v.SetDefault("output.path", "src/data/photo-locations.json")
	v.SetDefault("output.include_source", false)
	v.SetDefault("exif.brute_force", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "cli")
	v.SetDefault("log.file", "")
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.artifact_key", "data/photo-locations.json")
	v.SetDefault("s3.upload_photos", false)
	v.SetDefault("s3.photo_prefix", "travel-photos")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.topic", "photo-locations")
	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "photo_locations")
}

// Load reads configuration from file, environment variables and flags.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PHOTOMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "PHOTOMAP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("photomap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate reports every problem at once, each wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if strings.TrimSpace(c.Photos.Dir) == "" {
		add("photos.dir is empty")
	}
	if c.Photos.MetadataFile == "" || strings.ContainsAny(c.Photos.MetadataFile, `/\`) {
		add("photos.metadata_file must be a bare file name, got %q", c.Photos.MetadataFile)
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		add("output.path is empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "cli", "text", "json":
	default:
		add("log.format must be cli, text or json, got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		add("log.level %q is not a level", c.Log.Level)
	}
	if c.S3.Enabled {
		if c.S3.Endpoint == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			add("s3 requires endpoint, access_key and secret_key")
		}
		if c.S3.Bucket == "" {
			add("s3.bucket is empty")
		}
		if c.S3.ArtifactKey == "" {
			add("s3.artifact_key is empty")
		}
	}
	if c.Kafka.Enabled && (c.Kafka.Broker == "" || c.Kafka.Topic == "") {
		add("kafka requires broker and topic")
	}
	if c.Postgres.Enabled {
		if c.Postgres.DSN == "" {
			add("postgres.dsn is empty")
		}
		if !identifier.MatchString(c.Postgres.Table) {
			add("postgres.table %q is not a plain identifier", c.Postgres.Table)
		}
	}
	return errors.Join(errs...)
}
