// Package config loads runtime settings from defaults, an optional
// zaloga.yaml and ZALOGA_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erazemk/zaloga/internal/upload"
)

// Config holds all runtime configuration.
type Config struct {
	Addr     string `mapstructure:"addr"`
	DB       string `mapstructure:"db"`
	Log      string `mapstructure:"log"`
	LogLevel string `mapstructure:"log_level"`
	Admin    string `mapstructure:"admin"`
	Timezone string `mapstructure:"timezone"`

	Upload UploadConfig `mapstructure:"upload"`
	Image  ImageConfig  `mapstructure:"image"`
}

type UploadConfig struct {
	Driver string   `mapstructure:"driver"`
	Dir    string   `mapstructure:"dir"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Prefix          string `mapstructure:"prefix"`
}

type ImageConfig struct {
	MaxDimension int   `mapstructure:"max_dimension"`
	Quality      int   `mapstructure:"quality"`
	MaxBytes     int64 `mapstructure:"max_bytes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", "zaloga.sqlite3")
	v.SetDefault("log", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("admin", "Admin")
	v.SetDefault("timezone", "UTC")

	v.SetDefault("upload.driver", string(upload.DriverFilesystem))
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.s3.bucket", "")
	v.SetDefault("upload.s3.region", "us-east-1")
	v.SetDefault("upload.s3.endpoint", "")
	v.SetDefault("upload.s3.path_style", false)
	v.SetDefault("upload.s3.access_key_id", "")
	v.SetDefault("upload.s3.secret_access_key", "")
	v.SetDefault("upload.s3.prefix", "")

	v.SetDefault("image.max_dimension", 1024)
	v.SetDefault("image.quality", 85)
	v.SetDefault("image.max_bytes", 10<<20)
}

// Load builds the configuration. configFile may be empty, in which case
// zaloga.yaml is looked up in the working directory and its absence is not
// an error. Flags that were set explicitly override everything else; a
// flag named log-level sets the key log_level.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("zaloga")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("zaloga")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("binding flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location returns the time zone used for day filters and exports.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UploadStore converts the upload section for upload.Open.
func (c *Config) UploadStore() upload.Config {
	s3 := c.Upload.S3
	return upload.Config{
		Driver: upload.Driver(c.Upload.Driver),
		Dir:    c.Upload.Dir,
		S3: upload.S3Config{
			Bucket:          s3.Bucket,
			Region:          s3.Region,
			Endpoint:        s3.Endpoint,
			PathStyle:       s3.PathStyle,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
			Prefix:          s3.Prefix,
		},
	}
}
