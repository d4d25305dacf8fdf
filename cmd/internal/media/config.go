package media

import (
	"errors"
	"os"
	"strings"
	"time"
)

// ErrConfig reports invalid or incomplete media storage configuration.
var ErrConfig = errors.New("media: invalid config")

// Config describes the S3-compatible object store used for profile
// image uploads. The service runs fine without it; handlers return 503
// for upload endpoints when Enabled is false.
type Config struct {
	Enabled bool

	Region          string
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL is the URL prefix clients use to fetch uploaded
	// objects (CDN or bucket website endpoint).
	PublicBaseURL string

	PresignTTL time.Duration
}

// DefaultConfig returns a disabled media config.
func DefaultConfig() Config {
	return Config{PresignTTL: 15 * time.Minute}
}

// LoadConfigFromEnv reads VIDTUBE_S3_* variables. Media storage is
// enabled only when a bucket is configured; a bucket without complete
// credentials or a public base URL is a startup error.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.Bucket = strings.TrimSpace(os.Getenv("VIDTUBE_S3_BUCKET"))
	if cfg.Bucket == "" {
		return cfg, nil
	}
	cfg.Enabled = true

	cfg.Region = strings.TrimSpace(os.Getenv("VIDTUBE_S3_REGION"))
	cfg.Endpoint = strings.TrimSpace(os.Getenv("VIDTUBE_S3_ENDPOINT"))
	cfg.AccessKeyID = strings.TrimSpace(os.Getenv("VIDTUBE_S3_ACCESS_KEY_ID"))
	cfg.SecretAccessKey = strings.TrimSpace(os.Getenv("VIDTUBE_S3_SECRET_ACCESS_KEY"))
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("VIDTUBE_S3_PUBLIC_BASE_URL")), "/")

	if v := strings.TrimSpace(os.Getenv("VIDTUBE_S3_PRESIGN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, ErrConfig
		}
		cfg.PresignTTL = d
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Region == "" || c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return ErrConfig
	}
	if c.PublicBaseURL == "" {
		return ErrConfig
	}
	if c.PresignTTL <= 0 {
		return ErrConfig
	}
	return nil
}
