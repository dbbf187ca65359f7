package config

import (
	"fmt"
	"os"
)

// R2Config holds the S3-compatible storage credentials, read from the
// environment like the API key.
type R2Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	BucketName      string
	Prefix          string
	Region          string
}

// LoadR2Config reads the S3 storage configuration from environment
// variables. Credentials are secrets and never live in the setup file.
func LoadR2Config() (*R2Config, error) {
	cfg := &R2Config{
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		BucketName:      os.Getenv("S3_BUCKET_NAME"),
		Prefix:          os.Getenv("S3_PREFIX"),
		Region:          os.Getenv("S3_REGION"),
	}

	// For Cloudflare R2 the region is irrelevant but the SDK wants one.
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	var missing []string
	if cfg.AccessKeyID == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if cfg.SecretAccessKey == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	if cfg.Endpoint == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if cfg.BucketName == "" {
		missing = append(missing, "S3_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}
