package photos

import (
	"errors"
	"fmt"

	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
)

// Config holds the S3 configuration for listing photo storage
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // CDN or bucket base URL for serving photos
}

// LoadConfig loads the photo storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-central-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required for photo storage")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required for photo storage")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required for photo storage")
	}

	return config, nil
}

// ObjectKey generates a standardized S3 object key for a listing photo.
// Format: properties/YYYY/MM/UUID[_variant].jpg
func (c *Config) ObjectKey(photoUUID, variant string, year, month int) string {
	if variant != "" {
		return fmt.Sprintf("properties/%04d/%02d/%s_%s.jpg", year, month, photoUUID, variant)
	}
	return fmt.Sprintf("properties/%04d/%02d/%s.jpg", year, month, photoUUID)
}

// PublicURL returns the serving URL for an object key.
func (c *Config) PublicURL(objectKey string) string {
	base := c.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.BucketName, c.Region)
	}
	return base + "/" + objectKey
}
