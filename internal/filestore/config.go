package filestore

import (
	"strings"

	"github.com/koustreak/dbscope/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
	ProviderLocal Provider = "local"
)

// Config holds all settings needed to reach a snapshot store.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO. Unused by ProviderLocal.
	Endpoint string

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used when a missing bucket has to be created.
	// Leave empty for MinIO.
	Region string

	// Root is the directory ProviderLocal keeps its buckets in.
	Root string
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
	}
}

// LocalConfig returns a config for a directory-backed store.
func LocalConfig(root string) *Config {
	return &Config{Provider: ProviderLocal, Root: root}
}

// Validate reports missing settings for the configured provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMinIO:
		if strings.TrimSpace(c.Endpoint) == "" {
			return errs.New(errs.ErrKindInvalidInput, "filestore: minio endpoint is required")
		}
	case ProviderLocal:
		if strings.TrimSpace(c.Root) == "" {
			return errs.New(errs.ErrKindInvalidInput, "filestore: local root directory is required")
		}
	default:
		return errs.Newf(errs.ErrKindUnsupported, "filestore: unknown provider %q", c.Provider)
	}
	return nil
}
