package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., gateway key secret)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManager defines the port for reading secrets from a secret
// management service. Backends: AWS Secrets Manager, HashiCorp Vault and
// local environment/files for development.
type SecretManager interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - AWS: "chit-service/gateway/key-secret"
	//   - Vault: "secret/data/chit-service/gateway"
	//   - Local: file under the base path, or env var name
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret and returns the new version
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)
}
