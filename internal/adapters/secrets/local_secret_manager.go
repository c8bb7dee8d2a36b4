package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevin07696/chit-service/internal/domain/ports"
	"go.uber.org/zap"
)

// LocalSecretManager implements ports.SecretManager over environment
// variables and files under a base directory.
// WARNING: development only. Use AWS Secrets Manager or Vault in production.
type LocalSecretManager struct {
	basePath string
	logger   *zap.Logger
}

var _ ports.SecretManager = (*LocalSecretManager)(nil)

// NewLocalSecretManager creates a local secret manager rooted at basePath
func NewLocalSecretManager(basePath string, logger *zap.Logger) *LocalSecretManager {
	return &LocalSecretManager{basePath: basePath, logger: logger}
}

// EnvKey maps a secret path to its environment variable,
// e.g. "chit-service/gateway/key-secret" to "CHIT_SERVICE_GATEWAY_KEY_SECRET"
func EnvKey(secretPath string) string {
	return strings.ToUpper(strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(secretPath))
}

type localSecretFile struct {
	Value     string            `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
}

// GetSecret checks the environment first, then the file at basePath/secretPath.
// Files may hold plain text or {"value", "tags", "created_at"} JSON.
func (m *LocalSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	if v, ok := os.LookupEnv(EnvKey(secretPath)); ok && v != "" {
		return &ports.Secret{Value: v, Version: "env"}, nil
	}

	if m.basePath == "" {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretPath)
	}
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Reading secret from filesystem", zap.String("path", secretPath))
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var file localSecretFile
	if err := json.Unmarshal(data, &file); err == nil && file.Value != "" {
		return &ports.Secret{
			Value:     file.Value,
			Version:   "v1",
			Metadata:  file.Tags,
			CreatedAt: file.CreatedAt,
		}, nil
	}

	return &ports.Secret{Value: strings.TrimSpace(string(data)), Version: "v1"}, nil
}

// PutSecret stores the secret as JSON with 0600 permissions
func (m *LocalSecretManager) PutSecret(ctx context.Context, secretPath, value string, tags map[string]string) (string, error) {
	if m.basePath == "" {
		return "", fmt.Errorf("local secret manager has no base path")
	}
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(localSecretFile{
		Value:     value,
		Tags:      tags,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write secret: %w", err)
	}

	m.logger.Info("Secret stored to filesystem", zap.String("path", secretPath))
	return "v1", nil
}

// resolve keeps secretPath inside basePath
func (m *LocalSecretManager) resolve(secretPath string) (string, error) {
	clean := filepath.Clean("/" + secretPath)
	if clean == "/" {
		return "", fmt.Errorf("invalid secret path %q", secretPath)
	}
	return filepath.Join(m.basePath, clean), nil
}
