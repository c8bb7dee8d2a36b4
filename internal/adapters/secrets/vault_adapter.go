package secrets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for the HashiCorp Vault adapter
type VaultConfig struct {
	Address    string
	AuthMethod string // "token" or "approle"

	Token    string
	RoleID   string
	SecretID string

	Namespace string // Vault Enterprise
	MountPath string // KV mount, default "secret"
	KVVersion string // "v1" or "v2"

	CacheTTL      time.Duration
	EnableCache   bool
	TLSSkipVerify bool
}

// DefaultVaultConfig returns default configuration for the Vault adapter
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		AuthMethod:  "token",
		MountPath:   "secret",
		KVVersion:   "v2",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

// VaultSecretManager implements ports.SecretManager over a Vault KV engine.
// Secrets are stored under the "value" key; other string keys become metadata.
type VaultSecretManager struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
	cache  *secretCache
}

var _ ports.SecretManager = (*VaultSecretManager)(nil)

// NewVaultSecretManager creates and authenticates a Vault client
func NewVaultSecretManager(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (*VaultSecretManager, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}
	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return &VaultSecretManager{
		client: client,
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

// GetSecret reads path from the KV engine, e.g. "chit-service/gateway"
func (a *VaultSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		a.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	start := time.Now()
	kv, err := a.read(ctx, path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		a.logger.Error("Failed to retrieve secret from Vault", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if kv == nil || kv.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}

	value, ok := kv.Data["value"].(string)
	if !ok || value == "" {
		return nil, fmt.Errorf("secret %s has no value", path)
	}

	secret := &ports.Secret{
		Value:    value,
		Version:  "1",
		Metadata: make(map[string]string),
	}
	if kv.VersionMetadata != nil {
		secret.Version = strconv.Itoa(kv.VersionMetadata.Version)
		secret.CreatedAt = kv.VersionMetadata.CreatedTime.UTC().Format(time.RFC3339)
	}
	for k, v := range kv.Data {
		if s, ok := v.(string); ok && k != "value" {
			secret.Metadata[k] = s
		}
	}

	a.logger.Info("Secret retrieved from Vault",
		zap.String("path", path),
		zap.String("version", secret.Version),
		zap.Duration("elapsed", time.Since(start)),
	)
	a.cache.set(path, secret)
	return secret, nil
}

// PutSecret writes value and metadata and returns the new version
func (a *VaultSecretManager) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	defer a.cache.invalidate(path)

	data := map[string]interface{}{"value": value}
	for k, v := range metadata {
		data[k] = v
	}

	version := "1"
	if a.config.KVVersion == "v1" {
		if err := a.client.KVv1(a.config.MountPath).Put(ctx, path, data); err != nil {
			return "", fmt.Errorf("failed to write secret: %w", err)
		}
	} else {
		kv, err := a.client.KVv2(a.config.MountPath).Put(ctx, path, data)
		if err != nil {
			return "", fmt.Errorf("failed to write secret: %w", err)
		}
		if kv != nil && kv.VersionMetadata != nil {
			version = strconv.Itoa(kv.VersionMetadata.Version)
		}
	}

	a.logger.Info("Secret written to Vault", zap.String("path", path), zap.String("version", version))
	return version, nil
}

func (a *VaultSecretManager) read(ctx context.Context, path string) (*vault.KVSecret, error) {
	if a.config.KVVersion == "v1" {
		return a.client.KVv1(a.config.MountPath).Get(ctx, path)
	}
	return a.client.KVv2(a.config.MountPath).Get(ctx, path)
}
