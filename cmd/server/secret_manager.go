package main

import (
	"context"
	"fmt"

	"github.com/kevin07696/chit-service/internal/adapters/secrets"
	"github.com/kevin07696/chit-service/internal/config"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"go.uber.org/zap"
)

// initSecretManager builds the backend named by SECRET_MANAGER:
//   - local: environment variables, then files under LOCAL_SECRETS_PATH
//   - aws: AWS Secrets Manager in AWS_REGION
//   - vault: HashiCorp Vault KV v2 at VAULT_ADDR
func initSecretManager(ctx context.Context, cfg *config.SecretsConfig, logger *zap.Logger) (ports.SecretManager, error) {
	switch cfg.Backend {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		awsCfg.Endpoint = cfg.AWSEndpoint
		awsCfg.CacheTTL = cfg.CacheTTL
		return secrets.NewAWSSecretsManager(ctx, awsCfg, logger.Named("secrets"))

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.AuthMethod = cfg.VaultAuthMethod
		vaultCfg.Token = cfg.VaultToken
		vaultCfg.RoleID = cfg.VaultRoleID
		vaultCfg.SecretID = cfg.VaultSecretID
		vaultCfg.MountPath = cfg.VaultMountPath
		vaultCfg.Namespace = cfg.VaultNamespace
		vaultCfg.CacheTTL = cfg.CacheTTL
		return secrets.NewVaultSecretManager(ctx, vaultCfg, logger.Named("secrets"))

	case "local":
		logger.Warn("Using local secret manager; do not use in production",
			zap.String("path", cfg.LocalPath),
		)
		return secrets.NewLocalSecretManager(cfg.LocalPath, logger.Named("secrets")), nil
	}
	return nil, fmt.Errorf("unknown secret manager %q", cfg.Backend)
}

// resolveGatewaySecret prefers GATEWAY_KEY_SECRET and otherwise reads the
// secret manager at the configured path
func resolveGatewaySecret(ctx context.Context, cfg *config.GatewayConfig, sm ports.SecretManager, logger *zap.Logger) (string, error) {
	if cfg.KeySecret != "" {
		return cfg.KeySecret, nil
	}

	secret, err := sm.GetSecret(ctx, cfg.SecretPath)
	if err != nil {
		return "", fmt.Errorf("load gateway key secret from %s: %w", cfg.SecretPath, err)
	}
	logger.Info("Gateway key secret loaded",
		zap.String("path", cfg.SecretPath),
		zap.String("version", secret.Version),
	)
	return secret.Value, nil
}
