package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	secretsmanagertypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"go.uber.org/zap"
)

// AWSSecretsManagerConfig contains configuration for the AWS Secrets Manager adapter
type AWSSecretsManagerConfig struct {
	Region   string
	Profile  string // shared config profile for local development
	Endpoint string // custom endpoint, e.g. LocalStack

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultAWSSecretsManagerConfig returns default configuration
func DefaultAWSSecretsManagerConfig(region string) *AWSSecretsManagerConfig {
	return &AWSSecretsManagerConfig{
		Region:      region,
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

// secretsManagerAPI is the subset of *secretsmanager.Client the adapter calls
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// AWSSecretsManager implements ports.SecretManager for AWS Secrets Manager
type AWSSecretsManager struct {
	client secretsManagerAPI
	logger *zap.Logger
	cache  *secretCache
}

var _ ports.SecretManager = (*AWSSecretsManager)(nil)

// NewAWSSecretsManager loads the default AWS credential chain and creates the adapter
func NewAWSSecretsManager(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (*AWSSecretsManager, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager adapter initialized",
		zap.String("region", cfg.Region),
		zap.Bool("cache_enabled", cfg.EnableCache),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	return newAWSSecretsManager(secretsmanager.NewFromConfig(awsConfig, clientOptions...), cfg, logger), nil
}

func newAWSSecretsManager(client secretsManagerAPI, cfg *AWSSecretsManagerConfig, logger *zap.Logger) *AWSSecretsManager {
	return &AWSSecretsManager{
		client: client,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}
}

// GetSecret retrieves a secret by name or ARN, e.g. "chit-service/gateway/key-secret"
func (a *AWSSecretsManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		a.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	start := time.Now()
	out, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		var notFound *secretsmanagertypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		a.logger.Error("Failed to retrieve secret from AWS", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to get secret value: %w", err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", path)
	}

	secret := &ports.Secret{
		Value:    aws.ToString(out.SecretString),
		Version:  aws.ToString(out.VersionId),
		Metadata: map[string]string{"name": aws.ToString(out.Name)},
	}
	if out.CreatedDate != nil {
		secret.CreatedAt = out.CreatedDate.UTC().Format(time.RFC3339)
	}

	a.logger.Info("Secret retrieved from AWS",
		zap.String("path", path),
		zap.String("version", secret.Version),
		zap.Duration("elapsed", time.Since(start)),
	)
	a.cache.set(path, secret)
	return secret, nil
}

// PutSecret writes a new version, creating the secret with tags on first write
func (a *AWSSecretsManager) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	defer a.cache.invalidate(path)

	out, err := a.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(path),
		SecretString: aws.String(value),
	})
	if err == nil {
		a.logger.Info("Secret version written", zap.String("path", path))
		return aws.ToString(out.VersionId), nil
	}

	var notFound *secretsmanagertypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("failed to put secret value: %w", err)
	}

	tags := make([]secretsmanagertypes.Tag, 0, len(metadata))
	for k, v := range metadata {
		tags = append(tags, secretsmanagertypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	created, err := a.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(path),
		SecretString: aws.String(value),
		Tags:         tags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create secret: %w", err)
	}

	a.logger.Info("Secret created", zap.String("path", path))
	return aws.ToString(created.VersionId), nil
}
