package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/shamank/rpc-gateway/internal/adapters/ports"
	"github.com/shamank/rpc-gateway/internal/adapters/secrets"
	"go.uber.org/zap"
)

// initSecretManager initializes the secret manager backend selected by
// SECRET_MANAGER. Supports:
//   - AWS Secrets Manager (production): SECRET_MANAGER=aws, AWS_REGION
//   - HashiCorp Vault (enterprise): SECRET_MANAGER=vault, VAULT_ADDR
//   - Local file-based (development): SECRET_MANAGER=local, LOCAL_SECRETS_BASE_PATH
//
// Returns nil when SECRET_MANAGER is unset: the treasury address and cron
// secret are then taken from their plain environment variables instead, the
// way a local or CI deployment has no secret store to reach.
func initSecretManager(ctx context.Context, logger *zap.Logger) ports.SecretManagerAdapter {
	secretManagerType := getEnv("SECRET_MANAGER", "")
	if secretManagerType == "" {
		return nil
	}

	switch secretManagerType {
	case "aws":
		return initAWSSecretsManager(ctx, logger)
	case "vault":
		return initVaultAdapter(ctx, logger)
	case "local":
		return initLocalSecretManager(logger)
	default:
		logger.Fatal("unknown SECRET_MANAGER type", zap.String("secret_manager", secretManagerType))
		return nil
	}
}

func initAWSSecretsManager(ctx context.Context, logger *zap.Logger) ports.SecretManagerAdapter {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		logger.Fatal("AWS_REGION is required when SECRET_MANAGER=aws")
	}

	cfg := secrets.DefaultAWSSecretsManagerConfig(region)
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		cfg.Profile = profile
	}
	if endpoint := os.Getenv("AWS_SECRETS_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if ttl := getEnvDuration("SECRET_CACHE_TTL_MINUTES", 5); ttl > 0 {
		cfg.CacheTTL = ttl
	}

	sm, err := secrets.NewAWSSecretsManagerAdapter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize AWS Secrets Manager", zap.Error(err), zap.String("region", region))
	}
	logger.Info("AWS Secrets Manager initialized", zap.String("region", region))
	return sm
}

func initVaultAdapter(ctx context.Context, logger *zap.Logger) ports.SecretManagerAdapter {
	vaultAddr := os.Getenv("VAULT_ADDR")
	if vaultAddr == "" {
		logger.Fatal("VAULT_ADDR is required when SECRET_MANAGER=vault")
	}

	cfg := secrets.DefaultVaultConfig(vaultAddr)
	cfg.AuthMethod = getEnv("VAULT_AUTH_METHOD", "token")

	switch cfg.AuthMethod {
	case "token":
		cfg.Token = os.Getenv("VAULT_TOKEN")
		if cfg.Token == "" {
			logger.Fatal("VAULT_TOKEN is required for token authentication")
		}
	case "approle":
		cfg.RoleID = os.Getenv("VAULT_ROLE_ID")
		cfg.SecretID = os.Getenv("VAULT_SECRET_ID")
		if cfg.RoleID == "" || cfg.SecretID == "" {
			logger.Fatal("VAULT_ROLE_ID and VAULT_SECRET_ID are required for approle authentication")
		}
	case "kubernetes":
		cfg.K8sRole = os.Getenv("VAULT_K8S_ROLE")
		if cfg.K8sRole == "" {
			logger.Fatal("VAULT_K8S_ROLE is required for kubernetes authentication")
		}
		cfg.K8sTokenPath = getEnv("VAULT_K8S_TOKEN_PATH", "/var/run/secrets/kubernetes.io/serviceaccount/token")
	}

	if namespace := os.Getenv("VAULT_NAMESPACE"); namespace != "" {
		cfg.Namespace = namespace
	}
	if mountPath := os.Getenv("VAULT_MOUNT_PATH"); mountPath != "" {
		cfg.MountPath = mountPath
	}
	cfg.KVVersion = getEnv("VAULT_KV_VERSION", "v2")
	if ttl := getEnvDuration("SECRET_CACHE_TTL_MINUTES", 5); ttl > 0 {
		cfg.CacheTTL = ttl
	}

	sm, err := secrets.NewVaultAdapter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize Vault adapter", zap.Error(err), zap.String("vault_addr", vaultAddr))
	}
	logger.Info("Vault adapter initialized", zap.String("vault_addr", vaultAddr), zap.String("auth_method", cfg.AuthMethod))
	return sm
}

func initLocalSecretManager(logger *zap.Logger) ports.SecretManagerAdapter {
	basePath := os.Getenv("LOCAL_SECRETS_BASE_PATH")
	if basePath == "" {
		logger.Fatal("LOCAL_SECRETS_BASE_PATH is required when SECRET_MANAGER=local")
	}
	logger.Warn("using local file-based secret manager, not for production use")
	return secrets.NewLocalSecretManager(basePath, logger)
}

// resolveSecret returns the secret at path from sm if sm is configured,
// falling back to envValue (the plain environment variable's value)
// otherwise. Lets the treasury address and cron secret come from a real
// secret store in production without requiring one in development.
func resolveSecret(ctx context.Context, sm ports.SecretManagerAdapter, path, envValue string, logger *zap.Logger) string {
	if sm == nil {
		return envValue
	}
	secret, err := sm.GetSecret(ctx, path)
	if err != nil {
		logger.Warn("failed to fetch secret, falling back to environment variable",
			zap.String("path", path), zap.Error(err))
		return envValue
	}
	return secret.Value
}

func getEnvDuration(key string, defaultMinutes int) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return time.Duration(defaultMinutes) * time.Minute
	}
	minutes, err := strconv.Atoi(valueStr)
	if err != nil {
		return time.Duration(defaultMinutes) * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}
