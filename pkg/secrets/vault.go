package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shoe-uugan/ai-chat/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrVaultDisabled  = errors.New("vault integration is disabled")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultConfig holds configuration for the Vault client
type VaultConfig struct {
	Address     string
	Token       string
	Namespace   string
	Timeout     time.Duration
	SecretsPath string
	Enabled     bool
}

// Manager resolves application secrets (Gemini API key, JWT secret)
// from HashiCorp Vault with an environment-variable fallback.
type Manager struct {
	client   *vault.Client
	config   VaultConfig
	cache    map[string]string
	mu       sync.RWMutex
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewManager creates a new secrets manager from environment configuration
func NewManager(log *logger.Logger) (*Manager, error) {
	config := VaultConfig{
		Address:     os.Getenv("VAULT_ADDR"),
		Token:       os.Getenv("VAULT_TOKEN"),
		Namespace:   os.Getenv("VAULT_NAMESPACE"),
		SecretsPath: os.Getenv("VAULT_SECRETS_PATH"),
		Enabled:     true,
		Timeout:     10 * time.Second,
	}

	if enabled := os.Getenv("VAULT_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			config.Enabled = v
		}
	}
	if config.Address == "" || config.Token == "" {
		config.Enabled = false
	}
	if config.SecretsPath == "" {
		config.SecretsPath = "secret/data/ai-chat"
	}

	m := &Manager{
		config:   config,
		cache:    make(map[string]string),
		log:      log,
		cacheTTL: 5 * time.Minute,
	}

	if !config.Enabled {
		log.Info("Vault integration disabled, falling back to environment variables")
		return m, nil
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	m.client = client
	return m, nil
}

// Get resolves a secret by key. Vault is consulted first when enabled;
// the environment variable of the same name is the fallback.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if v, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	if m.config.Enabled {
		value, err := m.readFromVault(ctx, key)
		if err == nil {
			m.mu.Lock()
			m.cache[key] = value
			m.mu.Unlock()
			return value, nil
		}
		m.log.Warn("Vault lookup failed, falling back to environment", "key", key, "error", err.Error())
	}

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	return "", ErrSecretNotFound
}

func (m *Manager) readFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.Logical().ReadWithContext(ctx, m.config.SecretsPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secrets from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	// KV v2 nests the payload under "data"
	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = nested
	}

	value, ok := data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}

	return value, nil
}
