// Package config – keyring.go resolves credentials through the secure
// storage chain: encrypted vault, OS keyring (Linux: Secret Service,
// macOS: Keychain, Windows: Credential Manager), then environment.
package config

import (
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "shellclaw"

	// KeyDiscordToken and KeyGeminiAPIKey name the two credentials the
	// process needs, in every storage backend.
	KeyDiscordToken = "discord_token"
	KeyGeminiAPIKey = "gemini_api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty when
// not found or the keyring is unavailable.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks whether the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__shellclaw_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveCredentials fills empty credential fields from the storage
// chain: vault first (prompting to unlock when one exists), then OS
// keyring. Values already present — from env or YAML — are kept.
func ResolveCredentials(cfg *Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	needToken := cfg.Discord.Token == ""
	needKey := cfg.Gemini.APIKey == ""
	if !needToken && !needKey {
		return
	}

	vault := NewVault(VaultFile)
	if vault.Exists() {
		password, err := ReadPassword("Vault password: ")
		if err != nil {
			logger.Warn("failed to read vault password", "error", err)
		} else if err := vault.Unlock(password); err != nil {
			logger.Warn("failed to unlock vault", "error", err)
		} else {
			if needToken {
				if val, err := vault.Get(KeyDiscordToken); err == nil && val != "" {
					cfg.Discord.Token = val
					needToken = false
					logger.Debug("discord token loaded from vault")
				}
			}
			if needKey {
				if val, err := vault.Get(KeyGeminiAPIKey); err == nil && val != "" {
					cfg.Gemini.APIKey = val
					needKey = false
					logger.Debug("gemini key loaded from vault")
				}
			}
			vault.Lock()
		}
	}

	if needToken {
		if val := GetKeyring(KeyDiscordToken); val != "" {
			cfg.Discord.Token = val
			logger.Debug("discord token loaded from OS keyring")
		}
	}
	if needKey {
		if val := GetKeyring(KeyGeminiAPIKey); val != "" {
			cfg.Gemini.APIKey = val
			logger.Debug("gemini key loaded from OS keyring")
		}
	}
}
