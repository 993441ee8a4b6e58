package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

const (
	// APIKeyPrefix is the prefix for all Crewdeck API keys.
	APIKeyPrefix = "cwd_"
	// APIKeyLength is the expected length of the hex portion of the API key.
	APIKeyLength = 64 // 32 bytes = 64 hex chars
)

// UserStore defines the interface for user lookup by API key hash.
type UserStore interface {
	GetUserByAPIKeyHash(ctx context.Context, hash string) (*models.User, error)
}

// APIKeyValidator validates API keys and retrieves associated users.
type APIKeyValidator struct {
	store  UserStore
	logger zerolog.Logger
}

// NewAPIKeyValidator creates a new API key validator.
func NewAPIKeyValidator(store UserStore, logger zerolog.Logger) *APIKeyValidator {
	return &APIKeyValidator{
		store:  store,
		logger: logger.With().Str("component", "apikey_validator").Logger(),
	}
}

// ValidateAPIKey validates an API key and returns the associated user.
// Returns nil if the key is invalid or not found.
func (v *APIKeyValidator) ValidateAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if !IsValidAPIKeyFormat(apiKey) {
		v.logger.Debug().Msg("invalid API key format")
		return nil, nil
	}

	user, err := v.store.GetUserByAPIKeyHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		v.logger.Debug().Err(err).Msg("user not found for API key")
		return nil, nil
	}

	return user, nil
}

// GenerateAPIKey generates a new API key with the Crewdeck prefix.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return APIKeyPrefix + hex.EncodeToString(bytes), nil
}

// IsValidAPIKeyFormat checks if the API key has the correct format.
func IsValidAPIKeyFormat(apiKey string) bool {
	if !strings.HasPrefix(apiKey, APIKeyPrefix) {
		return false
	}
	hexPart := strings.TrimPrefix(apiKey, APIKeyPrefix)
	if len(hexPart) != APIKeyLength {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

// ExtractBearerToken pulls the token out of an Authorization header value.
// Returns "" when the header is not a bearer credential.
func ExtractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// HashAPIKey creates a SHA-256 hash of an API key for storage/comparison.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
