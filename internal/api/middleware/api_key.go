package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"pagehook/internal/platform/auth"
	"pagehook/internal/platform/repositories"
)

const apiKeyPrefix = "phk_"

var (
	errKeyNotFound = errors.New("api key not found")
	errKeyRevoked  = errors.New("api key revoked")
	errKeyExpired  = errors.New("api key expired")
)

// APIKeyAuthenticator resolves raw API keys against their stored SHA-256
// hashes and produces claims equivalent to a JWT login, so downstream
// middleware doesn't care which credential was presented.
type APIKeyAuthenticator struct {
	keys *repositories.APIKeyRepository
}

func NewAPIKeyAuthenticator(keys *repositories.APIKeyRepository) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{keys: keys}
}

func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (a *APIKeyAuthenticator) Authenticate(raw string) (*auth.Claims, error) {
	key, err := a.keys.GetByHash(HashAPIKey(raw))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errKeyNotFound
	}
	if key.RevokedAt != nil {
		return nil, errKeyRevoked
	}
	if key.ExpiresAt != nil && *key.ExpiresAt < time.Now().Unix() {
		return nil, errKeyExpired
	}

	// Best effort; a failed timestamp update must not fail the request.
	go a.keys.UpdateLastUsed(key.ID)

	return &auth.Claims{
		UserID:         key.UserID,
		OrganizationID: key.OrganizationID,
		Role:           "member",
		Scopes:         key.Scopes,
	}, nil
}
