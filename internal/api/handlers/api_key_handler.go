package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	apiContext "pagehook/internal/api/context"
	"pagehook/internal/api/middleware"
	"pagehook/internal/pkg/errors"
	"pagehook/internal/platform/auth"
	"pagehook/internal/platform/database"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

type APIKeyHandler struct {
	// API keys live in the global DB so the auth middleware can resolve
	// them before tenant context exists.
	db *database.GlobalDB
}

func NewAPIKeyHandler(db *database.GlobalDB) *APIKeyHandler {
	return &APIKeyHandler{db: db}
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req struct {
		Name          string   `json:"name"`
		Scopes        []string `json:"scopes"`
		ExpiresInDays int      `json:"expires_in_days"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	rawKey := fmt.Sprintf("phk_live_%s", uuid.New().String())
	keyPrefix := rawKey[:12] + "..."

	apiKey := &models.APIKey{
		OrganizationID: claims.OrganizationID,
		UserID:         claims.UserID,
		Name:           req.Name,
		KeyHash:        middleware.HashAPIKey(rawKey),
		KeyPrefix:      keyPrefix,
		Scopes:         req.Scopes,
	}

	if req.ExpiresInDays > 0 {
		exp := time.Now().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour).Unix()
		apiKey.ExpiresAt = &exp
	}

	repo := repositories.NewAPIKeyRepository(h.db.DB)
	if err := repo.Create(apiKey); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create api key", nil)
		return
	}

	// Return the raw key only once
	response := struct {
		ID        string   `json:"id"`
		Key       string   `json:"key"`
		Name      string   `json:"name"`
		Scopes    []string `json:"scopes"`
		CreatedAt int64    `json:"created_at"`
	}{
		ID:        apiKey.ID,
		Key:       rawKey,
		Name:      apiKey.Name,
		Scopes:    apiKey.Scopes,
		CreatedAt: apiKey.CreatedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	repo := repositories.NewAPIKeyRepository(h.db.DB)
	keys, err := repo.ListByOrg(claims.OrganizationID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if keys == nil {
		keys = []*models.APIKey{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(keys)
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	keyID := paramsFrom(r).ByName("key_id")

	repo := repositories.NewAPIKeyRepository(h.db.DB)
	if err := repo.Revoke(keyID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to revoke api key", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
