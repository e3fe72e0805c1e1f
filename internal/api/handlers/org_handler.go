package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	apiContext "pagehook/internal/api/context"
	"pagehook/internal/api/middleware"
	"pagehook/internal/pkg/errors"
	"pagehook/internal/pkg/validator"
	"pagehook/internal/platform/auth"
	"pagehook/internal/platform/database"
	"pagehook/internal/platform/models"
	"pagehook/internal/platform/repositories"
)

type OrgHandler struct {
	orgRepo  *repositories.OrganizationRepository
	userRepo *repositories.UserRepository
	tokenSvc *auth.TokenService
	dbPool   *database.TenantDBPool
}

func NewOrgHandler(orgRepo *repositories.OrganizationRepository, userRepo *repositories.UserRepository, tokenSvc *auth.TokenService, dbPool *database.TenantDBPool) *OrgHandler {
	return &OrgHandler{
		orgRepo:  orgRepo,
		userRepo: userRepo,
		tokenSvc: tokenSvc,
		dbPool:   dbPool,
	}
}

func (h *OrgHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	tenant := r.Context().Value(apiContext.Tenant).(*middleware.TenantContext)

	org, err := h.orgRepo.GetByID(tenant.OrgID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(org)
}

type UpdateOrgRequest struct {
	Name string `json:"name"`
}

func (h *OrgHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant := r.Context().Value(apiContext.Tenant).(*middleware.TenantContext)

	var req UpdateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Name is required", nil)
		return
	}

	if err := h.orgRepo.UpdateName(tenant.OrgID, req.Name); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update organization", nil)
		return
	}

	org, err := h.orgRepo.GetByID(tenant.OrgID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(org)
}

type CreateOrgRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Domain   string `json:"domain"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type CreateOrgResponse struct {
	Organization *models.Organization `json:"organization"`
	User         *models.User         `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := validator.IsCorporateEmail(req.Email); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}
	if req.Slug == "" || req.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Name and slug are required", nil)
		return
	}

	existing, err := h.orgRepo.GetBySlug(req.Slug)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if existing != nil {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Slug already in use", nil)
		return
	}

	org := &models.Organization{
		ID:          "org_" + uuid.NewString(),
		Slug:        req.Slug,
		Name:        req.Name,
		Domain:      req.Domain,
		DBFilePath:  "./dbs/" + req.Slug + ".db",
		PlanTier:    "enterprise",
		MemberQuota: 100,
		CreatedAt:   time.Now().Unix(),
		UpdatedAt:   time.Now().Unix(),
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to hash password", nil)
		return
	}

	user := &models.User{
		ID:             "usr_" + uuid.NewString(),
		OrganizationID: org.ID,
		Email:          req.Email,
		EmailVerified:  false,
		PasswordHash:   string(hashedPassword),
		FullName:       req.FullName,
		Role:           "owner",
		CreatedAt:      time.Now().Unix(),
		UpdatedAt:      time.Now().Unix(),
	}

	tx, err := h.orgRepo.BeginTx()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	defer tx.Rollback()

	if err := h.orgRepo.CreateTx(tx, org); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create organization", nil)
		return
	}

	if err := h.userRepo.CreateTx(tx, user); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create user", nil)
		return
	}

	if err := tx.Commit(); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}

	// Bootstrap the tenant database file with the webhook schema. Done
	// synchronously so the first authenticated request finds it ready.
	if err := os.MkdirAll(filepath.Dir(org.DBFilePath), 0755); err != nil {
		log.Error().Err(err).Str("org_id", org.ID).Msg("Failed to create tenant db directory")
	} else if db, err := h.dbPool.Get(org.ID, org.DBFilePath); err != nil {
		log.Error().Err(err).Str("org_id", org.ID).Msg("Failed to open tenant db")
	} else if err := database.MigrateTenant(db); err != nil {
		log.Error().Err(err).Str("org_id", org.ID).Msg("Failed to migrate tenant db")
	}

	accessToken, err := h.tokenSvc.GenerateAccessToken(user.ID, user.OrganizationID, user.Role, user.Email)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	refreshToken, err := h.tokenSvc.GenerateRefreshToken(user.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateOrgResponse{
		Organization: org,
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

type InviteHandler struct {
	inviteRepo *repositories.InviteRepository
}

func NewInviteHandler(inviteRepo *repositories.InviteRepository) *InviteHandler {
	return &InviteHandler{inviteRepo: inviteRepo}
}

type CreateInviteRequest struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	MaxUses        int    `json:"max_uses"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := r.Context().Value(apiContext.Tenant).(*middleware.TenantContext)
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}
	if req.MaxUses <= 0 {
		req.MaxUses = 1
	}
	if req.ExpiresInHours <= 0 {
		req.ExpiresInHours = 72
	}

	invite := &models.Invite{
		ID:             "inv_" + uuid.NewString(),
		OrganizationID: tenant.OrgID,
		Code:           "PGH-" + uuid.NewString()[:18],
		Email:          req.Email,
		Role:           req.Role,
		InvitedBy:      claims.UserID,
		Status:         "pending",
		MaxUses:        req.MaxUses,
		CurrentUses:    0,
		ExpiresAt:      time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour).Unix(),
		CreatedAt:      time.Now().Unix(),
		UpdatedAt:      time.Now().Unix(),
	}

	if err := h.inviteRepo.Create(invite); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create invite", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(invite)
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := r.Context().Value(apiContext.Tenant).(*middleware.TenantContext)

	invites, err := h.inviteRepo.ListByOrg(tenant.OrgID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if invites == nil {
		invites = []*models.Invite{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invites)
}

func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	if err := h.inviteRepo.Revoke(params.ByName("invite_id")); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to revoke invite", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
