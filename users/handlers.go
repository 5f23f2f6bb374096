package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fabritrack/apperr"
	"fabritrack/models"
	"fabritrack/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Service owns user registration and admin account management.
type Service struct {
	Store         Store
	ManagerSecret string
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	ManagerCode string `json:"managerCode"`
	Password    string `json:"password"`
}

// Register creates an account, or returns the existing one unchanged
// when the email is already registered. Manager role is granted only
// with the configured invite code; everyone else becomes a buyer.
// Buyers start active; managers wait for admin approval.
func (s *Service) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Email required"))
		return
	}

	existing, err := s.Store.FindByEmail(r.Context(), req.Email)
	if err == nil {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"message": "User already exists",
			"user":    existing,
		})
		return
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.NotFound {
		utils.RespondAppError(w, err)
		return
	}

	role := models.RoleBuyer
	status := models.StatusActive
	if req.Role == models.RoleManager && s.ManagerSecret != "" && req.ManagerCode == s.ManagerSecret {
		role = models.RoleManager
		status = models.StatusPending
	}

	user := &models.User{
		Email:     req.Email,
		Name:      req.Name,
		Role:      role,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if user.Name == "" {
		user.Name = "N/A"
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		user.PasswordHash = string(hash)
	}

	id, err := s.Store.Insert(r.Context(), user)
	if apperr.KindOf(err) == apperr.Conflict {
		// Lost a race with a concurrent register for the same email;
		// the unique index caught it. Same idempotent answer as the
		// up-front check.
		existing, ferr := s.Store.FindByEmail(r.Context(), req.Email)
		if ferr != nil {
			utils.RespondAppError(w, ferr)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"message": "User already exists",
			"user":    existing,
		})
		return
	}
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	user.ID = id

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"user":    user,
	})
}

// ListUsers returns every account. Admin only, enforced at the route.
func (s *Service) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := s.Store.ListAll(r.Context())
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// UpdateStatus approves or suspends an account. Admin only.
func (s *Service) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid user id"))
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}
	if req.Status != models.StatusActive && req.Status != models.StatusSuspended {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid status"))
		return
	}

	matched, err := s.Store.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if !matched {
		utils.RespondAppError(w, apperr.New(apperr.NotFound, "User not found"))
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
