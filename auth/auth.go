package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"fabritrack/apperr"
	"fabritrack/middleware"
	"fabritrack/users"
	"fabritrack/utils"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

// Service issues the signed bearer credential for a registered account.
type Service struct {
	Users users.Store
	Guard *middleware.Guard
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IssueToken signs a 7-day credential for the account. Accounts
// registered with a password must present it; legacy accounts without
// one authenticate by email alone.
func (s *Service) IssueToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.Users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.Unauthenticated, "User not found"))
		return
	}

	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			utils.RespondAppError(w, apperr.New(apperr.Unauthenticated, "Invalid credentials"))
			return
		}
	}

	token, err := s.Guard.SignToken(user.Email, user.Role)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":  token,
		"role":   user.Role,
		"status": user.Status,
	})
}
