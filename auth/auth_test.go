package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fabritrack/apperr"
	"fabritrack/middleware"
	"fabritrack/models"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users map[string]*models.User
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return u, nil
}

func (f *fakeUserStore) Insert(context.Context, *models.User) (primitive.ObjectID, error) {
	return primitive.NilObjectID, nil
}

func (f *fakeUserStore) SetStatus(context.Context, primitive.ObjectID, string) (bool, error) {
	return false, nil
}

func (f *fakeUserStore) ListAll(context.Context) ([]models.User, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *fakeUserStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	store := &fakeUserStore{users: map[string]*models.User{
		"buyer@shop.test": {Email: "buyer@shop.test", Role: models.RoleBuyer, Status: models.StatusActive},
		"pw@shop.test": {
			Email: "pw@shop.test", Role: models.RoleManager, Status: models.StatusActive,
			PasswordHash: string(hash),
		},
	}}
	guard := &middleware.Guard{Secret: []byte("test-secret"), Users: store}
	return &Service{Users: store, Guard: guard}, store
}

func issue(t *testing.T, svc *Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/users/jwt", strings.NewReader(body))
	rec := httptest.NewRecorder()
	svc.IssueToken(rec, req, nil)
	return rec
}

func TestIssueTokenCarriesIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	rec := issue(t, svc, `{"email":"buyer@shop.test"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token  string `json:"token"`
		Role   string `json:"role"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Role != models.RoleBuyer || resp.Status != models.StatusActive {
		t.Errorf("role/status = %s/%s", resp.Role, resp.Status)
	}

	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Email != "buyer@shop.test" || claims.Role != models.RoleBuyer {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ExpiresAt == nil {
		t.Error("token has no expiry")
	}
}

func TestIssueTokenUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	rec := issue(t, svc, `{"email":"ghost@shop.test"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestIssueTokenPasswordChecked(t *testing.T) {
	svc, _ := newTestService(t)

	rec := issue(t, svc, `{"email":"pw@shop.test","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: %d, want 401", rec.Code)
	}

	rec = issue(t, svc, `{"email":"pw@shop.test","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("right password: %d, body %s", rec.Code, rec.Body.String())
	}

	// passwordless account ignores a supplied password
	rec = issue(t, svc, `{"email":"buyer@shop.test","password":"anything"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("legacy account: %d", rec.Code)
	}
}
