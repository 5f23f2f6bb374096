package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fabritrack/apperr"
	"fabritrack/models"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User

	// missLookups makes FindByEmail report NotFound n times even for
	// stored emails, mimicking a register that races another insert.
	missLookups int
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*models.User)}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missLookups > 0 {
		s.missLookups--
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	u, ok := s.users[email]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) Insert(_ context.Context, u *models.User) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return primitive.NilObjectID, apperr.New(apperr.Conflict, "Email already registered")
	}
	id := primitive.NewObjectID()
	cp := *u
	cp.ID = id
	s.users[u.Email] = &cp
	return id, nil
}

func (s *memStore) SetStatus(_ context.Context, id primitive.ObjectID, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListAll(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func postJSON(t *testing.T, h httprouter.Handle, body string, ps httprouter.Params) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req, ps)
	return rec
}

func TestRegisterBuyerStartsActive(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store, ManagerSecret: "invite"}

	rec := postJSON(t, svc.Register, `{"email":"Buyer@Shop.Test","name":"Asha"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	u, err := store.FindByEmail(context.Background(), "buyer@shop.test")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.Role != models.RoleBuyer || u.Status != models.StatusActive {
		t.Errorf("role/status = %s/%s, want buyer/active", u.Role, u.Status)
	}
}

func TestRegisterManagerNeedsInviteCode(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store, ManagerSecret: "invite"}

	// wrong code silently falls back to buyer
	postJSON(t, svc.Register, `{"email":"a@shop.test","role":"manager","managerCode":"nope"}`, nil)
	u, _ := store.FindByEmail(context.Background(), "a@shop.test")
	if u.Role != models.RoleBuyer {
		t.Errorf("wrong code: role = %s, want buyer", u.Role)
	}

	// right code grants a pending manager account
	postJSON(t, svc.Register, `{"email":"b@shop.test","role":"manager","managerCode":"invite"}`, nil)
	u, _ = store.FindByEmail(context.Background(), "b@shop.test")
	if u.Role != models.RoleManager || u.Status != models.StatusPending {
		t.Errorf("right code: role/status = %s/%s, want manager/pending", u.Role, u.Status)
	}
}

func TestRegisterExistingEmailIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store}

	first := postJSON(t, svc.Register, `{"email":"x@shop.test","name":"First"}`, nil)
	if first.Code != http.StatusCreated {
		t.Fatalf("first register: %d", first.Code)
	}
	second := postJSON(t, svc.Register, `{"email":"x@shop.test","name":"Second"}`, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second register: %d, want 200", second.Code)
	}

	u, _ := store.FindByEmail(context.Background(), "x@shop.test")
	if u.Name != "First" {
		t.Errorf("existing record mutated: name = %q", u.Name)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["message"] != "User already exists" {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestRegisterLosingInsertRaceIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store}

	postJSON(t, svc.Register, `{"email":"race@shop.test","name":"First"}`, nil)

	// the up-front lookup misses, the unique index rejects the insert
	store.missLookups = 1
	rec := postJSON(t, svc.Register, `{"email":"race@shop.test","name":"Second"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "User already exists") {
		t.Errorf("body = %s", rec.Body.String())
	}
	u, _ := store.FindByEmail(context.Background(), "race@shop.test")
	if u.Name != "First" {
		t.Errorf("existing record mutated: name = %q", u.Name)
	}
}

func TestRegisterRequiresEmail(t *testing.T) {
	svc := &Service{Store: newMemStore()}
	rec := postJSON(t, svc.Register, `{"name":"NoEmail"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterDefaultsName(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store}
	postJSON(t, svc.Register, `{"email":"anon@shop.test"}`, nil)

	u, _ := store.FindByEmail(context.Background(), "anon@shop.test")
	if u.Name != "N/A" {
		t.Errorf("name = %q, want N/A", u.Name)
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store}
	postJSON(t, svc.Register, `{"email":"pw@shop.test","password":"hunter2"}`, nil)

	u, _ := store.FindByEmail(context.Background(), "pw@shop.test")
	if u.PasswordHash == "" || u.PasswordHash == "hunter2" {
		t.Errorf("password stored badly: %q", u.PasswordHash)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store}
	id, _ := store.Insert(context.Background(), &models.User{
		Email:  "m@shop.test",
		Role:   models.RoleManager,
		Status: models.StatusPending,
	})
	ps := httprouter.Params{{Key: "id", Value: id.Hex()}}

	rec := postJSON(t, svc.UpdateStatus, `{"status":"banned"}`, ps)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status: %d, want 400", rec.Code)
	}

	rec = postJSON(t, svc.UpdateStatus, `{"status":"active"}`, ps)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: %d, body %s", rec.Code, rec.Body.String())
	}
	u, _ := store.FindByEmail(context.Background(), "m@shop.test")
	if u.Status != models.StatusActive {
		t.Errorf("status = %s, want active", u.Status)
	}

	rec = postJSON(t, svc.UpdateStatus, `{"status":"active"}`,
		httprouter.Params{{Key: "id", Value: primitive.NewObjectID().Hex()}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: %d, want 404", rec.Code)
	}

	rec = postJSON(t, svc.UpdateStatus, `{"status":"active"}`,
		httprouter.Params{{Key: "id", Value: "not-an-id"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id: %d, want 400", rec.Code)
	}
}
