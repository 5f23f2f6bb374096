package products

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fabritrack/apperr"
	"fabritrack/middleware"
	"fabritrack/models"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
}

func newMemStore() *memStore {
	return &memStore{products: make(map[primitive.ObjectID]*models.Product)}
}

func (s *memStore) List(context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *memStore) ListFeatured(_ context.Context, limit int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.products {
		if p.ShowOnHome && int64(len(out)) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) Get(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "Product not found")
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ExistsExact(_ context.Context, spec models.ProductSpec) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		got := models.ProductSpec{
			Title:             p.Title,
			Category:          p.Category,
			Price:             p.Price,
			AvailableQuantity: p.AvailableQuantity,
			MOQ:               p.MOQ,
			PaymentOption:     p.PaymentOption,
			ShowOnHome:        p.ShowOnHome,
		}
		if got == spec {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Insert(_ context.Context, p *models.Product) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	cp := *p
	cp.ID = id
	s.products[id] = &cp
	return id, nil
}

func (s *memStore) Update(_ context.Context, id primitive.ObjectID, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.AvailableQuantity != nil {
		p.AvailableQuantity = *patch.AvailableQuantity
	}
	return true, nil
}

func (s *memStore) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	return true, nil
}

func (s *memStore) SetFeatured(_ context.Context, id primitive.ObjectID, flag bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	p.ShowOnHome = flag
	return true, nil
}

func (s *memStore) SetImage(_ context.Context, id primitive.ObjectID, image, thumb string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	p.Image, p.Thumbnail = image, thumb
	return true, nil
}

type roleSource struct {
	users map[string]*models.User
}

func (f *roleSource) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return u, nil
}

func newTestService() (*Service, *memStore, *middleware.Guard) {
	store := newMemStore()
	guard := &middleware.Guard{
		Secret: []byte("test-secret"),
		Users: &roleSource{users: map[string]*models.User{
			"admin@shop.test":   {Email: "admin@shop.test", Role: models.RoleAdmin, Status: models.StatusActive},
			"maker@shop.test":   {Email: "maker@shop.test", Role: models.RoleManager, Status: models.StatusActive},
			"rival@shop.test":   {Email: "rival@shop.test", Role: models.RoleManager, Status: models.StatusActive},
			"retired@shop.test": {Email: "retired@shop.test", Role: models.RoleManager, Status: models.StatusSuspended},
		}},
	}
	return &Service{Store: store, Guard: guard}, store, guard
}

func doAs(t *testing.T, guard *middleware.Guard, h httprouter.Handle, email, role, method, body string, ps httprouter.Params) *httptest.ResponseRecorder {
	t.Helper()
	token, err := guard.SignToken(email, role)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(method, "/products", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	guard.Authenticate(h)(rec, req, ps)
	return rec
}

const jacket = `{"title":"Denim Jacket","category":"outerwear","price":45,"availableQuantity":500,"moq":50,"paymentOption":"full","showOnHome":false}`

func TestCreateProductRejectsExactDuplicate(t *testing.T) {
	svc, _, guard := newTestService()

	rec := doAs(t, guard, svc.CreateProduct, "maker@shop.test", models.RoleManager, http.MethodPost, jacket, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doAs(t, guard, svc.CreateProduct, "maker@shop.test", models.RoleManager, http.MethodPost, jacket, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d, want 409", rec.Code)
	}

	// one differing field is a distinct product
	variant := strings.Replace(jacket, `"price":45`, `"price":46`, 1)
	rec = doAs(t, guard, svc.CreateProduct, "maker@shop.test", models.RoleManager, http.MethodPost, variant, nil)
	if rec.Code != http.StatusCreated {
		t.Errorf("variant: %d, want 201", rec.Code)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, guard := newTestService()

	rec := doAs(t, guard, svc.CreateProduct, "maker@shop.test", models.RoleManager,
		http.MethodPost, `{"title":"  ","price":10}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank title: %d, want 400", rec.Code)
	}

	rec = doAs(t, guard, svc.CreateProduct, "maker@shop.test", models.RoleManager,
		http.MethodPost, `{"title":"Tee","price":0}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero price: %d, want 400", rec.Code)
	}
}

func TestDeleteProductOwnership(t *testing.T) {
	svc, store, guard := newTestService()
	id, _ := store.Insert(context.Background(), &models.Product{
		Title: "Denim Jacket", Price: 45, CreatedBy: "maker@shop.test",
	})
	ps := httprouter.Params{{Key: "id", Value: id.Hex()}}

	// another manager may not delete it
	rec := doAs(t, guard, svc.DeleteProduct, "rival@shop.test", models.RoleManager, http.MethodDelete, "", ps)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rival: %d, want 403", rec.Code)
	}

	// the creator may
	rec = doAs(t, guard, svc.DeleteProduct, "maker@shop.test", models.RoleManager, http.MethodDelete, "", ps)
	if rec.Code != http.StatusOK {
		t.Fatalf("creator: %d, body %s", rec.Code, rec.Body.String())
	}
	if _, err := store.Get(context.Background(), id); apperr.KindOf(err) != apperr.NotFound {
		t.Error("product still present after delete")
	}
}

func TestDeleteProductAdminOverride(t *testing.T) {
	svc, store, guard := newTestService()
	id, _ := store.Insert(context.Background(), &models.Product{
		Title: "Denim Jacket", Price: 45, CreatedBy: "maker@shop.test",
	})
	ps := httprouter.Params{{Key: "id", Value: id.Hex()}}

	rec := doAs(t, guard, svc.DeleteProduct, "admin@shop.test", models.RoleAdmin, http.MethodDelete, "", ps)
	if rec.Code != http.StatusOK {
		t.Errorf("admin: %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteProductSuspendedOwnerBlocked(t *testing.T) {
	svc, store, guard := newTestService()
	id, _ := store.Insert(context.Background(), &models.Product{
		Title: "Denim Jacket", Price: 45, CreatedBy: "retired@shop.test",
	})
	ps := httprouter.Params{{Key: "id", Value: id.Hex()}}

	rec := doAs(t, guard, svc.DeleteProduct, "retired@shop.test", models.RoleManager, http.MethodDelete, "", ps)
	if rec.Code != http.StatusForbidden {
		t.Errorf("suspended owner: %d, want 403", rec.Code)
	}
}

func TestToggleShowOnHome(t *testing.T) {
	svc, store, guard := newTestService()
	id, _ := store.Insert(context.Background(), &models.Product{Title: "Tee", Price: 9})
	ps := httprouter.Params{{Key: "id", Value: id.Hex()}}

	rec := doAs(t, guard, svc.ToggleShowOnHome, "admin@shop.test", models.RoleAdmin,
		http.MethodPatch, `{"showOnHome":true}`, ps)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: %d, body %s", rec.Code, rec.Body.String())
	}
	p, _ := store.Get(context.Background(), id)
	if !p.ShowOnHome {
		t.Error("flag not set")
	}

	rec = doAs(t, guard, svc.ToggleShowOnHome, "admin@shop.test", models.RoleAdmin,
		http.MethodPatch, `{"showOnHome":true}`, httprouter.Params{{Key: "id", Value: primitive.NewObjectID().Hex()}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: %d, want 404", rec.Code)
	}
}

func TestFeaturedProductsCapped(t *testing.T) {
	svc, store, _ := newTestService()
	for i := 0; i < 10; i++ {
		store.Insert(context.Background(), &models.Product{Title: "Tee", Price: 9, ShowOnHome: true})
	}

	req := httptest.NewRequest(http.MethodGet, "/products/home", nil)
	rec := httptest.NewRecorder()
	svc.FeaturedProducts(rec, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.Count(rec.Body.String(), `"title"`); got > featuredLimit {
		t.Errorf("featured items = %d, want at most %d", got, featuredLimit)
	}
}
