package products

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fabritrack/apperr"
	"fabritrack/middleware"
	"fabritrack/models"
	"fabritrack/rdx"
	"fabritrack/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	featuredCacheKey = "products:featured"
	featuredCacheTTL = 60 * time.Second
	featuredLimit    = 6
)

// Service owns the catalog handlers. The cache may be nil.
type Service struct {
	Store Store
	Cache *rdx.Cache
	Guard *middleware.Guard
}

func (s *Service) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := s.Store.List(r.Context())
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// FeaturedProducts serves the public home-page feed: visible products,
// newest first, capped at six. Cached briefly in redis; every catalog
// write invalidates the key.
func (s *Service) FeaturedProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	if cached, ok := s.Cache.Get(ctx, featuredCacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cached))
		return
	}

	list, err := s.Store.ListFeatured(ctx, featuredLimit)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	if payload, err := json.Marshal(list); err == nil {
		s.Cache.Set(ctx, featuredCacheKey, string(payload), featuredCacheTTL)
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (s *Service) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid product id"))
		return
	}
	product, err := s.Store.Get(r.Context(), id)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, product)
}

type createRequest struct {
	models.ProductSpec
}

// CreateProduct adds a catalog item. An insert identical on every
// comparable field is rejected as a duplicate.
func (s *Service) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Price <= 0 {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Title and a positive price are required"))
		return
	}

	exists, err := s.Store.ExistsExact(r.Context(), req.ProductSpec)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if exists {
		utils.RespondAppError(w, apperr.New(apperr.Conflict, "This exact product already exists"))
		return
	}

	product := &models.Product{
		Title:             req.Title,
		Category:          req.Category,
		Price:             req.Price,
		AvailableQuantity: req.AvailableQuantity,
		MOQ:               req.MOQ,
		PaymentOption:     req.PaymentOption,
		ShowOnHome:        req.ShowOnHome,
		CreatedBy:         middleware.EmailFromRequest(r),
		CreatedAt:         time.Now(),
	}
	id, err := s.Store.Insert(r.Context(), product)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	product.ID = id
	s.Cache.Del(r.Context(), featuredCacheKey)

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"product": product,
	})
}

func (s *Service) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid product id"))
		return
	}
	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}

	matched, err := s.Store.Update(r.Context(), id, patch)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if !matched {
		utils.RespondAppError(w, apperr.New(apperr.NotFound, "Product not found"))
		return
	}
	s.Cache.Del(r.Context(), featuredCacheKey)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// DeleteProduct removes a catalog item. Allowed for an admin or for
// the manager who created it; the caller's role is re-resolved from
// storage, never taken from the token.
func (s *Service) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid product id"))
		return
	}

	caller, err := s.Guard.ResolveIdentity(r)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	product, err := s.Store.Get(r.Context(), id)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	ownsIt := caller.Role == models.RoleManager && product.CreatedBy == caller.Email
	if !caller.IsAdmin() && !(ownsIt && caller.Status == models.StatusActive) {
		utils.RespondAppError(w, apperr.New(apperr.Forbidden, "Forbidden"))
		return
	}

	deleted, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if !deleted {
		utils.RespondAppError(w, apperr.New(apperr.NotFound, "Product not found"))
		return
	}
	s.Cache.Del(r.Context(), featuredCacheKey)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// ToggleShowOnHome flips the home-page visibility flag. Admin only.
func (s *Service) ToggleShowOnHome(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid product id"))
		return
	}
	var req struct {
		ShowOnHome bool `json:"showOnHome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}

	matched, err := s.Store.SetFeatured(r.Context(), id, req.ShowOnHome)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if !matched {
		utils.RespondAppError(w, apperr.New(apperr.NotFound, "Product not found"))
		return
	}
	s.Cache.Del(r.Context(), featuredCacheKey)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
