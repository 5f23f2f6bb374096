package orders

import (
	"encoding/json"
	"net/http"

	"fabritrack/apperr"
	"fabritrack/middleware"
	"fabritrack/models"
	"fabritrack/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handlers exposes the engine over HTTP. Role checks for the manager
// routes are enforced by the guard at the route level; ownership
// checks happen here.
type Handlers struct {
	Engine *Engine
	Guard  *middleware.Guard

	// ReceiptSecret signs the QR payload embedded in receipts.
	ReceiptSecret []byte
}

// PlaceOrder creates an order for the authenticated buyer.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}

	order, err := h.Engine.Place(r.Context(), middleware.EmailFromRequest(r), req)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success":    true,
		"insertedId": order.ID.Hex(),
	})
}

// MyOrders lists the caller's own orders, excluding rejected ones.
// The path email must match the token's.
func (h *Handlers) MyOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	email := ps.ByName("email")
	if middleware.EmailFromRequest(r) != email {
		utils.RespondAppError(w, apperr.New(apperr.Forbidden, "Forbidden"))
		return
	}

	list, err := h.Engine.ListByBuyer(r.Context(), email)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, withDisplayStatus(list))
}

// CancelOrder lets the owning buyer cancel while the order is still
// pending.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid order id"))
		return
	}

	if err := h.Engine.Cancel(r.Context(), id, middleware.EmailFromRequest(r)); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"message": "Order cancelled successfully",
	})
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.Engine.ListAll(r.Context())
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, withDisplayStatus(list))
}

func (h *Handlers) PendingOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.Engine.ListPending(r.Context())
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, withDisplayStatus(list))
}

func (h *Handlers) ApproveOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid order id"))
		return
	}
	if err := h.Engine.Approve(r.Context(), id); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handlers) RejectOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid order id"))
		return
	}
	if err := h.Engine.Reject(r.Context(), id); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// AddTracking appends a shipment-stage event to a confirmed order.
func (h *Handlers) AddTracking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid order id"))
		return
	}

	var req TrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid input"))
		return
	}

	ev, err := h.Engine.AppendTracking(r.Context(), id, req)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":  true,
		"tracking": ev,
	})
}

// GetOrder returns a single order, visible to managers, admins, and
// the owning buyer.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid order id"))
		return
	}

	caller, err := h.Guard.ResolveIdentity(r)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	order, err := h.Engine.GetVisible(r.Context(), id, caller)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view(*order))
}

// orderView flattens the stored record together with the derived
// customer-facing status.
type orderView struct {
	models.Order
	DisplayStatus string `json:"displayStatus"`
}

func view(o models.Order) orderView {
	return orderView{Order: o, DisplayStatus: o.DisplayStatus()}
}

func withDisplayStatus(list []models.Order) []orderView {
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, view(o))
	}
	return out
}
