package orders

import (
	"context"
	"time"

	"fabritrack/apperr"
	"fabritrack/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store persists orders. Every guarded transition is a single
// conditional update: the filter carries the precondition and the
// returned bool reports whether a document matched, so two concurrent
// callers racing on the same pending order cannot both win.
type Store interface {
	Insert(ctx context.Context, o *models.Order) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByBuyer(ctx context.Context, email string) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	FindPending(ctx context.Context) ([]models.Order, error)
	MarkCancelled(ctx context.Context, id primitive.ObjectID, buyerEmail string, at time.Time) (bool, error)
	MarkApproved(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	PushTracking(ctx context.Context, id primitive.ObjectID, ev models.TrackingEvent) (bool, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, txnID string, at time.Time) (bool, error)
	SetPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) (bool, error)
}

// Publisher receives lifecycle events after a successful mutation.
type Publisher interface {
	OrderEvent(ctx context.Context, kind string, o *models.Order)
}

// Lifecycle event kinds.
const (
	EventPlaced    = "order.placed"
	EventApproved  = "order.approved"
	EventRejected  = "order.rejected"
	EventCancelled = "order.cancelled"
	EventTracking  = "order.tracking"
	EventPaid      = "order.paid"
)

// Engine owns the order state machine: orderStatus moves
// pending→confirmed or pending→rejected only, paymentStatus moves
// pending→paid exactly once, and tracking appends require a confirmed
// order.
type Engine struct {
	store  Store
	events Publisher
	now    func() time.Time
}

func NewEngine(store Store, events Publisher) *Engine {
	return &Engine{store: store, events: events, now: time.Now}
}

type PlaceRequest struct {
	ProductID    string  `json:"productId"`
	ProductTitle string  `json:"productTitle"`
	Quantity     int     `json:"quantity"`
	TotalPrice   float64 `json:"totalPrice"`
}

// Place creates an order in (pending, pending) with empty tracking.
func (e *Engine) Place(ctx context.Context, buyerEmail string, req PlaceRequest) (*models.Order, error) {
	if req.ProductTitle == "" {
		return nil, apperr.New(apperr.InvalidArgument, "Product title required")
	}
	if req.TotalPrice <= 0 {
		return nil, apperr.New(apperr.InvalidArgument, "Total price must be positive")
	}

	order := &models.Order{
		UserEmail:     buyerEmail,
		ProductID:     req.ProductID,
		ProductTitle:  req.ProductTitle,
		Quantity:      req.Quantity,
		TotalPrice:    req.TotalPrice,
		OrderStatus:   models.OrderPending,
		PaymentStatus: models.PaymentPending,
		Tracking:      []models.TrackingEvent{},
		CreatedAt:     e.now(),
	}
	id, err := e.store.Insert(ctx, order)
	if err != nil {
		return nil, err
	}
	order.ID = id
	e.publish(ctx, EventPlaced, order)
	return order, nil
}

// Cancel transitions pending→rejected, but only when the caller owns
// the order and it is still pending at the moment of the atomic
// update. Any mismatch is reported, never silently ignored.
func (e *Engine) Cancel(ctx context.Context, id primitive.ObjectID, callerEmail string) error {
	matched, err := e.store.MarkCancelled(ctx, id, callerEmail, e.now())
	if err != nil {
		return err
	}
	if !matched {
		if _, err := e.store.FindByID(ctx, id); err != nil {
			return err
		}
		return apperr.New(apperr.PreconditionFail, "You cannot cancel this order")
	}
	e.publishByID(ctx, EventCancelled, id)
	return nil
}

// Approve transitions pending→confirmed. Applying it to an order that
// is no longer pending reports the failed precondition and leaves the
// record untouched.
func (e *Engine) Approve(ctx context.Context, id primitive.ObjectID) error {
	matched, err := e.store.MarkApproved(ctx, id, e.now())
	if err != nil {
		return err
	}
	if !matched {
		if _, err := e.store.FindByID(ctx, id); err != nil {
			return err
		}
		return apperr.New(apperr.PreconditionFail, "Order is not pending")
	}
	e.publishByID(ctx, EventApproved, id)
	return nil
}

// Reject transitions pending→rejected.
func (e *Engine) Reject(ctx context.Context, id primitive.ObjectID) error {
	matched, err := e.store.MarkRejected(ctx, id, e.now())
	if err != nil {
		return err
	}
	if !matched {
		if _, err := e.store.FindByID(ctx, id); err != nil {
			return err
		}
		return apperr.New(apperr.PreconditionFail, "Order is not pending")
	}
	e.publishByID(ctx, EventRejected, id)
	return nil
}

type TrackingRequest struct {
	Status   string     `json:"status"`
	Location string     `json:"location"`
	Note     string     `json:"note"`
	Time     *time.Time `json:"time"`
}

// AppendTracking appends a shipment-stage event. Tracking has no
// meaning before confirmation, so the append is conditional on
// orderStatus being confirmed.
func (e *Engine) AppendTracking(ctx context.Context, id primitive.ObjectID, req TrackingRequest) (*models.TrackingEvent, error) {
	if !models.ValidTrackingStatus(req.Status) {
		return nil, apperr.New(apperr.InvalidArgument, "Invalid status")
	}

	ev := models.TrackingEvent{
		ID:       uuid.New().String(),
		Status:   req.Status,
		Location: req.Location,
		Note:     req.Note,
		Time:     e.now(),
	}
	if req.Time != nil {
		ev.Time = *req.Time
	}

	matched, err := e.store.PushTracking(ctx, id, ev)
	if err != nil {
		return nil, err
	}
	if !matched {
		if _, err := e.store.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperr.New(apperr.PreconditionFail, "Order is not confirmed")
	}
	e.publishByID(ctx, EventTracking, id)
	return &ev, nil
}

// MarkPaid records settlement. Monotonic and idempotent: the first
// call sets paymentStatus, paidAt and the transaction id; repeats are
// no-ops, never errors, because the gateway may deliver duplicate
// settlement notifications. Manager approval stays untouched.
func (e *Engine) MarkPaid(ctx context.Context, id primitive.ObjectID, txnID string) error {
	matched, err := e.store.MarkPaid(ctx, id, txnID, e.now())
	if err != nil {
		return err
	}
	if !matched {
		// Already paid, or no such order.
		if _, err := e.store.FindByID(ctx, id); err != nil {
			return err
		}
		return nil
	}
	e.publishByID(ctx, EventPaid, id)
	return nil
}

// AttachPaymentIntent links the gateway intent to the order.
func (e *Engine) AttachPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) error {
	matched, err := e.store.SetPaymentIntent(ctx, id, intentID)
	if err != nil {
		return err
	}
	if !matched {
		return apperr.New(apperr.NotFound, "Order not found")
	}
	return nil
}

// Get fetches an order with no visibility check. Internal callers only.
func (e *Engine) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return e.store.FindByID(ctx, id)
}

// GetVisible fetches an order for an authenticated caller. Existence
// is checked first, ownership second: managers and admins see any
// order, a buyer sees only their own.
func (e *Engine) GetVisible(ctx context.Context, id primitive.ObjectID, caller *models.User) (*models.Order, error) {
	order, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleBuyer && caller.Email != order.UserEmail {
		return nil, apperr.New(apperr.Forbidden, "Forbidden")
	}
	return order, nil
}

// ListByBuyer returns the buyer's own orders, newest first, excluding
// rejected ones.
func (e *Engine) ListByBuyer(ctx context.Context, email string) ([]models.Order, error) {
	return e.store.FindByBuyer(ctx, email)
}

func (e *Engine) ListAll(ctx context.Context) ([]models.Order, error) {
	return e.store.FindAll(ctx)
}

func (e *Engine) ListPending(ctx context.Context) ([]models.Order, error) {
	return e.store.FindPending(ctx)
}

func (e *Engine) publish(ctx context.Context, kind string, o *models.Order) {
	if e.events != nil {
		e.events.OrderEvent(ctx, kind, o)
	}
}

func (e *Engine) publishByID(ctx context.Context, kind string, id primitive.ObjectID) {
	if e.events == nil {
		return
	}
	if o, err := e.store.FindByID(ctx, id); err == nil {
		e.events.OrderEvent(ctx, kind, o)
	}
}
