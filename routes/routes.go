package routes

import (
	"net/http"

	"fabritrack/auth"
	"fabritrack/middleware"
	"fabritrack/orders"
	"fabritrack/pay"
	"fabritrack/products"
	"fabritrack/ratelim"
	"fabritrack/users"

	"github.com/julienschmidt/httprouter"
)

// Deps bundles the wired services every route group pulls from. Built
// once in main; nothing here is package-global.
type Deps struct {
	Guard    *middleware.Guard
	RateLim  *ratelim.RateLimiter
	Users    *users.Service
	Auth     *auth.Service
	Products *products.Service
	Orders   *orders.Handlers
	Hub      *orders.Hub
	Payments *pay.Service
	Idem     *pay.Idempotency
}

func Register(router *httprouter.Router, d *Deps) {
	AddUserRoutes(router, d)
	AddProductRoutes(router, d)
	AddOrderRoutes(router, d)
	AddPayRoutes(router, d)
	AddStaticRoutes(router)
}

func AddUserRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/users", d.RateLim.Limit(d.Users.Register))
	router.POST("/users/jwt", d.RateLim.Limit(d.Auth.IssueToken))
	router.GET("/users",
		middleware.Chain(d.Guard.Authenticate, d.Guard.RequireAdmin)(d.Users.ListUsers))
	router.PATCH("/users/status/:id",
		middleware.Chain(d.Guard.Authenticate, d.Guard.RequireAdmin)(d.Users.UpdateStatus))
}

func AddProductRoutes(router *httprouter.Router, d *Deps) {
	manager := middleware.Chain(d.Guard.Authenticate, d.Guard.RequireManagerOrAdmin)
	admin := middleware.Chain(d.Guard.Authenticate, d.Guard.RequireAdmin)

	router.GET("/products", d.Guard.Authenticate(d.Products.ListProducts))
	router.POST("/products", manager(d.Products.CreateProduct))
	router.DELETE("/products/:id", d.Guard.Authenticate(d.Products.DeleteProduct))
	router.POST("/products/image/:id", manager(d.Products.UploadImage))

	// /products/home is public but shares the GET tree with /products/:id,
	// so the wildcard route dispatches between them.
	getProduct := d.Guard.Authenticate(d.Products.GetProduct)
	router.GET("/products/:id", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("id") == "home" {
			d.Products.FeaturedProducts(w, r, ps)
			return
		}
		getProduct(w, r, ps)
	})

	update := manager(d.Products.UpdateProduct)
	toggle := admin(d.Products.ToggleShowOnHome)
	router.PATCH("/products/:id", update)
	router.PATCH("/products/:id/:sub", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("id") == "show-home" {
			toggle(w, r, httprouter.Params{{Key: "id", Value: ps.ByName("sub")}})
			return
		}
		http.NotFound(w, r)
	})
}

func AddOrderRoutes(router *httprouter.Router, d *Deps) {
	authed := d.Guard.Authenticate
	manager := middleware.Chain(d.Guard.Authenticate, d.Guard.RequireManagerOrAdmin)

	router.POST("/orders", d.RateLim.Limit(authed(d.Orders.PlaceOrder)))
	router.PATCH("/orders/cancel/:id", authed(d.Orders.CancelOrder))

	router.GET("/orders", manager(d.Orders.ListOrders))
	router.PATCH("/orders/approve/:id", manager(d.Orders.ApproveOrder))
	router.PATCH("/orders/reject/:id", manager(d.Orders.RejectOrder))
	router.PATCH("/orders/tracking/:id", manager(d.Orders.AddTracking))

	// httprouter keeps one tree per method and rejects static segments
	// next to a wildcard, so the remaining GET routes dispatch on the
	// first parameter: /orders/pending, /orders/updates (websocket),
	// /orders/buyer/:email, /orders/:id and /orders/:id/receipt.
	pending := d.Guard.RequireManagerOrAdmin(d.Orders.PendingOrders)
	updates := d.Guard.RequireManagerOrAdmin(d.Hub.ServeWS)
	router.GET("/orders/:id", authed(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		switch ps.ByName("id") {
		case "pending":
			pending(w, r, ps)
		case "updates":
			updates(w, r, ps)
		default:
			d.Orders.GetOrder(w, r, ps)
		}
	}))
	router.GET("/orders/:id/:sub", authed(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		switch {
		case ps.ByName("id") == "buyer":
			d.Orders.MyOrders(w, r, httprouter.Params{{Key: "email", Value: ps.ByName("sub")}})
		case ps.ByName("sub") == "receipt":
			d.Orders.Receipt(w, r, ps)
		default:
			http.NotFound(w, r)
		}
	}))
}

func AddPayRoutes(router *httprouter.Router, d *Deps) {
	authed := middleware.Chain(d.Guard.Authenticate, d.Idem.Middleware)

	router.POST("/payment/create-payment-intent", authed(d.Payments.CreatePaymentIntent))
	router.POST("/payment/create-checkout-session", authed(d.Payments.CreateCheckoutSession))
	router.PATCH("/payment/orders/payment-success/:id", authed(d.Payments.PaymentSuccess))
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/productpic/*filepath", http.Dir("static/productpic"))
}
