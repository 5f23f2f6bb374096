package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fabritrack/auth"
	"fabritrack/config"
	"fabritrack/db"
	"fabritrack/middleware"
	"fabritrack/mq"
	"fabritrack/orders"
	"fabritrack/pay"
	"fabritrack/products"
	"fabritrack/ratelim"
	"fabritrack/rdx"
	"fabritrack/routes"
	"fabritrack/users"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func buildDeps(cfg config.Config, colls *db.Collections, cache *rdx.Cache, hub *orders.Hub) *routes.Deps {
	userStore := users.NewMongoStore(colls.Users)
	productStore := products.NewMongoStore(colls.Products)
	orderStore := orders.NewMongoStore(colls.Orders)

	guard := &middleware.Guard{Secret: cfg.JWTSecret, Users: userStore}
	engine := orders.NewEngine(orderStore, &mq.Emitter{Cache: cache})

	var gateway pay.Gateway
	if cfg.StripeSecret != "" {
		gateway = pay.NewStripeGateway(cfg.StripeSecret, cfg.SiteURL)
	} else {
		log.Println("STRIPE_SECRET not set; using stub payment gateway")
		gateway = &pay.StubGateway{}
	}

	return &routes.Deps{
		Guard:    guard,
		RateLim:  ratelim.NewRateLimiter(),
		Users:    &users.Service{Store: userStore, ManagerSecret: cfg.ManagerSecret},
		Auth:     &auth.Service{Users: userStore, Guard: guard},
		Products: &products.Service{Store: productStore, Cache: cache, Guard: guard},
		Orders:   &orders.Handlers{Engine: engine, Guard: guard, ReceiptSecret: cfg.JWTSecret},
		Hub:      hub,
		Payments: &pay.Service{Engine: engine, Gateway: gateway},
		Idem:     &pay.Idempotency{Coll: colls.Idempotency},
	}
}

func main() {
	// load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}
	cfg := config.FromEnv()
	if len(cfg.JWTSecret) == 0 {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := db.Connect(connectCtx, cfg.MongoURI)
	connectCancel()
	if err != nil {
		log.Fatalf("mongo connect failed: %v", err)
	}
	colls := db.NewCollections(client)

	cache := rdx.New(cfg.RedisAddr)

	hub := orders.NewHub()
	go hub.Run()

	deps := buildDeps(cfg, colls, cache, hub)
	if err := users.NewMongoStore(colls.Users).EnsureIndexes(ctx); err != nil {
		log.Printf("user indexes: %v", err)
	}
	if err := deps.Idem.EnsureIndexes(ctx); err != nil {
		log.Printf("idempotency indexes: %v", err)
	}

	// relay redis order events to websocket subscribers
	go mq.StartOrderEventWorker(ctx, cache, hub)

	router := httprouter.New()
	router.GET("/health", Index)
	routes.Register(router, deps)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("🛑 Shutting down order hub...")
		hub.Stop()
	})

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Printf("mongo disconnect: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
