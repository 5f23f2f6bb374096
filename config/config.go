package config

import "os"

// Config carries everything read from the process environment. It is
// built once in main and handed to the packages that need it, so no
// handler reaches into os.Getenv at request time.
type Config struct {
	MongoURI      string
	JWTSecret     []byte
	StripeSecret  string
	ManagerSecret string
	SiteURL       string
	RedisAddr     string
	Port          string
}

func FromEnv() Config {
	cfg := Config{
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		StripeSecret:  os.Getenv("STRIPE_SECRET"),
		ManagerSecret: os.Getenv("MANAGER_SECRET"),
		SiteURL:       getenv("SITE_URL", "http://localhost:5173"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		Port:          getenv("PORT", "5000"),
	}
	if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
