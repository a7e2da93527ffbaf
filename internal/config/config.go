package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	Endpoint        string // overrides the account endpoint, e.g. for a local S3 emulator
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Config struct {
	DB_URL      string
	Port        string
	JWTSecret   string
	Environment string
	LogLevel    string
	AppURL      string // public viewer origin used to build share links
	AppName     string
	FrontendURL string
	CorsConfig  cors.Options
	R2          R2Config
	Google      GoogleConfig

	PasscodeCost    int
	GrantTTL        time.Duration
	PresignTTL      time.Duration
	MaxUploadBytes  int64
	ViewRatePerSec  float64
	ViewRateBurst   int
	TrustedProxies  []string // addresses or CIDRs whose X-Forwarded-For is believed
	ExpirySweepSpec string // cron spec; empty disables the sweep
	CountryHeader   string
}

var Envs = Load()

// Load reads ENV_FILE (default .env) when present, then the process environment.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found, using process environment")
	}

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:5173")

	return Config{
		DB_URL:      getEnv("DB_URL", ""),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AppURL:      getEnv("APP_URL", frontendURL),
		AppName:     getEnv("APP_NAME", "ShareGate"),
		FrontendURL: frontendURL,
		CorsConfig:  CorsConfig(getEnvList("CORS_ORIGINS", []string{frontendURL})),
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
		},
		PasscodeCost:    getEnvInt("PASSCODE_COST", 10),
		GrantTTL:        getEnvDuration("GRANT_TTL", 15*time.Minute),
		PresignTTL:      getEnvDuration("PRESIGN_TTL", 15*time.Minute),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_MB", 100)) << 20,
		ViewRatePerSec:  getEnvFloat("VIEW_RATE_PER_SEC", 1),
		ViewRateBurst:   getEnvInt("VIEW_RATE_BURST", 5),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES", nil),
		ExpirySweepSpec: getEnv("EXPIRY_SWEEP_SPEC", "@every 5m"),
		CountryHeader:   getEnv("COUNTRY_HEADER", "X-Vercel-IP-Country"),
	}
}

// IsProduction reports whether cookies and logs should use production settings.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("Invalid number for %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func CorsConfig(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
