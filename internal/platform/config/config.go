package config

import (
	"os"
	"strings"
	"time"
)

// Server captures the configuration the process needs at startup.
type Server struct {
	Addr          string
	BaseURL       string
	DatabaseURL   string
	Redis         RedisConfig
	JWTSigningKey string
	SessionTTL    time.Duration
	DraftTTL      time.Duration

	Google GoogleOAuth

	// InsuranceDir is where uploaded insurance documents land when no
	// object store is mounted; served back under /files/.
	InsuranceDir string

	// AuditBrokers enables the Kafka audit trail when non-empty.
	AuditBrokers []string
	AuditTopic   string
}

// RedisConfig holds connection settings for the Redis-backed stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GoogleOAuth holds the third-party sign-in credentials.
type GoogleOAuth struct {
	ClientID     string
	ClientSecret string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DRIVER_PORTAL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("DRIVER_PORTAL_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default. Production must set JWT_SIGNING_KEY.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	insuranceDir := os.Getenv("INSURANCE_DIR")
	if insuranceDir == "" {
		insuranceDir = "data/insurance"
	}

	var brokers []string
	if raw := os.Getenv("AUDIT_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:          addr,
		BaseURL:       strings.TrimRight(baseURL, "/"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		SessionTTL:    24 * time.Hour,
		DraftTTL:      15 * time.Minute,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Google: GoogleOAuth{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		},
		InsuranceDir: insuranceDir,
		AuditBrokers: brokers,
		AuditTopic:   os.Getenv("AUDIT_TOPIC"),
	}
}

// CallbackURL is the fixed return address for the OAuth redirect flow.
func (s Server) CallbackURL() string {
	return s.BaseURL + "/auth/callback"
}
