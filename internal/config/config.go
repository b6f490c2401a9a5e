package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	// JWTSecrets is ordered: the first entry signs new tokens, every entry
	// is accepted for verification. Rotation = prepend a new secret.
	JWTSecrets   []string
	AccessTTLMin int

	RedisAddr string
	RabbitURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	FrontendURL        string
}

func Load() Config {
	return Config{
		Port:               getenv("APP_PORT", "8080"),
		MongoURI:           getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getenv("MONGO_DB", "auth_db"),
		JWTSecrets:         split(getenv("JWT_SECRETS", "default_secret_key")),
		AccessTTLMin:       atoi(getenv("ACCESS_TTL_MIN", "60")),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		RabbitURL:          getenv("RABBIT_URL", ""),
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getenv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),
		FrontendURL:        getenv("FRONTEND_URL", "http://localhost:3001"),
	}
}

func split(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
