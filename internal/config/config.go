// Package config loads Quill's configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Quill application.
type Config struct {
	// Port is the HTTP server port.
	Port string

	// DBPath is the path to the SQLite database.
	DBPath string

	// MaintenanceFile is the path to the persisted maintenance state.
	MaintenanceFile string

	// MaintenanceView is an optional custom maintenance page served
	// verbatim instead of the built-in one.
	MaintenanceView string

	// LoginURL is where unauthenticated requests are redirected.
	LoginURL string

	// VerifyEmailURL is where members with an unverified email are sent.
	VerifyEmailURL string

	// RequireVerifiedEmail gates member routes on a verified email address.
	RequireVerifiedEmail bool

	// TrustedProxies lists peers (IPs or CIDR blocks) whose forwarding
	// headers are honored when resolving the client IP. Empty trusts all
	// peers.
	TrustedProxies []string

	// SecurityHeaders overrides individual security-header defaults.
	SecurityHeaders map[string]string

	// Login rate limiting
	RateLimitEnabled     bool
	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration

	// SMTP delivery for verification email. Delivery is disabled unless
	// explicitly enabled; codes are logged instead.
	SMTPEnabled        bool
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPFromAddress    string
	SMTPFromName       string
	SMTPUseTLS         bool
	SMTPUseSTARTTLS    bool
	SMTPInsecureVerify bool
}

// Load reads configuration from environment variables, falling back to defaults.
func Load() *Config {
	return &Config{
		Port:                 getEnv("QUILL_PORT", "8080"),
		DBPath:               getEnv("QUILL_DB", "quill.db"),
		MaintenanceFile:      getEnv("QUILL_MAINTENANCE_FILE", "maintenance.json"),
		MaintenanceView:      getEnv("QUILL_MAINTENANCE_VIEW", ""),
		LoginURL:             getEnv("QUILL_LOGIN_URL", "/login"),
		VerifyEmailURL:       getEnv("QUILL_VERIFY_EMAIL_URL", "/verify-email"),
		RequireVerifiedEmail: getEnvBool("QUILL_REQUIRE_VERIFIED_EMAIL", true),
		TrustedProxies:       getEnvList("QUILL_TRUSTED_PROXIES", nil),
		SecurityHeaders:      getEnvMap("QUILL_SECURITY_HEADERS", nil),
		RateLimitEnabled:     getEnvBool("QUILL_RATELIMIT_ENABLED", true),
		RateLimitMaxAttempts: getEnvInt("QUILL_RATELIMIT_MAX_ATTEMPTS", 5),
		RateLimitWindow:      time.Duration(getEnvInt("QUILL_RATELIMIT_WINDOW_MINUTES", 15)) * time.Minute,
		SMTPEnabled:          getEnvBool("QUILL_SMTP_ENABLED", false),
		SMTPHost:             getEnv("QUILL_SMTP_HOST", ""),
		SMTPPort:             getEnvInt("QUILL_SMTP_PORT", 587),
		SMTPUser:             getEnv("QUILL_SMTP_USER", ""),
		SMTPPassword:         getEnv("QUILL_SMTP_PASSWORD", ""),
		SMTPFromAddress:      getEnv("QUILL_SMTP_FROM_ADDRESS", ""),
		SMTPFromName:         getEnv("QUILL_SMTP_FROM_NAME", "Quill"),
		SMTPUseTLS:           getEnvBool("QUILL_SMTP_TLS", false),
		SMTPUseSTARTTLS:      getEnvBool("QUILL_SMTP_STARTTLS", true),
		SMTPInsecureVerify:   getEnvBool("QUILL_SMTP_INSECURE_SKIP_VERIFY", false),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean.
// Returns defaultValue if the variable is not set or cannot be parsed.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvInt retrieves an environment variable as an integer.
// Returns defaultValue if the variable is not set or cannot be parsed.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

// getEnvList retrieves an environment variable as a comma-separated list.
// Returns defaultValue if the variable is not set.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// getEnvMap retrieves an environment variable as a key=value map.
// Format: "key1=value1,key2=value2"
// Returns defaultValue if the variable is not set.
func getEnvMap(key string, defaultValue map[string]string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result := make(map[string]string)
	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			k := strings.TrimSpace(kv[0])
			v := strings.TrimSpace(kv[1])
			if k != "" {
				result[k] = v
			}
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
