package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config aggregates runtime configuration for the kemopage service.
type Config struct {
	Environment      string
	HTTPPort         int
	AppOrigin        string
	AuthIssuerURL    string
	AuthClientID     string
	AuthClientSecret string
	AuthJWTSecret    string
	DatabaseURL      string
	DataStore        string
	LogLevel         string
	AllowedOrigins   []string
	// UsernameProviders maps an OAuth provider name to the user-metadata field
	// carrying its public username (e.g. "x" -> "user_name").
	UsernameProviders map[string]string
}

// DefaultAppOrigin is the local-development origin used when APP_ORIGIN is unset.
const DefaultAppOrigin = "http://localhost:3000"

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/kemopage_database_url")
	if err != nil {
		return Config{}, err
	}

	clientSecret, err := getEnvOrFile("AUTH_CLIENT_SECRET", "/run/secrets/kemopage_auth_client_secret")
	if err != nil {
		return Config{}, err
	}

	jwtSecret, err := getEnvOrFile("AUTH_JWT_SECRET", "/run/secrets/kemopage_auth_jwt_secret")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:      getEnv("APP_ENV", "development"),
		DatabaseURL:      databaseURL,
		DataStore:        strings.ToLower(getEnv("DATA_STORE", "memory")),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins:   parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		AuthIssuerURL:    strings.TrimSuffix(strings.TrimSpace(getEnv("AUTH_ISSUER_URL", "")), "/"),
		AuthClientID:     strings.TrimSpace(getEnv("AUTH_CLIENT_ID", "")),
		AuthClientSecret: strings.TrimSpace(clientSecret),
		AuthJWTSecret:    strings.TrimSpace(jwtSecret),
	}

	origin, err := resolveAppOrigin(getEnv("APP_ORIGIN", ""), cfg.Environment)
	if err != nil {
		return Config{}, err
	}
	cfg.AppOrigin = origin

	providers, err := parseUsernameProviders(getEnv("USERNAME_PROVIDERS", "x=user_name,twitter=user_name"))
	if err != nil {
		return Config{}, err
	}
	cfg.UsernameProviders = providers

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	if cfg.IsProduction() {
		if cfg.AuthIssuerURL == "" {
			return Config{}, fmt.Errorf("AUTH_ISSUER_URL is required in production")
		}
		if cfg.AuthJWTSecret == "" {
			return Config{}, fmt.Errorf("AUTH_JWT_SECRET is required in production")
		}
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// resolveAppOrigin validates the trusted application origin. Production requires
// an explicit value; everything else falls back to localhost.
func resolveAppOrigin(raw, environment string) (string, error) {
	if raw == "" {
		if strings.EqualFold(environment, "production") {
			return "", fmt.Errorf("APP_ORIGIN is required in production")
		}
		return DefaultAppOrigin, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid APP_ORIGIN %q", raw)
	}

	return parsed.Scheme + "://" + parsed.Host, nil
}

func parseUsernameProviders(value string) (map[string]string, error) {
	mapping := make(map[string]string)
	for _, pair := range parseCSV(value) {
		provider, field, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid USERNAME_PROVIDERS entry %q", pair)
		}
		provider = strings.ToLower(strings.TrimSpace(provider))
		field = strings.TrimSpace(field)
		if provider == "" || field == "" {
			return nil, fmt.Errorf("invalid USERNAME_PROVIDERS entry %q", pair)
		}
		mapping[provider] = field
	}
	return mapping, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
