package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	defaultTokenTTL     = time.Hour
	defaultTokenCookie  = "token"
	defaultClientURL    = "http://localhost:5173"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Storage   StorageConfig
	PSP       PSPConfig
	Auth      AuthConfig
	PubSub    PubSubConfig
	Client    ClientConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig lists the bucket used for uploaded product imagery.
type StorageConfig struct {
	ImagesBucket string
}

// PSPConfig collects payment provider credentials.
type PSPConfig struct {
	StripeAPIKey string
}

// AuthConfig controls token issuing and verification.
type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	CookieName  string
	CookieHTTPS bool
}

// PubSubConfig names the topic order and review events are published on and
// the subscription the rating projector consumes.
type PubSubConfig struct {
	ProjectID          string
	EventsTopic        string
	EventsSubscription string
}

// ClientConfig holds the browser client origin used for checkout redirects.
type ClientConfig struct {
	BaseURL string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loadOptions)

type loadOptions struct {
	envFile string
	lookup  func(string) (string, bool)
}

// WithEnvFile overrides the .env file consulted before process environment.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		if strings.TrimSpace(path) != "" {
			o.envFile = path
		}
	}
}

// WithLookup overrides the environment lookup, primarily for tests.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) {
		if lookup != nil {
			o.lookup = lookup
		}
	}
}

// Load reads configuration from the environment, falling back to a .env file
// for keys the process environment does not define.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{
		envFile: defaultEnvFile,
		lookup:  os.LookupEnv,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	fileValues := readEnvFile(options.envFile)
	get := func(key string) string {
		if value, ok := options.lookup(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(fileValues[key])
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         firstNonEmpty(get("API_PORT"), defaultPort),
			ReadTimeout:  durationOrDefault(get("API_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOrDefault(get("API_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOrDefault(get("API_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    firstNonEmpty(get("API_FIRESTORE_PROJECT_ID"), get("GOOGLE_CLOUD_PROJECT")),
			EmulatorHost: get("FIRESTORE_EMULATOR_HOST"),
		},
		Storage: StorageConfig{
			ImagesBucket: get("API_STORAGE_IMAGES_BUCKET"),
		},
		PSP: PSPConfig{
			StripeAPIKey: firstNonEmpty(get("API_STRIPE_SECRET_KEY"), get("STRIPE_SECRET_KEY")),
		},
		Auth: AuthConfig{
			JWTSecret:   firstNonEmpty(get("API_JWT_SECRET_KEY"), get("JWT_SECRET_KEY")),
			TokenTTL:    durationOrDefault(get("API_TOKEN_TTL"), defaultTokenTTL),
			CookieName:  firstNonEmpty(get("API_TOKEN_COOKIE"), defaultTokenCookie),
			CookieHTTPS: boolValue(get("API_TOKEN_COOKIE_SECURE"), true),
		},
		PubSub: PubSubConfig{
			ProjectID:          firstNonEmpty(get("API_PUBSUB_PROJECT_ID"), get("API_FIRESTORE_PROJECT_ID"), get("GOOGLE_CLOUD_PROJECT")),
			EventsTopic:        get("API_PUBSUB_EVENTS_TOPIC"),
			EventsSubscription: get("API_PUBSUB_EVENTS_SUBSCRIPTION"),
		},
		Client: ClientConfig{
			BaseURL: firstNonEmpty(get("API_CLIENT_BASE_URL"), defaultClientURL),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Firestore.ProjectID) == "" && strings.TrimSpace(cfg.Firestore.EmulatorHost) == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if strings.TrimSpace(cfg.PSP.StripeAPIKey) == "" {
		missing = append(missing, "PSP.StripeAPIKey")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		missing = append(missing, "Auth.JWTSecret")
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ValidationError{fields: missing}
}

func readEnvFile(path string) map[string]string {
	values := make(map[string]string)
	if strings.TrimSpace(path) == "" {
		return values
	}
	file, err := os.Open(path)
	if err != nil {
		return values
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if key == "" {
			continue
		}
		values[key] = value
	}
	return values
}

func durationOrDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func boolValue(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
