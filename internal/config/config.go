package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest accepted HMAC signing key, in bytes.
const MinSecretLength = 32

// Store backends selectable with APP_STORE.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The signing key is never given a default: the
// process must not start without one.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	Store           string        // user store backend: mysql | memory
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       []byte        // HMAC key used to sign and verify tokens
	AccessTTL       time.Duration // access token time-to-live
	RefreshTTL      time.Duration // refresh token time-to-live, longer than AccessTTL
	RefreshRotation bool          // issue a new refresh token on every refresh
	BcryptCost      int           // bcrypt cost for password hashing
	Admin           AdminSeed     // default administrator created at bootstrap
	AuditConsumer   bool          // run the auth event consumer in-process
	AMQPURL         string        // broker URL for auth events; empty disables publishing
}

// AdminSeed describes the administrator account created when none exists.
type AdminSeed struct {
	Email      string
	Password   string
	Firstname  string
	Secondname string
}

// Load reads configuration values from environment variables and returns
// a Config. Every problem found is reported in the returned error, so a
// misconfigured process can be fixed in one pass.
func Load() (Config, error) {
	var env envReader

	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		Store:           strings.ToLower(envStr("APP_STORE", StoreMySQL)),
		DBUser:          os.Getenv("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          envStr("DB_PORT", "3306"),
		DBName:          os.Getenv("DB_NAME"),
		AccessTTL:       env.duration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:      env.duration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RefreshRotation: env.boolean("REFRESH_ROTATION", true),
		BcryptCost:      env.integer("BCRYPT_COST", 10),
		Admin: AdminSeed{
			Email:      envStr("ADMIN_EMAIL", "admin1@gmail.com"),
			Password:   envStr("ADMIN_PASSWORD", "admin"),
			Firstname:  envStr("ADMIN_FIRSTNAME", "adminFirstname"),
			Secondname: envStr("ADMIN_SECONDNAME", "adminSecondname"),
		},
		AuditConsumer: env.boolean("AUDIT_CONSUMER_ENABLED", false),
		AMQPURL:       firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
	}
	errs := env.errs

	secret, err := loadSecret()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.JWTSecret = secret

	switch cfg.Store {
	case StoreMySQL:
		for key, v := range map[string]string{"DB_USER": cfg.DBUser, "DB_HOST": cfg.DBHost, "DB_NAME": cfg.DBName} {
			if v == "" {
				errs = append(errs, fmt.Errorf("missing required env var: %s", key))
			}
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid APP_STORE %q", cfg.Store))
	}

	if cfg.AccessTTL < time.Second {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL must be at least 1s, got %s", cfg.AccessTTL))
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_TTL (%s) must exceed ACCESS_TOKEN_TTL (%s)", cfg.RefreshTTL, cfg.AccessTTL))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within 4..31, got %d", cfg.BcryptCost))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are named) without overriding variables already set in the environment.
// Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// loadSecret reads the signing key from JWT_SECRET_FILE when set (a
// mounted secret, rotated by replacing the file and restarting), or from
// JWT_SECRET otherwise.
func loadSecret() ([]byte, error) {
	var secret string
	if path := os.Getenv("JWT_SECRET_FILE"); path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read JWT_SECRET_FILE: %w", err)
		}
		secret = strings.TrimRight(string(bs), "\r\n")
	} else {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return nil, errors.New("missing signing key: set JWT_SECRET or JWT_SECRET_FILE")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	return []byte(secret), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// The env* helpers below fall back to d on unset and malformed values.
// Load uses envReader instead, which reports malformed values.

func envBool(k string, d bool) bool {
	v, _ := lookupBool(k, d)
	return v
}

func envInt(k string, d int) int {
	v, _ := lookupInt(k, d)
	return v
}

func envDur(k string, d time.Duration) time.Duration {
	v, _ := lookupDur(k, d)
	return v
}

// envReader reads typed variables and collects one error per malformed
// value.
type envReader struct {
	errs []error
}

func (r *envReader) boolean(k string, d bool) bool {
	v, err := lookupBool(k, d)
	r.add(err)
	return v
}

func (r *envReader) integer(k string, d int) int {
	v, err := lookupInt(k, d)
	r.add(err)
	return v
}

func (r *envReader) duration(k string, d time.Duration) time.Duration {
	v, err := lookupDur(k, d)
	r.add(err)
	return v
}

func (r *envReader) add(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func invalidValue(k, v, want string) error {
	return fmt.Errorf("invalid %s %q: want %s", k, v, want)
}

func lookupBool(k string, d bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d, invalidValue(k, v, "a boolean")
	}
	return b, nil
}

func lookupInt(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d, invalidValue(k, v, "an integer")
	}
	return n, nil
}

func lookupDur(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return d, invalidValue(k, v, "a duration such as 15m")
	}
	return dur, nil
}
