package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
	StoreMemory   StoreDriver = "memory"
)

var ErrMissingEnv = errors.New("missing required environment variable")

type Config struct {
	Port         string
	PublicOrigin string
	AssetBaseURL string

	StoreDriver StoreDriver
	DatabaseURL string
	SQLitePath  string

	UploadDir      string
	MaxUploadBytes int64

	FirebaseBucket          string
	FirebaseCredentialsJSON string
	FirebaseCredentialsFile string

	RecordingMax time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	MetricsUser string
	MetricsPass string
	PprofSecret string

	CleanupInterval time.Duration
	BoardIdle       time.Duration
}

// UseFirebase reports whether uploads go to Firebase Storage instead of disk.
func (c Config) UseFirebase() bool { return c.FirebaseBucket != "" }

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Port:                    getenv("PORT", "5001"),
		PublicOrigin:            getenv("PUBLIC_ORIGIN", "http://localhost:3000"),
		AssetBaseURL:            getenv("ASSET_BASE_URL", "http://localhost:5001"),
		StoreDriver:             StoreDriver(strings.ToLower(getenv("STORE_DRIVER", string(StorePostgres)))),
		DatabaseURL:             getenv("DATABASE_URL", ""),
		SQLitePath:              getenv("SQLITE_PATH", "./data/bytegift.db"),
		UploadDir:               getenv("UPLOAD_DIR", "./uploads"),
		FirebaseBucket:          getenv("FIREBASE_STORAGE_BUCKET", ""),
		FirebaseCredentialsJSON: getenv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseCredentialsFile: getenv("FIREBASE_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		MetricsUser:             getenv("METRICS_USER", ""),
		MetricsPass:             getenv("METRICS_PASS", ""),
		PprofSecret:             getenv("PPROF_SECRET", ""),
	}

	var err error
	if cfg.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", 10<<20); err != nil {
		return Config{}, err
	}
	if cfg.RecordingMax, err = getSeconds("RECORDING_MAX_SECONDS", 30); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 5); err != nil {
		return Config{}, err
	}
	burst, err := getInt64("RATE_LIMIT_BURST", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitBurst = int(burst)

	minutes, err := getInt64("CLEANUP_INTERVAL_MINUTES", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupInterval = time.Duration(minutes) * time.Minute

	if minutes, err = getInt64("BOARD_IDLE_MINUTES", 120); err != nil {
		return Config{}, err
	}
	cfg.BoardIdle = time.Duration(minutes) * time.Minute

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("%w: DATABASE_URL", ErrMissingEnv)
		}
	case StoreSQLite, StoreMemory:
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getInt64(key string, def int64) (int64, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, v)
	}
	return f, nil
}

func getSeconds(key string, def int64) (time.Duration, error) {
	n, err := getInt64(key, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
