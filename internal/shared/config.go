package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	HTTPTimeout time.Duration
	MetricsAddr string
	MySQLDSN    string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	GeocodingBase string
	GeocodingKey  string
	GeocodingRPS  int

	JWTSecret string

	ImageBackend   string // local|minio
	UploadDir      string
	MaxUploadBytes int64
	CleanupTimeout time.Duration
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	NATSURL string

	SeedOwnerIDs []string
	SeedWorkers  int
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	secs := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Second
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		HTTPTimeout: secs("HTTP_TIMEOUT_SECONDS", 15),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/sneakers?parseTime=true&charset=utf8mb4&loc=UTC"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  secs("CACHE_TTL_SECONDS", 300),

		GeocodingBase: env("GEOCODING_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		GeocodingKey:  env("GEOCODING_API_KEY", ""),
		GeocodingRPS:  atoi("GEOCODING_RPS", 5),

		JWTSecret: env("JWT_SECRET", ""),

		ImageBackend:   strings.ToLower(env("IMAGE_BACKEND", "local")),
		UploadDir:      env("UPLOAD_DIR", "uploads/images"),
		MaxUploadBytes: int64(atoi("MAX_UPLOAD_BYTES", 500000)),
		CleanupTimeout: secs("CLEANUP_TIMEOUT_SECONDS", 10),
		MinioEndpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: env("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: env("MINIO_SECRET_KEY", ""),
		MinioBucket:    env("MINIO_BUCKET", "sneakers"),
		MinioUseSSL:    env("MINIO_USE_SSL", "false") == "true",

		NATSURL: os.Getenv("NATS_URL"),

		SeedOwnerIDs: splitList(os.Getenv("SEED_OWNER_IDS")),
		SeedWorkers:  atoi("SEED_WORKERS", 4),
	}
	if c.GeocodingKey == "" {
		log.Warn().Msg("GEOCODING_API_KEY is empty")
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
