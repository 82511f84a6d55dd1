package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/temporalx"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string

	JWTSecretKey   string
	AccessTokenTTL time.Duration
	CORSOrigins    []string

	ResolveTimeout    time.Duration
	PendingSweepEvery time.Duration
	PendingSweepBatch int

	Temporal temporalx.Config
}

// SeedEnvFromFile copies top-level scalar keys from a YAML file into the
// process environment. Variables already set in the environment win.
func SeedEnvFromFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for k, v := range values {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			return fmt.Errorf("config key %s: only scalar values are supported", key)
		}
		if err := os.Setenv(key, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func LoadConfig(log *logger.Logger) (Config, error) {
	if err := SeedEnvFromFile(os.Getenv("CONFIG_FILE")); err != nil {
		return Config{}, err
	}
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "knowledge-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		CORSOrigins:    splitList(envutil.String("CORS_ALLOW_ORIGINS", "")),

		ResolveTimeout:    envutil.Seconds("RESOLVE_TIMEOUT_SECONDS", 30*time.Second),
		PendingSweepEvery: envutil.Seconds("PENDING_SWEEP_SECONDS", time.Minute),
		PendingSweepBatch: envutil.Int("PENDING_SWEEP_BATCH", 50),

		Temporal: temporalx.LoadConfig(),
	}
	if cfg.JWTSecretKey == "" {
		if cfg.Environment == "production" {
			return Config{}, fmt.Errorf("JWT_SECRET_KEY is required in production")
		}
		if log != nil {
			log.Warn("JWT_SECRET_KEY not set; using an insecure development secret")
		}
		cfg.JWTSecretKey = "dev-insecure-secret"
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
