package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location, overridable via CONFIG_PATH.
var ConfigPath = func() string {
	if v := strings.TrimSpace(os.Getenv("CONFIG_PATH")); v != "" {
		return v
	}
	return "config.yaml"
}()

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	TextBaseURL string `yaml:"textBaseURL"`
	TextAPIKey  string `yaml:"textAPIKey"`
	TextModel   string `yaml:"textModel"`

	ClipdropAPIKey  string `yaml:"clipdropAPIKey"`
	ClipdropBaseURL string `yaml:"clipdropBaseURL"`

	TransformUploadURL string `yaml:"transformUploadURL"`
	TransformAPIKey    string `yaml:"transformAPIKey"`

	MinioEndpoint     string `yaml:"minioEndpoint"`
	MinioAccessKey    string `yaml:"minioAccessKey"`
	MinioSecretKey    string `yaml:"minioSecretKey"`
	MinioBucket       string `yaml:"minioBucket"`
	MinioUseSSL       bool   `yaml:"minioUseSSL"`
	ArtifactURLExpiry string `yaml:"artifactURLExpiry"`

	IdentityBaseURL   string `yaml:"identityBaseURL"`
	IdentitySecretKey string `yaml:"identitySecretKey"`
	IdentityJWKSURL   string `yaml:"identityJwksURL"`
	JWTIssuer         string `yaml:"jwtIssuer"`
	JWTAudience       string `yaml:"jwtAudience"`
	JWTLeeway         string `yaml:"jwtLeeway"`

	RedisAddr            string `yaml:"redisAddr"`
	RedisPassword        string `yaml:"redisPassword"`
	AIRateLimitPerMinute int    `yaml:"aiRateLimitPerMinute"`

	MaxUploadBytes   int64    `yaml:"maxUploadBytes"`
	ImageExtensions  []string `yaml:"imageExtensions"`
	ResumeExtensions []string `yaml:"resumeExtensions"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("TEXT_BASE_URL"); v != "" {
		cfg.TextBaseURL = v
	}
	if v := os.Getenv("TEXT_API_KEY"); v != "" {
		cfg.TextAPIKey = v
	}
	if v := os.Getenv("TEXT_MODEL"); v != "" {
		cfg.TextModel = v
	}
	if v := os.Getenv("CLIPDROP_API_KEY"); v != "" {
		cfg.ClipdropAPIKey = v
	}
	if v := os.Getenv("CLIPDROP_BASE_URL"); v != "" {
		cfg.ClipdropBaseURL = v
	}
	if v := os.Getenv("TRANSFORM_UPLOAD_URL"); v != "" {
		cfg.TransformUploadURL = v
	}
	if v := os.Getenv("TRANSFORM_API_KEY"); v != "" {
		cfg.TransformAPIKey = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("IDENTITY_BASE_URL"); v != "" {
		cfg.IdentityBaseURL = v
	}
	if v := os.Getenv("IDENTITY_SECRET_KEY"); v != "" {
		cfg.IdentitySecretKey = v
	}
	if v := os.Getenv("IDENTITY_JWKS_URL"); v != "" {
		cfg.IdentityJWKSURL = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("QUICKGEN_AI_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AIRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("QUICKGEN_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("QUICKGEN_IMAGE_EXTENSIONS"); v != "" {
		cfg.ImageExtensions = splitCSV(v)
	}
	if v := os.Getenv("QUICKGEN_RESUME_EXTENSIONS"); v != "" {
		cfg.ResumeExtensions = splitCSV(v)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.TextModel == "" {
		return errors.New("config: textModel is required (set in config.yaml)")
	}
	if cfg.ClipdropAPIKey == "" {
		return errors.New("config: clipdropAPIKey is required (set in config.yaml or CLIPDROP_API_KEY)")
	}
	if cfg.TransformUploadURL == "" {
		return errors.New("config: transformUploadURL is required (set in config.yaml)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml)")
	}
	if cfg.MinioAccessKey == "" {
		return errors.New("config: minioAccessKey is required (set in config.yaml)")
	}
	if cfg.MinioSecretKey == "" {
		return errors.New("config: minioSecretKey is required (set in config.yaml)")
	}
	if cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required (set in config.yaml)")
	}
	if cfg.IdentityBaseURL == "" {
		return errors.New("config: identityBaseURL is required (set in config.yaml)")
	}
	if cfg.IdentitySecretKey == "" {
		return errors.New("config: identitySecretKey is required (set in config.yaml or IDENTITY_SECRET_KEY)")
	}
	if cfg.IdentityJWKSURL == "" {
		return errors.New("config: identityJwksURL is required (set in config.yaml or IDENTITY_JWKS_URL)")
	}
	if cfg.JWTIssuer == "" {
		return errors.New("config: jwtIssuer is required (set in config.yaml or JWT_ISSUER)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.AIRateLimitPerMinute < 0 {
		return errors.New("config: aiRateLimitPerMinute must be >= 0")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseJWTLeeway parses the optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}

// ParseArtifactURLExpiry parses the optional artifact URL expiry duration.
func ParseArtifactURLExpiry(expiryStr string) (time.Duration, error) {
	if expiryStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(expiryStr)
	if err != nil {
		return 0, fmt.Errorf("invalid artifactURLExpiry duration: %w", err)
	}
	return dur, nil
}
