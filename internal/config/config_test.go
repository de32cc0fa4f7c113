package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `port: "8080"
logLevel: info
databaseURL: postgres://localhost:5432/quickgen
textModel: gemini-2.5-flash
clipdropAPIKey: cd_key
transformUploadURL: https://media.example.com/v1/image/upload
minioEndpoint: localhost:9000
minioAccessKey: ak
minioSecretKey: sk
minioBucket: artifacts
identityBaseURL: https://id.example.com
identitySecretKey: sk_test
identityJwksURL: https://id.example.com/.well-known/jwks.json
jwtIssuer: https://id.example.com
redisAddr: localhost:6379
imageExtensions: [".png", ".jpg"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.TextModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.ImageExtensions) != 2 {
		t.Fatalf("image extensions: %v", cfg.ImageExtensions)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://override:5432/db")
	t.Setenv("CLIPDROP_API_KEY", "cd_override")
	t.Setenv("QUICKGEN_AI_RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("QUICKGEN_IMAGE_EXTENSIONS", ".png, .webp")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://override:5432/db" {
		t.Fatalf("databaseURL override: %q", cfg.DatabaseURL)
	}
	if cfg.ClipdropAPIKey != "cd_override" {
		t.Fatalf("clipdrop override: %q", cfg.ClipdropAPIKey)
	}
	if cfg.AIRateLimitPerMinute != 5 {
		t.Fatalf("rate limit override: %d", cfg.AIRateLimitPerMinute)
	}
	if len(cfg.ImageExtensions) != 2 || cfg.ImageExtensions[1] != ".webp" {
		t.Fatalf("extensions override: %v", cfg.ImageExtensions)
	}
}

func TestLoadMissingRequiredField(t *testing.T) {
	yaml := `port: "8080"
databaseURL: postgres://localhost:5432/quickgen
`
	if _, err := Load(writeConfig(t, yaml)); err == nil {
		t.Fatal("expected validation error for incomplete config")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseJWTLeeway(t *testing.T) {
	if d, err := ParseJWTLeeway(""); err != nil || d != 0 {
		t.Fatalf("empty leeway: d=%v err=%v", d, err)
	}
	if d, err := ParseJWTLeeway("45s"); err != nil || d != 45*time.Second {
		t.Fatalf("leeway 45s: d=%v err=%v", d, err)
	}
	if _, err := ParseJWTLeeway("bogus"); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestParseArtifactURLExpiry(t *testing.T) {
	if d, err := ParseArtifactURLExpiry("168h"); err != nil || d != 168*time.Hour {
		t.Fatalf("expiry 168h: d=%v err=%v", d, err)
	}
	if _, err := ParseArtifactURLExpiry("later"); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
