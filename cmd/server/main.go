package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"quickgen/internal/app"
	"quickgen/internal/config"
	"quickgen/internal/server"
	"quickgen/internal/usertoken"
	"quickgen/internal/util"
	"quickgen/pkg/identity"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse JWT leeway: %v", err)
	}
	artifactURLExpiry, err := config.ParseArtifactURLExpiry(cfg.ArtifactURLExpiry)
	if err != nil {
		log.Fatalf("failed to parse artifact URL expiry: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	identityClient := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentitySecretKey)

	appCore, err := app.New(app.Config{
		DatabaseURL:        cfg.DatabaseURL,
		TextBaseURL:        cfg.TextBaseURL,
		TextAPIKey:         cfg.TextAPIKey,
		TextModel:          cfg.TextModel,
		ClipdropAPIKey:     cfg.ClipdropAPIKey,
		ClipdropBaseURL:    cfg.ClipdropBaseURL,
		TransformUploadURL: cfg.TransformUploadURL,
		TransformAPIKey:    cfg.TransformAPIKey,
		MinioEndpoint:      cfg.MinioEndpoint,
		MinioAccessKey:     cfg.MinioAccessKey,
		MinioSecretKey:     cfg.MinioSecretKey,
		MinioBucket:        cfg.MinioBucket,
		MinioUseSSL:        cfg.MinioUseSSL,
		ArtifactURLExpiry:  artifactURLExpiry,
		Usage:              identityClient,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	verifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:  cfg.IdentityJWKSURL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                  appCore,
		Identity:             identityClient,
		TokenVerifier:        verifier,
		RedisAddr:            cfg.RedisAddr,
		RedisPassword:        cfg.RedisPassword,
		AIRateLimitPerMinute: cfg.AIRateLimitPerMinute,
		MaxUploadBytes:       cfg.MaxUploadBytes,
		ImageExtensions:      cfg.ImageExtensions,
		ResumeExtensions:     cfg.ResumeExtensions,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
