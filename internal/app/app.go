package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"quickgen/internal/util"
	"quickgen/pkg/ai"
	"quickgen/pkg/domain"
	"quickgen/pkg/imaging"
	"quickgen/pkg/storage"
	"quickgen/pkg/store"
)

const (
	articleTemperature   = 0.8
	blogTitleTemperature = 0.7
	reviewTemperature    = 0.7

	blogTitleMaxTokens = 1000
	completionTokenCap = 4000

	defaultArticleLength = 800
)

// UsageUpdater writes the free-usage counter back to the identity provider.
type UsageUpdater interface {
	SetFreeUsage(userID string, freeUsage int) error
}

// Config holds runtime configuration for the core application. Dependency
// fields override the clients built from the remaining settings; tests
// inject fakes through them.
type Config struct {
	DatabaseURL string
	Store       store.Store

	TextBaseURL string
	TextAPIKey  string
	TextModel   string
	Generator   ai.TextGenerator

	ClipdropAPIKey  string
	ClipdropBaseURL string
	Images          imaging.ImageGenerator
	Backgrounds     imaging.BackgroundRemover

	TransformUploadURL string
	TransformAPIKey    string
	Objects            imaging.ObjectRemover

	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
	MinioBucket       string
	MinioUseSSL       bool
	ArtifactURLExpiry time.Duration
	Artifacts         storage.ArtifactStore

	Usage UsageUpdater
}

// App is the core application service: quota decisions, provider calls,
// the creation ledger and the usage counter write-back.
type App struct {
	store       store.Store
	generator   ai.TextGenerator
	images      imaging.ImageGenerator
	backgrounds imaging.BackgroundRemover
	objects     imaging.ObjectRemover
	artifacts   storage.ArtifactStore
	usage       UsageUpdater
}

// New constructs the application, building the default provider clients for
// any dependency not supplied in cfg.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	generator := cfg.Generator
	if generator == nil {
		if cfg.TextModel == "" {
			return nil, fmt.Errorf("text generation model required")
		}
		generator = ai.NewOpenAICompatGenerator(cfg.TextBaseURL, cfg.TextAPIKey, cfg.TextModel)
	}

	images := cfg.Images
	backgrounds := cfg.Backgrounds
	if images == nil || backgrounds == nil {
		clipdrop, err := imaging.NewClipdropClient(cfg.ClipdropAPIKey, cfg.ClipdropBaseURL)
		if err != nil {
			return nil, err
		}
		if images == nil {
			images = clipdrop
		}
		if backgrounds == nil {
			backgrounds = clipdrop
		}
	}

	objects := cfg.Objects
	if objects == nil {
		transform, err := imaging.NewTransformClient(cfg.TransformUploadURL, cfg.TransformAPIKey)
		if err != nil {
			return nil, err
		}
		objects = transform
	}

	artifacts := cfg.Artifacts
	if artifacts == nil {
		var err error
		artifacts, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.ArtifactURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("init artifact store: %w", err)
		}
	}

	if cfg.Usage == nil {
		return nil, fmt.Errorf("usage updater required")
	}

	return &App{
		store:       dataStore,
		generator:   generator,
		images:      images,
		backgrounds: backgrounds,
		objects:     objects,
		artifacts:   artifacts,
		usage:       cfg.Usage,
	}, nil
}

// GenerateArticle is a metered text operation producing a Markdown article.
func (a *App) GenerateArticle(ctx context.Context, user domain.User, prompt string, length int) (string, error) {
	if err := admitText(user); err != nil {
		return "", err
	}
	if length <= 0 {
		length = defaultArticleLength
	}
	maxTokens := 2 * length
	if maxTokens > completionTokenCap {
		maxTokens = completionTokenCap
	}
	fullPrompt := fmt.Sprintf("Write a comprehensive article about: %s.\nLength: Please aim for around %d words.\nFormat: Use Markdown with clear headings.", prompt, length)
	content, err := a.generator.GenerateText(ctx, ai.TextRequest{
		Prompt:      fullPrompt,
		Temperature: articleTemperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if _, err := a.store.RecordCreation(domain.Creation{
		UserID:  user.ID,
		Prompt:  prompt,
		Content: content,
		Type:    domain.TypeArticle,
	}); err != nil {
		return "", fmt.Errorf("record creation: %w", err)
	}
	if err := a.bumpFreeUsage(user); err != nil {
		return "", err
	}
	return content, nil
}

// GenerateBlogTitles is a metered text operation producing ten titles.
func (a *App) GenerateBlogTitles(ctx context.Context, user domain.User, prompt string) (string, error) {
	if err := admitText(user); err != nil {
		return "", err
	}
	fullPrompt := fmt.Sprintf("Topic: %s\nTask: Write 10 catchy blog titles.\nRules:\n- Start directly with \"1.\"\n- No introductory text.\n- No \"Here are the titles\".\n- Keep titles concise.", prompt)
	content, err := a.generator.GenerateText(ctx, ai.TextRequest{
		Prompt:      fullPrompt,
		Temperature: blogTitleTemperature,
		MaxTokens:   blogTitleMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if _, err := a.store.RecordCreation(domain.Creation{
		UserID:  user.ID,
		Prompt:  prompt,
		Content: content,
		Type:    domain.TypeBlogTitle,
	}); err != nil {
		return "", fmt.Errorf("record creation: %w", err)
	}
	if err := a.bumpFreeUsage(user); err != nil {
		return "", err
	}
	return content, nil
}

// GenerateImage produces an image from a prompt and stores it as an
// artifact. Premium only. A ledger failure here is logged and swallowed so
// the caller still gets the artifact URL they paid the provider call for.
func (a *App) GenerateImage(ctx context.Context, user domain.User, prompt string, publish bool) (string, error) {
	if err := admitPremium(user); err != nil {
		return "", err
	}
	data, err := a.images.TextToImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	url, err := a.artifacts.Save(ctx, buildArtifactKey(user.ID), data, "image/png")
	if err != nil {
		return "", err
	}
	if _, err := a.store.RecordCreation(domain.Creation{
		UserID:  user.ID,
		Prompt:  prompt,
		Content: url,
		Type:    domain.TypeImage,
		Publish: publish,
	}); err != nil {
		slog.Error("record image creation failed, returning artifact anyway",
			"user_id", user.ID, "err", err)
	}
	return url, nil
}

// RemoveBackground strips the background from an uploaded image. Premium only.
func (a *App) RemoveBackground(ctx context.Context, user domain.User, imagePath string) (string, error) {
	if err := admitPremium(user); err != nil {
		return "", err
	}
	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	data, err := a.backgrounds.RemoveBackground(ctx, file, filepath.Base(imagePath))
	if err != nil {
		return "", err
	}
	url, err := a.artifacts.Save(ctx, buildArtifactKey(user.ID), data, "image/png")
	if err != nil {
		return "", err
	}
	if _, err := a.store.RecordCreation(domain.Creation{
		UserID:  user.ID,
		Prompt:  "Background Removal",
		Content: url,
		Type:    domain.TypeImage,
	}); err != nil {
		return "", fmt.Errorf("record creation: %w", err)
	}
	return url, nil
}

// RemoveObject removes a named object from an uploaded image through the
// hosted transform provider. Premium only. The provider hosts the result,
// so there is no separate artifact upload.
func (a *App) RemoveObject(ctx context.Context, user domain.User, imagePath, object string) (string, error) {
	if err := admitPremium(user); err != nil {
		return "", err
	}
	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	url, err := a.objects.RemoveObject(ctx, file, filepath.Base(imagePath), object)
	if err != nil {
		return "", err
	}
	if _, err := a.store.RecordCreation(domain.Creation{
		UserID:  user.ID,
		Prompt:  fmt.Sprintf("Removed %s from image", object),
		Content: url,
		Type:    domain.TypeImage,
	}); err != nil {
		return "", fmt.Errorf("record creation: %w", err)
	}
	return url, nil
}

// ReviewResume extracts text from an uploaded PDF and generates a Markdown
// review. Premium only.
func (a *App) ReviewResume(ctx context.Context, user domain.User, resumePath string) (string, error) {
	if err := admitPremium(user); err != nil {
		return "", err
	}
	text, err := extractResumeText(resumePath)
	if err != nil {
		return "", err
	}
	fullPrompt := fmt.Sprintf("Review the following resume and provide feedback in Markdown format. Resume Content:\n\n%s", text)
	content, err := a.generator.GenerateText(ctx, ai.TextRequest{
		Prompt:      fullPrompt,
		Temperature: reviewTemperature,
		MaxTokens:   completionTokenCap,
	})
	if err != nil {
		return "", err
	}
	if _, err := a.store.RecordCreation(domain.Creation{
		UserID:  user.ID,
		Prompt:  "Review the uploaded resume",
		Content: content,
		Type:    domain.TypeResumeReview,
	}); err != nil {
		return "", fmt.Errorf("record creation: %w", err)
	}
	return content, nil
}

// ListUserCreations returns the caller's creations, newest first.
func (a *App) ListUserCreations(userID string) ([]domain.Creation, error) {
	return a.store.ListCreationsByUser(userID)
}

// ListPublishedCreations returns all published creations, newest first.
func (a *App) ListPublishedCreations() ([]domain.Creation, error) {
	return a.store.ListPublishedCreations()
}

// ToggleLike flips the caller's like on a creation.
func (a *App) ToggleLike(creationID, userID string) (domain.LikeTransition, error) {
	return a.store.ToggleLike(creationID, userID)
}

// bumpFreeUsage writes freeUsage+1 for non-premium callers after a metered
// operation succeeds. The snapshot read at admission is reused; concurrent
// requests by the same user can lose an increment (kept as-is, matching the
// provider-side counter semantics).
func (a *App) bumpFreeUsage(user domain.User) error {
	if user.Plan == domain.PlanPremium {
		return nil
	}
	if err := a.usage.SetFreeUsage(user.ID, user.FreeUsage+1); err != nil {
		return fmt.Errorf("update free usage: %w", err)
	}
	return nil
}

func buildArtifactKey(userID string) string {
	return fmt.Sprintf("creations/%s/%s.png", userID, util.NewID())
}
