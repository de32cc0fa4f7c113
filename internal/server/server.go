package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quickgen/internal/app"
	"quickgen/internal/ratelimit"
	"quickgen/internal/usertoken"
	"quickgen/internal/util"
	"quickgen/pkg/domain"
	"quickgen/pkg/identity"
	"quickgen/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                  *app.App
	Identity             *identity.Client
	TokenVerifier        *usertoken.Verifier
	RedisAddr            string
	RedisPassword        string
	AIRateLimitPerMinute int
	MaxUploadBytes       int64
	ImageExtensions      []string
	ResumeExtensions     []string
}

// Server exposes the HTTP endpoints for the gateway.
type Server struct {
	app              *app.App
	identity         *identity.Client
	tokenVerifier    *usertoken.Verifier
	mux              *http.ServeMux
	aiLimiter        *ratelimit.FixedWindowLimiter
	maxUploadBytes   int64
	imageExtensions  map[string]struct{}
	resumeExtensions map[string]struct{}
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	aiLimit := cfg.AIRateLimitPerMinute
	if aiLimit <= 0 {
		aiLimit = 30
	}
	aiLimiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword,
		"quickgen:ratelimit:ai", aiLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init ai limiter: %w", err)
	}
	s := &Server{
		app:              cfg.App,
		identity:         cfg.Identity,
		tokenVerifier:    cfg.TokenVerifier,
		mux:              http.NewServeMux(),
		aiLimiter:        aiLimiter,
		maxUploadBytes:   normalizeMaxBytes(cfg.MaxUploadBytes),
		imageExtensions:  normalizeExtensions(cfg.ImageExtensions, []string{".png", ".jpg", ".jpeg", ".webp"}),
		resumeExtensions: normalizeExtensions(cfg.ResumeExtensions, []string{".pdf"}),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("gateway", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// generation endpoints
	s.mux.Handle("/api/ai/generate-article", s.authenticated(s.rateLimited(s.handleGenerateArticle)))
	s.mux.Handle("/api/ai/generate-blog-title", s.authenticated(s.rateLimited(s.handleGenerateBlogTitle)))
	s.mux.Handle("/api/ai/generate-image", s.authenticated(s.rateLimited(s.handleGenerateImage)))
	s.mux.Handle("/api/ai/remove-image-background", s.authenticated(s.rateLimited(s.handleRemoveBackground)))
	s.mux.Handle("/api/ai/remove-image-object", s.authenticated(s.rateLimited(s.handleRemoveObject)))
	s.mux.Handle("/api/ai/resume-review", s.authenticated(s.rateLimited(s.handleResumeReview)))

	// creations
	s.mux.Handle("/api/user/get-user-creations", s.authenticated(s.handleUserCreations))
	s.mux.Handle("/api/user/get-published-creations", s.authenticated(s.handlePublishedCreations))
	s.mux.Handle("/api/user/toggle-like-creation", s.authenticated(s.handleToggleLike))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

// authenticated verifies the access token locally, then resolves the caller
// (plan and free usage included) at the identity provider. Plan state is
// never cached between requests.
func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "gateway.authorize", "fail", "reason", "missing_token")
			writeUnauthorized(w)
			return
		}
		if s.tokenVerifier != nil {
			if _, err := s.tokenVerifier.VerifySubject(token); err != nil {
				s.audit(r, "gateway.authorize", "fail", "reason", "invalid_signature_or_claims")
				writeUnauthorized(w)
				return
			}
		}
		user, err := s.identity.Me(token)
		if err != nil {
			s.audit(r, "gateway.authorize", "fail", "reason", "identity_me_failed")
			writeUnauthorized(w)
			return
		}
		s.audit(r, "gateway.authorize", "success", "user_id", user.ID)
		next(w, r, user)
	})
}

func (s *Server) rateLimited(next authHandler) authHandler {
	return func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if !s.aiLimiter.Allow(user.ID) {
			s.audit(r, "gateway.ai", "rate_limited", "user_id", user.ID)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Message: "Too many requests. Try again in a minute."})
			return
		}
		next(w, r, user)
	}
}

// text generation handlers

func (s *Server) handleGenerateArticle(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req articleRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeFailureMsg(w, "Invalid JSON body.")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeFailureMsg(w, "Prompt is required.")
		return
	}
	content, err := s.app.GenerateArticle(r.Context(), user, req.Prompt, req.Length)
	if err != nil {
		s.failAI(w, r, "generate_article", user, err)
		return
	}
	writeContent(w, content)
}

func (s *Server) handleGenerateBlogTitle(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req promptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeFailureMsg(w, "Invalid JSON body.")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeFailureMsg(w, "Prompt is required.")
		return
	}
	content, err := s.app.GenerateBlogTitles(r.Context(), user, req.Prompt)
	if err != nil {
		s.failAI(w, r, "generate_blog_title", user, err)
		return
	}
	writeContent(w, content)
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req imageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeFailureMsg(w, "Invalid JSON body.")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeFailureMsg(w, "Prompt is required.")
		return
	}
	url, err := s.app.GenerateImage(r.Context(), user, req.Prompt, req.Publish)
	if err != nil {
		s.failAI(w, r, "generate_image", user, err)
		return
	}
	writeContent(w, url)
}

// upload handlers

func (s *Server) handleRemoveBackground(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	path, cleanup, ok := s.saveUpload(w, r, "image", s.imageExtensions)
	if !ok {
		return
	}
	defer cleanup()
	url, err := s.app.RemoveBackground(r.Context(), user, path)
	if err != nil {
		s.failAI(w, r, "remove_background", user, err)
		return
	}
	writeContent(w, url)
}

func (s *Server) handleRemoveObject(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	path, cleanup, ok := s.saveUpload(w, r, "image", s.imageExtensions)
	if !ok {
		return
	}
	defer cleanup()
	object := strings.TrimSpace(r.FormValue("object"))
	if object == "" {
		writeFailureMsg(w, "Object to remove is required.")
		return
	}
	url, err := s.app.RemoveObject(r.Context(), user, path, object)
	if err != nil {
		s.failAI(w, r, "remove_object", user, err)
		return
	}
	writeContent(w, url)
}

func (s *Server) handleResumeReview(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	path, cleanup, ok := s.saveUpload(w, r, "resume", s.resumeExtensions)
	if !ok {
		return
	}
	defer cleanup()
	content, err := s.app.ReviewResume(r.Context(), user, path)
	if err != nil {
		s.failAI(w, r, "resume_review", user, err)
		return
	}
	writeContent(w, content)
}

// saveUpload copies the multipart upload into a per-request temp file. The
// returned cleanup removes it and must run on every exit path.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request, field string, allowed map[string]struct{}) (string, func(), bool) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeFailureMsg(w, "Invalid form data.")
		return "", nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeFailureMsg(w, fmt.Sprintf("No file uploaded (field: %s).", field))
		return "", nil, false
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowed[ext]; !ok {
		writeFailureMsg(w, "Unsupported file type.")
		return "", nil, false
	}
	path, err := writeTempUpload(file, ext)
	if err != nil {
		slog.Error("save upload", "err", err)
		writeFailureMsg(w, "Could not store the uploaded file.")
		return "", nil, false
	}
	return path, func() { _ = os.Remove(path) }, true
}

func writeTempUpload(file multipart.File, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "quickgen-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// creation handlers

func (s *Server) handleUserCreations(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	creations, err := s.app.ListUserCreations(user.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeCreations(w, creations)
}

func (s *Server) handlePublishedCreations(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	creations, err := s.app.ListPublishedCreations()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeCreations(w, creations)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req toggleLikeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeFailureMsg(w, "Invalid JSON body.")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeFailureMsg(w, "Creation id is required.")
		return
	}
	transition, err := s.app.ToggleLike(req.ID, user.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	msg := "Creation Liked"
	if transition == domain.TransitionUnliked {
		msg = "Creation Unliked"
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
}

// failAI logs and converts an AI-path failure into the response envelope.
func (s *Server) failAI(w http.ResponseWriter, r *http.Request, op string, user domain.User, err error) {
	outcome := "fail"
	if errors.Is(err, app.ErrQuotaExceeded) || errors.Is(err, app.ErrPremiumRequired) {
		outcome = "denied"
	}
	s.audit(r, "gateway.ai."+op, outcome, "user_id", user.ID, "reason", err.Error())
	writeFailure(w, err)
}

// request types

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type articleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

type imageRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

type toggleLikeRequest struct {
	ID string `json:"id"`
}

// response envelope

type envelope struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// creationsEnvelope always carries the creations array, empty included.
type creationsEnvelope struct {
	Success   bool              `json:"success"`
	Creations []domain.Creation `json:"creations"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeContent(w http.ResponseWriter, content string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Content: content})
}

func writeCreations(w http.ResponseWriter, creations []domain.Creation) {
	if creations == nil {
		creations = []domain.Creation{}
	}
	writeJSON(w, http.StatusOK, creationsEnvelope{Success: true, Creations: creations})
}

// writeFailure maps an operation failure onto the success:false envelope.
// Business failures stay transport-level 200s.
func writeFailure(w http.ResponseWriter, err error) {
	writeFailureMsg(w, failureMessage(err))
}

func writeFailureMsg(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Success: false, Message: msg})
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrQuotaExceeded):
		return "Limit reached. Upgrade to continue."
	case errors.Is(err, app.ErrPremiumRequired):
		return "This feature is only available for premium subscriptions."
	case errors.Is(err, app.ErrNoResumeText):
		return "Could not extract text from the PDF file."
	case errors.Is(err, store.ErrCreationNotFound):
		return "Creation not found"
	default:
		return err.Error()
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Unauthorized."})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Message: "Method not allowed."})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 20 * 1024 * 1024
	}
	return value
}

func normalizeExtensions(exts, fallback []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = fallback
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, nil),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}
