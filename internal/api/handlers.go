package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curatedthreads/threads-backend/internal/config"
	"github.com/curatedthreads/threads-backend/internal/content"
	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
	"github.com/curatedthreads/threads-backend/internal/feed"
	"github.com/curatedthreads/threads-backend/internal/store"
)

// MetricsRecorder is the slice of the metrics surface handlers touch.
type MetricsRecorder interface {
	RecordIngest(ctx context.Context, outcome string)
	RecordModeration(ctx context.Context, action string)
}

type Handler struct {
	postSvc       *content.PostService
	categorySvc   *content.CategoryService
	moderationSvc *content.ModerationService
	ingestSvc     *content.IngestService
	feedSvc       *feed.Service
	database      interfaces.Database
	cache         *store.Cache
	config        *config.Config
	logger        *zap.SugaredLogger
	metrics       MetricsRecorder
}

func NewHandler(
	postSvc *content.PostService,
	categorySvc *content.CategoryService,
	moderationSvc *content.ModerationService,
	ingestSvc *content.IngestService,
	feedSvc *feed.Service,
	database interfaces.Database,
	cache *store.Cache,
	cfg *config.Config,
	logger *zap.SugaredLogger,
	metrics MetricsRecorder,
) *Handler {
	return &Handler{
		postSvc:       postSvc,
		categorySvc:   categorySvc,
		moderationSvc: moderationSvc,
		ingestSvc:     ingestSvc,
		feedSvc:       feedSvc,
		database:      database,
		cache:         cache,
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
	}
}

// Health endpoints

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.database.IsHealthy(r.Context()) {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}
	if err := h.cache.Ping(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Post endpoints

// ListPosts returns every stored post, or one post when ?url= is given.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	if url := r.URL.Query().Get("url"); url != "" {
		post, err := h.postSvc.GetByURL(r.Context(), url)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, postDTO(*post))
		return
	}

	posts, err := h.postSvc.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, postDTOs(posts))
}

// IngestPost submits a tweet URL and stores the resulting post.
func (h *Handler) IngestPost(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.ingestSvc.Ingest(r.Context(), req.URL, req.Category)
	if err != nil {
		h.recordIngest(r.Context(), ingestOutcome(err))
		h.writeDomainError(w, err)
		return
	}

	h.recordIngest(r.Context(), "stored")
	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusCreated, postDTO(*post))
}

// PatchPostByURL sets or clears the category of the post holding the URL
// in the request body.
func (h *Handler) PatchPostByURL(w http.ResponseWriter, r *http.Request) {
	var req SetCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	post, err := h.postSvc.SetCategoryByURL(r.Context(), req.URL, req.Category)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, postDTO(*post))
}

// DeletePostByURL removes the post holding the ?url= query parameter.
func (h *Handler) DeletePostByURL(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		h.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	if err := h.postSvc.DeleteByURL(r.Context(), url); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// UpdatePostCategory sets or clears the category of the post in the path.
func (h *Handler) UpdatePostCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.postSvc.SetCategory(r.Context(), id, req.Category)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, postDTO(*post))
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.postSvc.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Category endpoints

// ListCategories returns every category, or one when ?name= is given.
// The full list is served from the cache; lifecycle changes invalidate it.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		category, err := h.categorySvc.GetByName(r.Context(), name)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, categoryDTO(*category))
		return
	}

	var cached []CategoryDTO
	if err := h.cache.GetCategories(r.Context(), &cached); err == nil {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	categories, err := h.categorySvc.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := categoryDTOs(categories)
	if err := h.cache.SetCategories(r.Context(), dtos, h.categoryCacheTTL()); err != nil {
		h.logger.Warnw("Category cache write failed", "error", err)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) categoryCacheTTL() time.Duration {
	if ttl := h.config.Feed.CacheTTL; ttl > 0 {
		return ttl
	}
	return 5 * time.Second
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categorySvc.Create(r.Context(), req.Name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.invalidateCategories(r.Context())
	h.writeJSON(w, http.StatusCreated, categoryDTO(*category))
}

// RenameCategoryByName renames a category addressed by its current name.
func (h *Handler) RenameCategoryByName(w http.ResponseWriter, r *http.Request) {
	var req CategoryRenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.categorySvc.GetByName(r.Context(), req.OldName)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	category, err := h.categorySvc.Rename(r.Context(), existing.ID, req.NewName)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.invalidateCategories(r.Context())
	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, categoryDTO(*category))
}

// DeleteCategoryByName removes the category named in ?name=.
func (h *Handler) DeleteCategoryByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	existing, err := h.categorySvc.GetByName(r.Context(), name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if err := h.categorySvc.Delete(r.Context(), existing.ID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.invalidateCategories(r.Context())
	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.categorySvc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, categoryDTO(*category))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categorySvc.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.invalidateCategories(r.Context())
	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, categoryDTO(*category))
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categorySvc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.invalidateCategories(r.Context())
	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Feed endpoint

// GetFeed serves the public filtered feed. All controls arrive as query
// parameters; list parameters are comma-separated.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	req, err := parseFeedRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.feedSvc.Query(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func parseFeedRequest(r *http.Request) (feed.Request, error) {
	q := r.URL.Query()
	req := feed.Request{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	}

	if raw := q.Get("min_likes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return feed.Request{}, errors.New("min_likes must be a non-negative integer")
		}
		req.MinLikes = n
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return feed.Request{}, errors.New("page must be a positive integer")
		}
		req.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return feed.Request{}, errors.New("page_size must be between 1 and 100")
		}
		req.PageSize = n
	}
	if raw := q.Get("date_from"); raw != "" {
		t, ok := feed.ParseDate(raw)
		if !ok {
			return feed.Request{}, errors.New("date_from is not a recognized date")
		}
		req.DateFrom = &t
	}
	if raw := q.Get("date_to"); raw != "" {
		t, ok := feed.ParseDate(raw)
		if !ok {
			return feed.Request{}, errors.New("date_to is not a recognized date")
		}
		req.DateTo = &t
	}
	if raw := q.Get("authors"); raw != "" {
		req.Authors = splitList(raw)
	}
	if raw := q.Get("categories"); raw != "" {
		req.Categories = splitList(raw)
	}

	return req, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Moderation endpoints

func (h *Handler) GetModerationQueue(w http.ResponseWriter, r *http.Request) {
	pending, err := h.moderationSvc.ListPending(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pendingDTOs(pending))
}

func (h *Handler) ApprovePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ApproveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		post *entities.Post
		err  error
	)
	if req.Category != "" {
		post, err = h.moderationSvc.ApproveWithCategory(r.Context(), id, req.Category)
	} else {
		post, err = h.moderationSvc.Approve(r.Context(), id)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.recordModeration(r.Context(), "approve")
	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, postDTO(*post))
}

func (h *Handler) RejectPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.moderationSvc.Reject(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.recordModeration(r.Context(), "reject")
	h.feedSvc.MarkChanged()
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Helpers

func (h *Handler) invalidateCategories(ctx context.Context) {
	if err := h.cache.InvalidateCategories(ctx); err != nil {
		h.logger.Warnw("Category cache invalidation failed", "error", err)
	}
}

func (h *Handler) recordIngest(ctx context.Context, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordIngest(ctx, outcome)
	}
}

func (h *Handler) recordModeration(ctx context.Context, action string) {
	if h.metrics != nil {
		h.metrics.RecordModeration(ctx, action)
	}
}

func ingestOutcome(err error) string {
	derr := content.AsError(err)
	switch derr.Kind {
	case content.KindConflict:
		return "duplicate"
	case content.KindValidation:
		return "invalid"
	case content.KindUpstream:
		return "upstream_error"
	default:
		return "error"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorw("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.logger.Errorw("API error", "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeDomainError maps a domain error onto the taxonomy's status code.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	derr := content.AsError(err)
	status := derr.HTTPStatus()

	if status >= http.StatusInternalServerError {
		h.logger.Errorw("API error", "kind", derr.Kind.String(), "error", err)
	} else {
		h.logger.Infow("API request rejected", "kind", derr.Kind.String(), "status", status, "message", derr.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:      derr.Message,
		ExistingID: derr.ExistingID,
	})
}
