package mockapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/logger"
)

// Field limits enforced on create and update.
const (
	maxTitleLen   = 200
	maxContentLen = 10000
)

// List pagination bounds.
const (
	defaultLimit = 10
	maxLimit     = 50
)

// standardError is the structured error body. Plain bodies (gin.H with a
// detail or error field) cover the endpoints that predate it.
type standardError struct {
	ErrorCode   string        `json:"error_code"`
	UserMessage string        `json:"user_message"`
	Details     *errorDetails `json:"details,omitempty"`
	RequestID   string        `json:"request_id,omitempty"`
}

type errorDetails struct {
	Suggestions []string          `json:"suggestions,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

type handler struct {
	store   *Store
	cache   *gocache.Cache
	log     logger.Logger
	version string
}

// listStories serves one page of stories. Results are cached per
// limit/offset/visibility combination until a mutation flushes the cache.
func (h *handler) listStories(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("limit must be between 1 and %d", maxLimit),
		})
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be non-negative"})
		return
	}

	// The flag only widens visibility for authenticated callers; anonymous
	// requests always see published stories only.
	includeUnlisted := isAuthed(c) && c.Query("include_unlisted") == "true"

	key := fmt.Sprintf("stories:%d:%d:%t", limit, offset, includeUnlisted)
	if cached, ok := h.cache.Get(key); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	items, total := h.store.List(offset, limit, includeUnlisted)
	resp := client.ListResponse{Items: items, Total: total, Limit: limit, Offset: offset}
	h.cache.Set(key, resp, gocache.DefaultExpiration)
	c.JSON(http.StatusOK, resp)
}

func (h *handler) getStory(c *gin.Context) {
	story, ok := h.store.Get(c.Param("id"))
	h.renderStory(c, story, ok)
}

func (h *handler) getStoryBySlug(c *gin.Context) {
	story, ok := h.store.GetBySlug(c.Param("slug"))
	h.renderStory(c, story, ok)
}

// renderStory applies the visibility rule shared by both lookups: an
// unpublished story is indistinguishable from a missing one unless the
// caller is authenticated.
func (h *handler) renderStory(c *gin.Context, story client.Story, ok bool) {
	if !ok || (!story.IsPublished && !isAuthed(c)) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Story not found"})
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *handler) createStory(c *gin.Context) {
	draft, ok := h.bindDraft(c)
	if !ok {
		return
	}
	story := h.store.Create(draft)
	h.cache.Flush()
	h.log.Info("story created",
		logger.String("id", story.ID),
		logger.String("slug", story.Slug),
		logger.Bool("published", story.IsPublished),
	)
	c.JSON(http.StatusCreated, story)
}

func (h *handler) updateStory(c *gin.Context) {
	draft, ok := h.bindDraft(c)
	if !ok {
		return
	}
	story, found := h.store.Update(c.Param("id"), draft)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Story not found"})
		return
	}
	h.cache.Flush()
	h.log.Info("story updated", logger.String("id", story.ID))
	c.JSON(http.StatusOK, story)
}

func (h *handler) deleteStory(c *gin.Context) {
	id := c.Param("id")
	if !h.store.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Story not found"})
		return
	}
	h.cache.Flush()
	h.log.Info("story deleted", logger.String("id", id))
	c.Status(http.StatusNoContent)
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, client.HealthStatus{
		Status:  "healthy",
		Service: "storyfeed-api",
		Version: h.version,
	})
}

// bindDraft decodes and validates a story payload, writing the 422
// response itself when the payload is unusable.
func (h *handler) bindDraft(c *gin.Context) (client.StoryDraft, bool) {
	var draft client.StoryDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.validationFailed(c, map[string]string{"body": "must be a valid JSON story"})
		return client.StoryDraft{}, false
	}
	if problems := validateDraft(draft); len(problems) > 0 {
		h.validationFailed(c, problems)
		return client.StoryDraft{}, false
	}
	return draft, true
}

func (h *handler) validationFailed(c *gin.Context, problems map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, standardError{
		ErrorCode:   "VALIDATION_FAILED",
		UserMessage: "Please check your input and try again.",
		Details: &errorDetails{
			Suggestions: []string{"Check the highlighted fields and try again."},
			FieldErrors: problems,
		},
		RequestID: c.GetString(ctxKeyRequestID),
	})
}

func validateDraft(draft client.StoryDraft) map[string]string {
	problems := make(map[string]string)
	if strings.TrimSpace(draft.Title) == "" {
		problems["title"] = "is required"
	} else if utf8.RuneCountInString(draft.Title) > maxTitleLen {
		problems["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLen)
	}
	if strings.TrimSpace(draft.Content) == "" {
		problems["content"] = "is required"
	} else if utf8.RuneCountInString(draft.Content) > maxContentLen {
		problems["content"] = fmt.Sprintf("must be at most %d characters", maxContentLen)
	}
	return problems
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.DefaultQuery(name, strconv.Itoa(def))
	return strconv.Atoi(raw)
}
