package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nancymuyeh/SafeSpace/internal/auth"
	"github.com/nancymuyeh/SafeSpace/internal/domain"
	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
	"github.com/nancymuyeh/SafeSpace/internal/interfaces/http/rest/validation"
	"github.com/nancymuyeh/SafeSpace/internal/service"
)

// StoryService is the story use-case surface the handler depends on.
type StoryService interface {
	ListStories(ctx context.Context, mood domain.Mood) ([]domain.Story, error)
	CreateStory(ctx context.Context, in service.CreateStoryInput) (*domain.Story, error)
	AddReaction(ctx context.Context, storyID, reactionType string) (*domain.Reaction, error)
	ReportStory(ctx context.Context, storyID, reason string) (*domain.Report, error)
}

// ErrorHandler writes error responses.
type ErrorHandler interface {
	Handle(w http.ResponseWriter, r *http.Request, err error)
}

// StoryHandler handles story, reaction and report requests.
type StoryHandler struct {
	stories   StoryService
	validator *validation.Validator
	errors    ErrorHandler
	logger    *zap.Logger
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(stories StoryService, v *validation.Validator, errs ErrorHandler, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		stories:   stories,
		validator: v,
		errors:    errs,
		logger:    logger,
	}
}

// ListStories handles GET /stories
// @Summary List stories
// @Description Returns every story newest first, optionally restricted to one mood
// @Tags stories
// @Produce json
// @Param mood query string false "Mood filter" example:"hopeful"
// @Success 200 {array} domain.Story
// @Failure 400 {object} apperrors.ErrorResponse "Unknown mood"
// @Failure 500 {object} apperrors.ErrorResponse "Internal server error"
// @Router /stories [get]
func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	mood := domain.Mood(r.URL.Query().Get("mood"))
	if mood != "" && !h.validator.ValidMood(mood) {
		h.errors.Handle(w, r, apperrors.NewValidationError("Invalid query", apperrors.FieldError{
			Field:   "mood",
			Message: "mood is not a known mood",
		}))
		return
	}

	stories, err := h.stories.ListStories(r.Context(), mood)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, stories)
}

// CreateStory handles POST /stories
// @Summary Post a story
// @Description Stores an anonymous story after masking sensitive terms
// @Tags stories
// @Accept json
// @Produce json
// @Param request body CreateStoryRequest true "Story"
// @Success 201 {object} domain.Story
// @Failure 400 {object} apperrors.ErrorResponse "Invalid request"
// @Failure 401 {object} apperrors.ErrorResponse "Invalid token"
// @Failure 500 {object} apperrors.ErrorResponse "Internal server error"
// @Router /stories [post]
func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	// Token subjects that are not UUIDs cannot reference a user row.
	authUserID, _ := auth.UserIDFromContext(r.Context())
	if _, err := uuid.Parse(authUserID); err != nil {
		authUserID = ""
	}

	story, err := h.stories.CreateStory(r.Context(), req.ToInput(authUserID))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, story)
}

// AddReaction handles POST /stories/{id}/reactions
// @Summary React to a story
// @Tags stories
// @Accept json
// @Produce json
// @Param id path string true "Story ID"
// @Param request body ReactionRequest true "Reaction"
// @Success 201 {object} domain.Reaction
// @Failure 400 {object} apperrors.ErrorResponse "Invalid request"
// @Failure 404 {object} apperrors.ErrorResponse "Story not found"
// @Failure 500 {object} apperrors.ErrorResponse "Internal server error"
// @Router /stories/{id}/reactions [post]
func (h *StoryHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	storyID, err := storyIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req ReactionRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	reaction, err := h.stories.AddReaction(r.Context(), storyID, req.Type)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, reaction)
}

// ReportStory handles POST /stories/{id}/report
// @Summary Report a story
// @Description Files a moderation report against a story
// @Tags stories
// @Accept json
// @Produce json
// @Param id path string true "Story ID"
// @Param request body ReportRequest true "Report"
// @Success 201 {object} domain.Report
// @Failure 400 {object} apperrors.ErrorResponse "Invalid request"
// @Failure 404 {object} apperrors.ErrorResponse "Story not found"
// @Failure 500 {object} apperrors.ErrorResponse "Internal server error"
// @Router /stories/{id}/report [post]
func (h *StoryHandler) ReportStory(w http.ResponseWriter, r *http.Request) {
	storyID, err := storyIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req ReportRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	report, err := h.stories.ReportStory(r.Context(), storyID, req.Reason)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, report)
}

func storyIDParam(r *http.Request) (string, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", apperrors.NewValidationError("Invalid story id", apperrors.FieldError{
			Field:   "id",
			Message: "id must be a valid UUID",
		})
	}
	return id.String(), nil
}
