package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/application/commands/bus"
	"catalog/application/queries"
	querybus "catalog/application/queries/bus"
	"catalog/pkg/common"
	pkgerrors "catalog/pkg/errors"
)

// CategoryHandler serves the category and slug endpoints
type CategoryHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
	now        func() time.Time
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *CategoryHandler {
	return &CategoryHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
		now:        time.Now,
	}
}

// UpdateCategoryRequest is the body of PATCH /categories/{id}
type UpdateCategoryRequest struct {
	Name         *string `json:"name"`
	DisplayOrder *int    `json:"display_order"`
	Version      string  `json:"version"`
}

// VersionRequest is the body of archive and restore
type VersionRequest struct {
	Version string `json:"version"`
}

// MoveCategoryRequest is the body of POST /categories/{id}/move
type MoveCategoryRequest struct {
	ParentID *int64 `json:"parent_id"`
	Version  string `json:"version"`
}

// ReslugCategoryRequest is the body of PUT /categories/{id}/slug
type ReslugCategoryRequest struct {
	Slug    string `json:"slug"`
	Version string `json:"version"`
}

// CreateCategory handles POST /categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateCategoryCommand
	if err := common.ParseJSONBody(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, http.StatusCreated, cmd)
}

// UpdateCategory handles PATCH /categories/{id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, http.StatusOK, commands.UpdateCategoryCommand{
		CategoryID:      id,
		Name:            req.Name,
		DisplayOrder:    req.DisplayOrder,
		ExpectedVersion: version(r, req.Version),
	})
}

// ArchiveCategory handles POST /categories/{id}/archive
func (h *CategoryHandler) ArchiveCategory(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.versionBody(w, r)
	if !ok {
		return
	}
	h.send(w, r, http.StatusOK, commands.ArchiveCategoryCommand{CategoryID: id, ExpectedVersion: req.Version})
}

// RestoreCategory handles POST /categories/{id}/restore
func (h *CategoryHandler) RestoreCategory(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.versionBody(w, r)
	if !ok {
		return
	}
	h.send(w, r, http.StatusOK, commands.RestoreCategoryCommand{CategoryID: id, ExpectedVersion: req.Version})
}

// MoveCategory handles POST /categories/{id}/move. A null parent_id moves
// the category to the root level.
func (h *CategoryHandler) MoveCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	var req MoveCategoryRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, http.StatusOK, commands.ReparentCategoryCommand{
		CategoryID:      id,
		NewParentID:     req.ParentID,
		ExpectedVersion: version(r, req.Version),
	})
}

// ReslugCategory handles PUT /categories/{id}/slug
func (h *CategoryHandler) ReslugCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	var req ReslugCategoryRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, http.StatusOK, commands.ReslugCategoryCommand{
		CategoryID:      id,
		NewSlug:         req.Slug,
		ExpectedVersion: version(r, req.Version),
	})
}

// DeleteCategory handles DELETE /categories/{id}?version=
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	h.send(w, r, http.StatusOK, commands.DeleteCategoryCommand{
		CategoryID:      id,
		ExpectedVersion: version(r, r.URL.Query().Get("version")),
	})
}

// GetCategory handles GET /categories/{id}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}
	result, err := h.queryBus.Ask(r.Context(), queries.GetCategoryQuery{CategoryID: id})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if view, ok := result.(*queries.CategoryView); ok {
		w.Header().Set("ETag", strconv.Quote(view.Version))
	}
	common.RespondWithMeta(w, http.StatusOK, result, common.NewMeta(r, h.now()))
}

// GetTree handles GET /categories/tree?root_id=
func (h *CategoryHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	var query queries.GetCategoryTreeQuery
	if raw := r.URL.Query().Get("root_id"); raw != "" {
		rootID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.ErrInvalidCategoryID.New().WithDetail("root_id", raw))
			return
		}
		query.RootID = &rootID
	}
	h.ask(w, r, query)
}

// ResolveSlug handles GET /slugs/{slug}
func (h *CategoryHandler) ResolveSlug(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ResolveSlugQuery{Slug: chi.URLParam(r, "slug")})
}

func (h *CategoryHandler) send(w http.ResponseWriter, r *http.Request, status int, cmd bus.Command) {
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if res, ok := result.(*commands.CategoryResult); ok {
		w.Header().Set("ETag", strconv.Quote(res.Version))
	}
	common.RespondWithMeta(w, status, result, common.NewMeta(r, h.now()))
}

func (h *CategoryHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondWithMeta(w, http.StatusOK, result, common.NewMeta(r, h.now()))
}

func (h *CategoryHandler) categoryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.errors.Handle(w, r, pkgerrors.ErrInvalidCategoryID.New().WithDetail("category_id", raw))
		return 0, false
	}
	return id, true
}

func (h *CategoryHandler) versionBody(w http.ResponseWriter, r *http.Request) (int64, VersionRequest, bool) {
	var req VersionRequest
	id, ok := h.categoryID(w, r)
	if !ok {
		return 0, req, false
	}
	if r.ContentLength != 0 {
		if err := common.ParseJSONBody(w, r, &req); err != nil {
			h.errors.Handle(w, r, err)
			return 0, req, false
		}
	}
	req.Version = version(r, req.Version)
	return id, req, true
}

// version prefers the body token and falls back to If-Match.
func version(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}
