package collections

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gallery-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the collections service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches collection routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/collections", h.create)
	rg.GET("/collections", h.list)
	rg.GET("/collections/:uid", h.get)
	rg.DELETE("/collections/:uid", h.remove)
}

type collectionResponse struct {
	ID          int64     `json:"id"`
	UniqueID    string    `json:"uniqueId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	coll, err := h.Svc.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create collection", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(coll))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list collections", nil)
		return
	}

	out := make([]collectionResponse, 0, len(list))
	for _, coll := range list {
		out = append(out, toResponse(coll))
	}
	respond.OK(c, gin.H{"collections": out})
}

func (h *Handler) get(c *gin.Context) {
	coll, err := h.Svc.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.collectionError(c, err, "failed to fetch collection")
		return
	}
	respond.OK(c, toResponse(coll))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("uid")); err != nil {
		h.collectionError(c, err, "failed to delete collection")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) collectionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "collection not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func toResponse(coll Collection) collectionResponse {
	return collectionResponse{
		ID:          coll.ID,
		UniqueID:    coll.UniqueID,
		Name:        coll.Name,
		Description: coll.Description,
		CreatedAt:   coll.CreatedAt,
	}
}
