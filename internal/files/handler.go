package files

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gallery-backend/internal/shared/server/respond"
	"gallery-backend/internal/shared/storage/object"
)

// Handler wires HTTP handlers to the file service.
type Handler struct {
	Svc      *Service
	Resolver CollectionResolver
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, resolver CollectionResolver) *Handler {
	return &Handler{Svc: svc, Resolver: resolver}
}

// RegisterRoutes attaches file routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/collections/:uid/files", h.upload)
	rg.GET("/collections/:uid/files", h.list)
	rg.GET("/files/:id", h.get)
	rg.GET("/files/:id/url", h.url)
	rg.DELETE("/files/:id", h.remove)
}

type fileResponse struct {
	ID               string    `json:"id"`
	CollectionID     int64     `json:"collectionId"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"originalFilename"`
	MimeType         string    `json:"mimeType"`
	SizeBytes        int64     `json:"sizeBytes"`
	StorageBackend   string    `json:"storageBackend"`
	ThumbPath        string    `json:"thumbPath,omitempty"`
	MediumPath       string    `json:"mediumPath,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type uploadResultResponse struct {
	Filename string        `json:"filename"`
	Success  bool          `json:"success"`
	File     *fileResponse `json:"file,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type uploadReportResponse struct {
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Results   []uploadResultResponse `json:"results"`
}

func (h *Handler) upload(c *gin.Context) {
	coll, ok := h.resolveCollection(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form is required", nil)
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one file is required", nil)
		return
	}
	if len(headers) > maxBatchFiles {
		respond.Error(c, http.StatusBadRequest, "validation_error", "too many files in one request", nil)
		return
	}

	inputs := make([]UploadInput, 0, len(headers))
	var opened []interface{ Close() error }
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read uploaded file", nil)
			return
		}
		opened = append(opened, f)
		inputs = append(inputs, UploadInput{Filename: hdr.Filename, Body: f})
	}

	report, err := h.Svc.BatchUpload(c.Request.Context(), coll, inputs)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), object.IsValidation(err):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload files", nil)
		}
		return
	}

	respond.JSON(c, uploadStatus(report), toReportResponse(report))
}

func (h *Handler) list(c *gin.Context) {
	coll, ok := h.resolveCollection(c)
	if !ok {
		return
	}

	list, err := h.Svc.List(c.Request.Context(), coll)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list files", nil)
		return
	}

	out := make([]fileResponse, 0, len(list))
	for _, f := range list {
		out = append(out, toResponse(f))
	}
	respond.OK(c, gin.H{"files": out})
}

func (h *Handler) get(c *gin.Context) {
	f, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fileError(c, err, "failed to fetch file")
		return
	}
	respond.OK(c, toResponse(f))
}

func (h *Handler) url(c *gin.Context) {
	url, err := h.Svc.FileURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fileError(c, err, "failed to build file URL")
		return
	}
	respond.OK(c, gin.H{"url": url})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fileError(c, err, "failed to delete file")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) resolveCollection(c *gin.Context) (object.CollectionRef, bool) {
	coll, err := h.Resolver.Resolve(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "collection not found", nil)
		return object.CollectionRef{}, false
	}
	return coll, true
}

func (h *Handler) fileError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
	case errors.Is(err, ErrInvalidInput), object.IsValidation(err):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

// uploadStatus maps a batch outcome to a response status: 201 when every
// file landed, 207 for a partial success, 502 when nothing was stored.
func uploadStatus(report BatchReport) int {
	switch {
	case report.Failed == 0:
		return http.StatusCreated
	case report.Succeeded == 0:
		return http.StatusBadGateway
	default:
		return http.StatusMultiStatus
	}
}

func toResponse(f File) fileResponse {
	return fileResponse{
		ID:               f.ID,
		CollectionID:     f.CollectionID,
		Filename:         f.Filename,
		OriginalFilename: f.OriginalFilename,
		MimeType:         f.MimeType,
		SizeBytes:        f.SizeBytes,
		StorageBackend:   f.StorageBackend,
		ThumbPath:        f.ThumbPath,
		MediumPath:       f.MediumPath,
		CreatedAt:        f.CreatedAt,
	}
}

func toReportResponse(report BatchReport) uploadReportResponse {
	out := uploadReportResponse{
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Results:   make([]uploadResultResponse, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		item := uploadResultResponse{Filename: res.Filename, Success: res.Success}
		if res.Success {
			fr := toResponse(res.File)
			item.File = &fr
		} else if res.Err != nil {
			item.Error = res.Err.Error()
		}
		out.Results = append(out.Results, item)
	}
	return out
}
