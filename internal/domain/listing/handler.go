package listing

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gigmarket/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadLinksKey is the gin context key holding map[fieldName][]publicURL for
// files uploaded ahead of an edit.
const UploadLinksKey = "upload_links"

const (
	msgServiceIDRequired = "Service Id is required."
	msgSearchRequired    = "Search Term or Category is required."
	msgCreated           = "Successfully created the service."
	msgEdited            = "Successfully edited the service."
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Create godoc
// @Summary Create a listing
// @Description Multipart image files plus listing properties in the query string.
// @Tags Services
// @Accept multipart/form-data
// @Produce plain
// @Security BearerAuth
// @Param title query string true "Title"
// @Param description query string true "Description"
// @Param category query string true "Category"
// @Param features query string true "Features"
// @Param shortDesc query string true "Short description"
// @Param price query int true "Price"
// @Param revisions query int true "Revisions"
// @Param time query int true "Delivery time in days"
// @Success 201 {string} string
// @Failure 400,500 {string} string
// @Router /services [post]
func (h *Handler) Create(c *gin.Context) {
	ownerID := c.GetInt64("user_id")

	var files []File
	if form, err := c.MultipartForm(); err == nil {
		files, err = ReadFiles(form)
		if err != nil {
			response.InternalError(c, err)
			return
		}
	}

	input, problems := ParseListingInput(c.Request.URL.Query())
	if len(files) == 0 || input == nil {
		h.logger.Debug("create listing rejected",
			zap.Int("files", len(files)),
			zap.Any("problems", problems))
		response.Text(c, http.StatusBadRequest, response.MsgPropertiesRequired)
		return
	}

	if _, err := h.service.Submit(c.Request.Context(), files, input, ownerID); err != nil {
		h.fail(c, err)
		return
	}
	response.Text(c, http.StatusCreated, msgCreated)
}

// Edit godoc
// @Summary Replace a listing
// @Description Files are uploaded by the upload-links middleware before this handler runs.
// @Tags Services
// @Accept multipart/form-data
// @Produce plain
// @Security BearerAuth
// @Param serviceId path int true "Listing ID"
// @Success 200 {string} string
// @Failure 400,500 {string} string
// @Router /services/{serviceId} [put]
func (h *Handler) Edit(c *gin.Context) {
	ownerID := c.GetInt64("user_id")

	id, ok := parseServiceID(c.Param("serviceId"))
	if !ok {
		response.Text(c, http.StatusBadRequest, msgServiceIDRequired)
		return
	}

	var refs []FileRef
	if form, err := c.MultipartForm(); err == nil {
		refs = FileRefs(form)
	}

	input, problems := ParseListingInput(c.Request.URL.Query())
	if len(refs) == 0 || input == nil {
		h.logger.Debug("edit listing rejected",
			zap.Int64("listing_id", id),
			zap.Int("files", len(refs)),
			zap.Any("problems", problems))
		response.Text(c, http.StatusBadRequest, response.MsgPropertiesRequired)
		return
	}

	var links map[string][]string
	if v, exists := c.Get(UploadLinksKey); exists {
		links, _ = v.(map[string][]string)
	}

	if _, err := h.service.Edit(c.Request.Context(), id, refs, links, input, ownerID); err != nil {
		h.fail(c, err)
		return
	}
	response.Text(c, http.StatusOK, msgEdited)
}

// ListMine godoc
// @Summary List my listings
// @Tags Services
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /services/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	listings, err := h.service.GetByOwner(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": listings})
}

// GetByID godoc
// @Summary Get a listing with its owner
// @Tags Services
// @Produce json
// @Param serviceId path int true "Listing ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {string} string
// @Router /services/{serviceId} [get]
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseServiceID(c.Param("serviceId"))
	if !ok {
		response.Text(c, http.StatusBadRequest, msgServiceIDRequired)
		return
	}

	l, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": l})
}

// Search godoc
// @Summary Search listings by title or category
// @Tags Services
// @Produce json
// @Param searchTerm query string false "Substring of the title"
// @Param category query string false "Substring of the category"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {string} string
// @Router /services/search [get]
func (h *Handler) Search(c *gin.Context) {
	listings, err := h.service.Search(c.Request.Context(), c.Query("searchTerm"), c.Query("category"))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.Text(c, http.StatusBadRequest, msgSearchRequired)
			return
		}
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": listings})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Text(c, http.StatusBadRequest, response.MsgPropertiesRequired)
	default:
		// ErrNotFound on edit is reported as 500 like any other failure.
		response.InternalError(c, err)
	}
}

func parseServiceID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
