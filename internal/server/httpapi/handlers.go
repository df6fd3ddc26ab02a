package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/logging"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/records"
	"github.com/dmitrijs2005/recordhub/internal/server/schema"
	"github.com/dmitrijs2005/recordhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Handler holds the services behind the HTTP surface.
type Handler struct {
	records     *services.RecordService
	auth        *services.AuthService
	attachments *services.AttachmentService
	logger      logging.Logger
	dev         bool
}

func NewHandler(rs *services.RecordService, as *services.AuthService, ats *services.AttachmentService, logger logging.Logger, dev bool) *Handler {
	return &Handler{
		records:     rs,
		auth:        as,
		attachments: ats,
		logger:      logger,
		dev:         dev,
	}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateRecord handles POST /api/v1/records. The route is public: with the
// default schema this is registration.
func (h *Handler) CreateRecord(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "request body must be a JSON object"})
		return
	}

	record, err := h.records.Create(c.Request.Context(), raw)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) GetRecord(c *gin.Context) {
	record, err := h.records.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// parseListOptions translates query parameters into store list options.
// sort is "field" or "-field", comma-separated; filter is "field:value"
// pairs, comma-separated.
func parseListOptions(c *gin.Context) records.ListOptions {
	opts := records.ListOptions{}

	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil {
		opts.PageSize = pageSize
	}

	if sort := c.Query("sort"); sort != "" {
		for _, term := range strings.Split(sort, ",") {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			key := records.SortKey{Field: term}
			if field, ok := strings.CutPrefix(term, "-"); ok {
				key = records.SortKey{Field: field, Desc: true}
			}
			opts.Sort = append(opts.Sort, key)
		}
	}

	if filter := c.Query("filter"); filter != "" {
		opts.Filter = make(map[string]string)
		for _, pair := range strings.Split(filter, ",") {
			field, value, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}
			opts.Filter[strings.TrimSpace(field)] = strings.TrimSpace(value)
		}
	}

	return opts
}

type paginationInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func (h *Handler) ListRecords(c *gin.Context) {
	opts := parseListOptions(c)

	result, total, err := h.records.List(c.Request.Context(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	if result == nil {
		result = []*models.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
		"pagination": paginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	})
}

func (h *Handler) UpdateRecord(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "request body must be a JSON object"})
		return
	}

	record, err := h.records.Update(c.Request.Context(), c.Param("id"), raw)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

// Login handles POST /api/v1/login. The body is a JSON object carrying the
// schema's login and credential fields (email/password with the default
// schema).
func (h *Handler) Login(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "request body must be a JSON object"})
		return
	}

	s := h.records.Schema()
	login, _ := raw[s.LoginField].(string)
	secret, _ := raw[s.CredentialField].(string)

	var missing []schema.FieldError
	if login == "" {
		missing = append(missing, schema.FieldError{Field: s.LoginField, Message: "is required"})
	}
	if secret == "" {
		missing = append(missing, schema.FieldError{Field: s.CredentialField, Message: "is required"})
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "validation failed",
			Errors:  missing,
		})
		return
	}

	pair, record, err := h.auth.Login(c.Request.Context(), login, secret)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"identity":      record,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		h.respondError(c, common.ErrUnauthorized)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) CreateAttachment(c *gin.Context) {
	attachment, url, err := h.attachments.CreateUpload(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"attachment_id": attachment.ID,
		"upload_url":    url,
	})
}

func (h *Handler) MarkAttachmentUploaded(c *gin.Context) {
	if err := h.attachments.MarkUploaded(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attachment uploaded"})
}

func (h *Handler) AttachmentURL(c *gin.Context) {
	url, err := h.attachments.GetDownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
