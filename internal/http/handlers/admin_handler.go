// Admin/diagnostic HTTP handlers.
//
// Read-only views over the pipeline's ledgers, guarded by the shared-secret
// middleware (see middleware.AdminAuth). Nothing here mutates state: the
// admin surface exists to answer "did the DM go out" and "what did the
// sender actually post" without shelling into the database.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mboukas/go-onboard-backend/internal/domain"
	"github.com/mboukas/go-onboard-backend/internal/utils"
)

// AdminStore is the read-only diagnostics contract consumed by the admin
// endpoints.
type AdminStore interface {
	// RecentSends returns the latest send-log rows, newest first.
	RecentSends(ctx context.Context, limit int) ([]domain.DmSendLogEntry, error)
	// RecentEvents returns the latest audited webhook events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]domain.WebhookEvent, error)
	// LeadsPage returns one page of a tenant's leads plus the total count.
	LeadsPage(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Lead, int64, error)
	// Templates returns the templates visible to a tenant.
	Templates(ctx context.Context, tenantID string) ([]domain.DmTemplate, error)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// AdminStatus godoc
// @ID          adminStatus
// @Summary     Service status
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin shared secret"
// @Success     200 {object} map[string]any
// @Failure     401 {object} handlers.ErrorResponse
// @Failure     403 {object} handlers.ErrorResponse
// @Router      /admin/status [get]
func (h *Handlers) AdminStatus(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// AdminSends godoc
// @ID          adminSends
// @Summary     Recent DM send-log rows
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true  "Admin shared secret"
// @Param       limit          query  int    false "Max rows (default 50)"
// @Success     200 {array} domain.DmSendLogEntry
// @Failure     401 {object} handlers.ErrorResponse
// @Router      /admin/sends [get]
func (h *Handlers) AdminSends(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 50)
	rows, err := h.adminSvc.RecentSends(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	ok(c, http.StatusOK, gin.H{"sends": rows})
}

// AdminEvents godoc
// @ID          adminEvents
// @Summary     Recent audited webhook events
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true  "Admin shared secret"
// @Param       limit          query  int    false "Max rows (default 50)"
// @Success     200 {array} domain.WebhookEvent
// @Failure     401 {object} handlers.ErrorResponse
// @Router      /admin/events [get]
func (h *Handlers) AdminEvents(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 50)
	rows, err := h.adminSvc.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	ok(c, http.StatusOK, gin.H{"events": rows})
}

// AdminLeads godoc
// @ID          adminLeads
// @Summary     Tenant leads, paginated
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true  "Admin shared secret"
// @Param       creatorId      query  string true  "Tenant (community) id"
// @Param       page           query  int    false "Page (default 1)"
// @Param       page_size      query  int    false "Page size (default 20, max 100)"
// @Success     200 {object} map[string]any
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     401 {object} handlers.ErrorResponse
// @Router      /admin/leads [get]
func (h *Handlers) AdminLeads(c *gin.Context) {
	creatorID := strings.TrimSpace(c.Query("creatorId"))
	if creatorID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "creatorId is required")
		return
	}
	page, pageSize := clampPagination(c)

	rows, total, err := h.adminSvc.LeadsPage(c.Request.Context(), creatorID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, gin.H{
		"leads": rows,
		"pagination": Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// AdminTemplates godoc
// @ID          adminTemplates
// @Summary     Templates visible to a tenant
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin shared secret"
// @Param       creatorId      query  string true "Tenant (community) id"
// @Success     200 {array} domain.DmTemplate
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     401 {object} handlers.ErrorResponse
// @Router      /admin/templates [get]
func (h *Handlers) AdminTemplates(c *gin.Context) {
	creatorID := strings.TrimSpace(c.Query("creatorId"))
	if creatorID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "creatorId is required")
		return
	}
	rows, err := h.adminSvc.Templates(c.Request.Context(), creatorID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	ok(c, http.StatusOK, gin.H{"templates": rows})
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
