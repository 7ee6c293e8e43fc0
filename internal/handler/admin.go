package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/service"
)

// AuditLister lists persisted entity alerts.
type AuditLister interface {
	List(ctx context.Context, req model.PageRequest, entityName string) (*model.Page[*model.AuditEvent], error)
}

const auditEntity = "entityAudit"

var auditSortable = []string{"id", "occurredAt", "entityName", "action"}

// AdminHandler provides management endpoints for operations.
type AdminHandler struct {
	audits      AuditLister
	defaultSize int
	maxSize     int
	responder
}

// NewAdminHandler creates a new AdminHandler. audits may be nil, in which
// case the audit listing answers 503.
func NewAdminHandler(audits AuditLister, appName string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		audits:      audits,
		defaultSize: model.DefaultPageSize,
		maxSize:     model.MaxPageSize,
		responder:   responder{appName: appName, logger: logger},
	}
}

// ListAudits handles GET /management/audits?page&size&sort&entityName.
// Without a sort parameter the newest rows come first.
func (h *AdminHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
	if h.audits == nil {
		h.problem(w, http.StatusServiceUnavailable, auditEntity, reasonInternal)
		return
	}

	req, err := parsePageRequest(r)
	if err != nil {
		h.problem(w, http.StatusBadRequest, auditEntity, reasonBadRequest)
		return
	}
	if len(req.Sort) == 0 {
		req.Sort = []model.Sort{{Property: "id", Desc: true}}
	}
	for _, s := range req.Sort {
		if !slices.Contains(auditSortable, s.Property) {
			h.problem(w, http.StatusBadRequest, auditEntity, service.ReasonSortNotAllowed)
			return
		}
	}
	req = req.Normalize(h.defaultSize, h.maxSize)

	entityName := r.URL.Query().Get("entityName")
	if entityName != "" && entityName != model.PersonEntity && entityName != model.ArticleEntity {
		h.problem(w, http.StatusBadRequest, auditEntity, reasonBadRequest)
		return
	}

	page, err := h.audits.List(r.Context(), req, entityName)
	if err != nil {
		h.serviceError(w, r, auditEntity, err, http.StatusNotFound)
		return
	}

	content := page.Content
	if content == nil {
		content = []*model.AuditEvent{}
	}

	writePaginationHeaders(w, r.URL, page)
	writeJSON(w, http.StatusOK, content)
}
