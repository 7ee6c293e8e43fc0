package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/service"
)

// EntityHandler serves the REST collection of one entity type.
type EntityHandler[T service.Entity[T]] struct {
	svc          *service.EntityService[T]
	newEntity    func() T
	personFilter bool
	responder
}

// PersonHandler serves /api/people.
type PersonHandler = EntityHandler[*model.Person]

// ArticleHandler serves /api/articles.
type ArticleHandler = EntityHandler[*model.Article]

// NewPersonHandler creates the people handler.
func NewPersonHandler(svc *service.PersonService, appName string, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{
		svc:       svc,
		newEntity: func() *model.Person { return &model.Person{} },
		responder: responder{appName: appName, logger: logger},
	}
}

// NewArticleHandler creates the articles handler. Listings accept a
// personId=1,2 filter.
func NewArticleHandler(svc *service.ArticleService, appName string, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		svc:          svc,
		newEntity:    func() *model.Article { return &model.Article{} },
		personFilter: true,
		responder:    responder{appName: appName, logger: logger},
	}
}

// Routes registers the collection routes on r.
func (h *EntityHandler[T]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Replace)
	r.Patch("/{id}", h.PartialUpdate)
	r.Delete("/{id}", h.Delete)
}

// Create handles POST /api/<collection>.
func (h *EntityHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := entity.Validate(); err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusBadRequest)
		return
	}

	res, err := h.svc.Create(r.Context(), entity)
	if err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusBadRequest)
		return
	}

	h.logger.Info(h.svc.EntityName()+"_created", "id", res.Alert.ID)

	w.Header().Set("Location", "/api"+res.Location)
	h.alert(w, res.Alert)
	writeJSON(w, http.StatusCreated, res.Entity)
}

// Replace handles PUT /api/<collection>/{id}.
func (h *EntityHandler[T]) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entity, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := entity.Validate(); err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusBadRequest)
		return
	}

	res, err := h.svc.Replace(r.Context(), id, entity)
	if err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusBadRequest)
		return
	}

	h.logger.Info(h.svc.EntityName()+"_updated", "id", id)

	h.alert(w, res.Alert)
	writeJSON(w, http.StatusOK, res.Entity)
}

// PartialUpdate handles PATCH /api/<collection>/{id} with a JSON or
// merge-patch body. Absent and null fields leave stored values unchanged.
func (h *EntityHandler[T]) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	patch, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.svc.PartialUpdate(r.Context(), id, patch)
	if err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusBadRequest)
		return
	}

	h.logger.Info(h.svc.EntityName()+"_updated", "id", id, "partial", true)

	h.alert(w, res.Alert)
	writeJSON(w, http.StatusOK, res.Entity)
}

// Get handles GET /api/<collection>/{id}.
func (h *EntityHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	entity, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, entity)
}

// List handles GET /api/<collection>?page&size&sort.
func (h *EntityHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r)
	if err != nil {
		h.problem(w, http.StatusBadRequest, h.svc.EntityName(), reasonBadRequest)
		return
	}

	filter, err := h.parseFilter(r)
	if err != nil {
		h.problem(w, http.StatusBadRequest, h.svc.EntityName(), reasonBadRequest)
		return
	}

	page, err := h.svc.List(r.Context(), req, filter)
	if err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusBadRequest)
		return
	}

	content := page.Content
	if content == nil {
		content = []T{}
	}

	writePaginationHeaders(w, r.URL, page)
	writeJSON(w, http.StatusOK, content)
}

// Delete handles DELETE /api/<collection>/{id}. Absent ids answer 204 too.
func (h *EntityHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	alert, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, h.svc.EntityName(), err, http.StatusBadRequest)
		return
	}

	h.logger.Info(h.svc.EntityName()+"_deleted", "id", id)

	h.alert(w, *alert)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntityHandler[T]) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.problem(w, http.StatusBadRequest, h.svc.EntityName(), service.ReasonIDInvalid)
		return 0, false
	}
	return id, true
}

// decode reads the request body into a fresh entity.
func (h *EntityHandler[T]) decode(w http.ResponseWriter, r *http.Request) (T, bool) {
	entity := h.newEntity()
	if err := json.NewDecoder(r.Body).Decode(entity); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.problem(w, http.StatusRequestEntityTooLarge, h.svc.EntityName(), reasonBadRequest)
			return entity, false
		}
		h.problem(w, http.StatusBadRequest, h.svc.EntityName(), reasonInvalidJSON)
		return entity, false
	}
	return entity, true
}

func (h *EntityHandler[T]) parseFilter(r *http.Request) (model.Filter, error) {
	var filter model.Filter
	ids, err := parseIDList(r.URL.Query().Get("id"))
	if err != nil {
		return filter, err
	}
	filter.IDs = ids

	if h.personFilter {
		personIDs, err := parseIDList(r.URL.Query().Get("personId"))
		if err != nil {
			return filter, err
		}
		filter.PersonIDs = personIDs
	}
	return filter, nil
}
