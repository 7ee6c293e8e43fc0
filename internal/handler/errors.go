package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cheroliv/blogger/internal/handler/dto"
	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/service"
)

// Transport-only reason codes.
const (
	reasonValidation  = "validation"
	reasonInvalidJSON = "invalidjson"
	reasonBadRequest  = "badrequest"
	reasonInternal    = "internal"
)

var reasonTitles = map[string]string{
	service.ReasonIDExists:       "A new entity cannot already have an ID",
	service.ReasonIDNull:         "Invalid id",
	service.ReasonIDInvalid:      "Invalid ID",
	service.ReasonIDNotFound:     "Entity not found",
	service.ReasonPersonNotFound: "Referenced person not found",
	service.ReasonInUse:          "Entity is still referenced",
	service.ReasonSortNotAllowed: "Unsupported sort property",
	reasonValidation:             "Method argument not valid",
	reasonInvalidJSON:            "Malformed request body",
	reasonBadRequest:             "Bad request",
	reasonInternal:               "Internal server error",
}

// ErrorHeader names the error key header for an application.
func ErrorHeader(appName string) string { return "X-" + appName + "-error" }

// ParamsHeader names the header carrying the entity name of an error or the
// id of an alert.
func ParamsHeader(appName string) string { return "X-" + appName + "-params" }

// AlertHeader names the alert header for an application.
func AlertHeader(appName string) string { return "X-" + appName + "-alert" }

// writeProblem writes a problem body and its error headers.
func writeProblem(w http.ResponseWriter, appName string, status int, entityName, reason, title string, fields []model.FieldError) {
	problemType := dto.ProblemWithMessage
	if len(fields) > 0 {
		problemType = dto.ConstraintViolation
	}

	w.Header().Set(ErrorHeader(appName), "error."+reason)
	if entityName != "" {
		w.Header().Set(ParamsHeader(appName), entityName)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.Problem{
		Type:        problemType,
		Title:       title,
		Status:      status,
		EntityName:  entityName,
		ErrorKey:    reason,
		Message:     "error." + reason,
		Params:      entityName,
		FieldErrors: fields,
	})
}

// responder writes alerts and errors for one application name.
type responder struct {
	appName string
	logger  *slog.Logger
}

func (rs responder) problem(w http.ResponseWriter, status int, entityName, reason string) {
	writeProblem(w, rs.appName, status, entityName, reason, reasonTitles[reason], nil)
}

func (rs responder) alert(w http.ResponseWriter, alert model.Alert) {
	w.Header().Set(AlertHeader(rs.appName), alert.Message(rs.appName))
	w.Header().Set(ParamsHeader(rs.appName), alert.ID)
}

// serviceError maps a service failure to a problem response. notFound is
// the status used for idnotfound: 404 on reads, 400 on writes.
func (rs responder) serviceError(w http.ResponseWriter, r *http.Request, entityName string, err error, notFound int) {
	var entityErr *service.EntityError
	var validationErr *model.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeProblem(w, rs.appName, http.StatusBadRequest, validationErr.Entity, reasonValidation,
			reasonTitles[reasonValidation], validationErr.Fields)
	case errors.As(err, &entityErr):
		status := http.StatusBadRequest
		switch entityErr.Reason {
		case service.ReasonIDNotFound:
			status = notFound
		case service.ReasonInUse:
			status = http.StatusConflict
		}
		rs.problem(w, status, entityErr.Entity, entityErr.Reason)
	default:
		rs.logger.Error("internal_error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		rs.problem(w, http.StatusInternalServerError, entityName, reasonInternal)
	}
}
