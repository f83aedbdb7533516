package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/application"
	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

const (
	classInvalidSignature = "invalid_signature"
	classMalformed        = "malformed_payload"
	classInvalidMetadata  = "invalid_metadata"
	classUserNotFound     = "user_not_found"
	classPersistence      = "persistence_failure"

	messageProcessed = "Enrollment processed"
)

// report projects a processing result onto the wire. Error detail is never
// written; only the class name.
func report(w http.ResponseWriter, d domain.Decision, err error) {
	status, body := project(d, err)
	writeJSON(w, status, body)
}

func project(d domain.Decision, err error) (int, any) {
	switch {
	case err == nil && d.Outcome == domain.OutcomeIgnored:
		return http.StatusOK, map[string]bool{"received": true}
	case err == nil:
		return http.StatusOK, map[string]string{"message": messageProcessed}
	case errors.Is(err, application.ErrUnauthenticated):
		return http.StatusBadRequest, errorBody(classInvalidSignature)
	case errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest, errorBody(classMalformed)
	case errors.Is(err, domain.ErrInvalidMetadata):
		return http.StatusBadRequest, errorBody(classInvalidMetadata)
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorBody(classUserNotFound)
	default:
		return http.StatusInternalServerError, errorBody(classPersistence)
	}
}

func errorBody(class string) map[string]string {
	return map[string]string{"error": class}
}

func writeError(w http.ResponseWriter, status int, class string) {
	writeJSON(w, status, errorBody(class))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
