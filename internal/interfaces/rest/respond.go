package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

type errorBody struct {
	Code               string   `json:"code"`
	Message            string   `json:"message"`
	CurrentStatus      string   `json:"current_status,omitempty"`
	AllowedTransitions []string `json:"allowed_transitions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError renders a service error. Transition conflicts carry the
// current status and the legal next statuses so clients can self-correct.
// The idempotency short-circuit is success from the caller's point of
// view and renders as such.
func writeError(w http.ResponseWriter, err error) {
	svcErr, ok := application.IsServiceError(err)
	if !ok {
		// Raw domain or infrastructure errors that escaped the service
		// layer still map to a stable code and status.
		status := application.ToHTTPStatus(err)
		msg := err.Error()
		if status >= http.StatusInternalServerError {
			msg = "An internal error occurred"
		}
		writeJSON(w, status, errorBody{
			Code:    application.ToErrorCode(err),
			Message: msg,
		})
		return
	}

	if svcErr.Code == application.ErrCodeAlreadyProcessed {
		writeJSON(w, http.StatusOK, map[string]any{
			"already_processed": true,
			"message":           svcErr.Message,
		})
		return
	}

	body := errorBody{Code: svcErr.Code, Message: svcErr.Message}

	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		body.CurrentStatus = string(transitionErr.Current)
		body.AllowedTransitions = make([]string, 0, len(transitionErr.Allowed))
		for _, s := range transitionErr.Allowed {
			body.AllowedTransitions = append(body.AllowedTransitions, string(s))
		}
	}

	writeJSON(w, svcErr.HTTPStatus, body)
}
