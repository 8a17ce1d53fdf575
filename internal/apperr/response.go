package apperr

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
)

// Envelope is the JSON body of every failed request.
type Envelope struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Timestamp string       `json:"timestamp"`
	Errors    []FieldError `json:"errors"`
}

// now is replaced in tests.
var now = time.Now

// Write converts err to its HTTP status and envelope. Internal failures are logged with the
// request id; their cause never reaches the client.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	e := As(err)

	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := e.Message
	if e.Kind == KindInternal {
		message = InternalMessage
		hlog.FromRequest(r).Error().
			Err(e.Cause).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("internal error")
	}

	WriteJSON(w, status, Envelope{
		Success:   false,
		Message:   message,
		Timestamp: now().UTC().Format(time.RFC3339),
		Errors:    e.Fields,
	})
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
