package forwarder

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/angeloszaimis/edge-functions/internal/upstream"
)

const (
	contentTypeJSON = "application/json"
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type degradedBody struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp string            `json:"timestamp"`
	Error     string            `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newDegradedBody(failure *upstream.Failure, now time.Time) degradedBody {
	reason := failure.Detail
	switch {
	case failure.Kind == upstream.KindTimeout:
		reason = "timeout"
	case reason == "":
		reason = "unreachable"
	}

	return degradedBody{
		Status:    "degraded",
		Services:  map[string]string{"inference": "unreachable"},
		Timestamp: now.UTC().Format(timestampLayout),
		Error:     reason,
	}
}
