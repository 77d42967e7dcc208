package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// The dashboard front-end keys off the "status" field, so every handler
// answers in one of these envelope shapes.

func statusSuccess() map[string]any {
	return map[string]any{"status": "success"}
}

func statusFailed(message string) map[string]any {
	return map[string]any{"status": "failed", "message": message}
}

func statusError(message string) map[string]any {
	return map[string]any{"status": "error", "message": message}
}
