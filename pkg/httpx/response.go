package httpx

import (
	"encoding/json"
	"net/http"
)

// Every response from the API uses the same envelope: {"success": bool, ...}.
// Client machines and the browser extension both key off the success flag
// before looking at anything else.

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes {"success": true} merged with the payload fields.
func WriteSuccess(w http.ResponseWriter, code int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	WriteJSON(w, code, body)
}

// WriteError writes {"success": false, "error": msg, "code": errCode}.
// The code is the machine-readable taxonomy value; msg is for humans.
func WriteError(w http.ResponseWriter, status int, errCode, msg string) {
	WriteJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
		"code":    errCode,
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Token responses must never land in a shared cache.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
