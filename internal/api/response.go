package api

import (
	"encoding/json"
	"net/http"
)

// The webhook surface is status-code-only: accepted deliveries get a bare
// 204 with no body, and rejections carry a short JSON reason so operators
// can read it off the sender's delivery log.

func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
