package httpapi

import (
	"encoding/json"
	"net/http"

	"chatd/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeChatError writes the chat error envelope. Every chat failure is a 500.
func writeChatError(w http.ResponseWriter, prefix string, err error) {
	writeJSON(w, http.StatusInternalServerError, types.ChatResponse{
		Response: prefix + err.Error(),
		Status:   types.StatusError,
	})
}
