package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"fabritrack/apperr"
)

type M map[string]interface{}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// RespondAppError writes the error's kind and message with its mapped
// status. Unknown errors are not leaked to the client.
func RespondAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == "" {
		log.Printf("internal error: %v", err)
		RespondWithJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Server error",
			"kind":  "internal",
		})
		return
	}
	RespondWithJSON(w, apperr.Status(err), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}
