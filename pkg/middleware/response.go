package middleware

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError renders a rejection in the same envelope the API handlers use
func writeError(w http.ResponseWriter, status int, code, message, retryAfter string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message

	if retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
