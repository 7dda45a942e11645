// Package httpx carries the JSON response envelope shared by every handler.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Response is the boundary shape for every JSON reply. Success is derived
// from the status code so handlers cannot disagree with it.
type Response struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Data       any      `json:"data,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Response{
		StatusCode: status,
		Success:    status < 400,
		Message:    message,
		Data:       data,
	})
}

func WriteError(w http.ResponseWriter, status int, message string, errs ...string) {
	write(w, Response{
		StatusCode: status,
		Success:    false,
		Message:    message,
		Errors:     errs,
	})
}

func write(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
