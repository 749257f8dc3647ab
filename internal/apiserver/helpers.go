package apiserver

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// response is the envelope of all API responses.
type response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// writeJSON writes v to w with the given status code. The response is
// flushed to the client if w supports it.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("error writing to http stream: %s", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
