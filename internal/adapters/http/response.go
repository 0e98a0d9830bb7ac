package http

import (
	"encoding/json"
	"net/http"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type successEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type messageEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Status string   `json:"status"`
	Error  apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Status: "success", Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageEnvelope{Status: "success", Message: message})
}

func writeError(w http.ResponseWriter, apiErr apiError) {
	writeJSON(w, apiErr.Status, errorEnvelope{Status: "error", Error: apiErr})
}
