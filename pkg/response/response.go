package response

import (
	"encoding/json"
	"net/http"

	"giftcanvas-api/pkg/apierror"
)

// JSON sends `{"ok": true, ...data}` with the given status code. The flat
// envelope matches what the dashboard and plugin clients consume.
func JSON(w http.ResponseWriter, statusCode int, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	body := map[string]any{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	_ = json.NewEncoder(w).Encode(body)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data map[string]any) {
	JSON(w, http.StatusOK, data)
}

// Created sends a 201 Created response.
func Created(w http.ResponseWriter, data map[string]any) {
	JSON(w, http.StatusCreated, data)
}

// Raw sends an arbitrary payload without the envelope. Used by list
// endpoints whose consumers expect a bare array.
func Raw(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends an error response.
func Error(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apierror.Error)
	if !ok {
		apiErr = apierror.InternalError("an unexpected error occurred")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	w.Write(apiErr.ToJSON())
}
