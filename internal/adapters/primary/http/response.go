package http

import (
	"encoding/json"
	"net/http"
)

// CursorResponse wraps a page of time-ordered data. NextAfter is opaque;
// clients pass it back as ?after= to fetch the following page.
type CursorResponse[T any] struct {
	Data      []T    `json:"data"`
	Count     int    `json:"count"`
	NextAfter string `json:"nextAfter"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header has already been sent, so an encode error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteCursorPage writes a cursor-paginated list response
func WriteCursorPage[T any](w http.ResponseWriter, data []T, nextAfter string) {
	WriteJSON(w, http.StatusOK, CursorResponse[T]{
		Data:      data,
		Count:     len(data),
		NextAfter: nextAfter,
	})
}
