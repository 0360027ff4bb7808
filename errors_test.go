package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"usof/forum"
)

func TestAppHandlerStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"ok", nil, http.StatusOK},
		{"http error", &HTTPError{Code: http.StatusTeapot, Message: "short and stout"}, http.StatusTeapot},
		{"wrapped http error", fmt.Errorf("outer: %w", &HTTPError{Code: http.StatusTooManyRequests}), http.StatusTooManyRequests},
		{"not found", forum.ErrNotFound, http.StatusNotFound},
		{"forbidden", forum.ErrForbidden, http.StatusForbidden},
		{"invalid input", forum.ErrInvalidInput, http.StatusBadRequest},
		{"conflict", fmt.Errorf("%w: tx aborted", forum.ErrConflict), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := appHandler(func(w http.ResponseWriter, r *http.Request) error {
				if tt.err == nil {
					w.WriteHeader(http.StatusOK)
				}
				return tt.err
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}
