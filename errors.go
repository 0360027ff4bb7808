package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"usof/forum"
)

type HTTPError struct {
	Err     error
	Message string
	Code    int
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

type appHandler func(http.ResponseWriter, *http.Request) error

func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := fn(w, r)
	if err == nil {
		return
	}
	var httpError *HTTPError
	if errors.As(err, &httpError) {
		msg := httpError.Message
		if msg == "" {
			msg = http.StatusText(httpError.Code)
		}
		jsonError(w, httpError.Code, msg)
		return
	}
	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, forum.ErrNotFound):
		jsonError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, forum.ErrForbidden):
		jsonError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, forum.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, forum.ErrConflict):
		jsonError(w, http.StatusConflict, "Conflict, please retry")
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func jsonError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
