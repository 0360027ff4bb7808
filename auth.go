package main

import (
	"fmt"
	"net/http"
	"strings"

	"usof/forum"

	"github.com/golang-jwt/jwt/v5"
)

// Token issuing (login, registration) is handled by the identity service;
// this side only verifies bearer tokens and resolves the user row.

type authClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// viewer resolves the request identity. A missing, expired or otherwise
// invalid token degrades to an anonymous viewer rather than an error.
func (a *App) viewer(r *http.Request) *forum.Viewer {
	raw := bearerToken(r)
	if raw == "" {
		return nil
	}
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	u, err := a.db.GetUser(claims.UserID)
	if err != nil {
		return nil
	}
	return &forum.Viewer{ID: u.ID, Role: u.Role}
}

func (a *App) requireViewer(r *http.Request) (*forum.Viewer, error) {
	v := a.viewer(r)
	if !v.Authenticated() {
		return nil, &HTTPError{Code: http.StatusUnauthorized, Message: "Authentication required"}
	}
	return v, nil
}

func (a *App) requireAdmin(r *http.Request) (*forum.Viewer, error) {
	v, err := a.requireViewer(r)
	if err != nil {
		return nil, err
	}
	if !v.Admin() {
		return nil, forum.ErrForbidden
	}
	return v, nil
}
