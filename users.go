package main

import (
	"net/http"
)

func (a *App) getUserHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "user_id")
	if err != nil {
		return err
	}
	u, err := a.db.GetUser(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, u)
}

func (a *App) listUsersHandler(w http.ResponseWriter, r *http.Request) error {
	if _, err := a.requireAdmin(r); err != nil {
		return err
	}
	page, limit, offset := pageParams(r.URL.Query())
	users, err := a.db.ListUsers(limit, offset)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, listResponse{Page: page, Limit: limit, Total: len(users), Items: users})
}
