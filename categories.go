package main

import (
	"encoding/json"
	"net/http"

	"usof/forum"
)

func (a *App) listCategoriesHandler(w http.ResponseWriter, r *http.Request) error {
	cats, err := a.db.ListCategories()
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, cats)
}

func (a *App) getCategoryHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "category_id")
	if err != nil {
		return err
	}
	c, err := a.db.GetCategory(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, c)
}

func (a *App) categoryPostsHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "category_id")
	if err != nil {
		return err
	}
	if _, err := a.db.GetCategory(id); err != nil {
		return err
	}
	f, page, limit := a.postFilter(r, a.viewer(r))
	f.CategoryID = []int64{id}
	items, err := a.db.ListPosts(f)
	if err != nil {
		return err
	}
	total, err := a.db.CountPosts(f)
	if err != nil {
		return err
	}
	prev, next := pageLinks(r.URL, page, limit, total)
	return writeJSON(w, http.StatusOK, listResponse{page, limit, total, prev, next, items})
}

type categoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (a *App) createCategoryHandler(w http.ResponseWriter, r *http.Request) error {
	if _, err := a.requireAdmin(r); err != nil {
		return err
	}
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "Invalid body"}
	}
	if !nonEmpty(req.Title, 1, 200) {
		return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid title"}
	}
	id, err := a.db.AddCategory(&forum.Category{Title: req.Title, Description: req.Description})
	if err != nil {
		return err
	}
	created, err := a.db.GetCategory(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, created)
}

func (a *App) updateCategoryHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "category_id")
	if err != nil {
		return err
	}
	if _, err := a.requireAdmin(r); err != nil {
		return err
	}
	c, err := a.db.GetCategory(id)
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "Invalid body"}
	}
	if req.Title != "" {
		c.Title = req.Title
	}
	if req.Description != "" {
		c.Description = req.Description
	}
	if err := a.db.UpdateCategory(c); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, c)
}

func (a *App) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "category_id")
	if err != nil {
		return err
	}
	if _, err := a.requireAdmin(r); err != nil {
		return err
	}
	if err := a.db.DeleteCategory(id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}
