package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"usof/forum"
)

func (a *App) getCommentHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "comment_id")
	if err != nil {
		return err
	}
	c, err := a.model.VisibleComment(id, a.viewer(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, c.Comment)
}

type updateCommentRequest struct {
	Content  *string `json:"content"`
	IsActive *bool   `json:"is_active"`
}

// updateCommentHandler is the cascading status entry point: flipping
// is_active here propagates to the comment's direct replies.
func (a *App) updateCommentHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "comment_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	c, err := a.db.GetCommentWithPost(id)
	if err != nil {
		return err
	}

	var req updateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "Invalid body"}
	}

	if req.IsActive != nil {
		if !forum.CanToggleComment(v, &c.Comment, c.Post()) {
			return forum.ErrForbidden
		}
		if err := a.cascade.CascadeStatus(id, *req.IsActive); err != nil {
			return err
		}
	}

	if req.Content != nil {
		if !forum.CanEditContent(v, c.AuthorID) {
			return &HTTPError{Code: http.StatusForbidden, Message: "Only author can change content"}
		}
		if !nonEmpty(*req.Content, 1, 65535) {
			return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid content"}
		}
		content := strings.TrimSpace(*req.Content)
		if err := a.db.UpdateCommentContent(id, content, renderText(content)); err != nil {
			return err
		}
	}

	updated, err := a.db.GetComment(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, updated)
}

func (a *App) deleteCommentHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "comment_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	c, err := a.db.GetComment(id)
	if err != nil {
		return err
	}
	if !forum.CanDelete(v, c.AuthorID) {
		return forum.ErrForbidden
	}
	if err := a.db.DeleteComment(id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

// reactableComment loads the comment and runs the shared pre-checks for
// the like endpoints: a hidden comment reads as missing, an inactive one
// has its likes disabled.
func (a *App) reactableComment(r *http.Request, id int64, v *forum.Viewer) (*forum.CommentWithPost, error) {
	c, err := a.db.GetCommentWithPost(id)
	if err != nil {
		return nil, err
	}
	if !forum.CanViewComment(v, &c.Comment, c.Post()) {
		return nil, forum.ErrNotFound
	}
	if !c.Active || !c.PostActive {
		return nil, &HTTPError{Code: http.StatusForbidden, Message: "Likes are disabled for inactive comments"}
	}
	return c, nil
}

func (a *App) getCommentLikesHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "comment_id")
	if err != nil {
		return err
	}
	if _, err := a.reactableComment(r, id, a.viewer(r)); err != nil {
		return err
	}
	likes, err := a.db.ListLikes(forum.CommentTarget(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, likes)
}

func (a *App) likeCommentHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "comment_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	if _, err := a.reactableComment(r, id, v); err != nil {
		return err
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Type.Valid() {
		return &HTTPError{Code: http.StatusBadRequest, Message: "type must be like|dislike"}
	}
	target := forum.CommentTarget(id)
	if err := a.ledger.Upsert(v.ID, target, req.Type); err != nil {
		return err
	}
	score, err := a.ledger.Aggregate(target)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, scoreResponse{Message: "ok", Score: score})
}

func (a *App) unlikeCommentHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "comment_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	if _, err := a.reactableComment(r, id, v); err != nil {
		return err
	}

	target := forum.CommentTarget(id)
	if err := a.ledger.Remove(v.ID, target); err != nil {
		return err
	}
	score, err := a.ledger.Aggregate(target)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, scoreResponse{Message: "Like removed", Score: score})
}
