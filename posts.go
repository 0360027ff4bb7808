package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"usof/forum"
)

func (a *App) postFilter(r *http.Request, v *forum.Viewer) (forum.PostFilter, int, int) {
	q := r.URL.Query()
	page, limit, offset := pageParams(q)
	f := forum.PostFilter{
		Viewer: v,
		Status: "active",
		Sort:   "likes",
		Order:  "desc",
		Limit:  limit,
		Offset: offset,
	}
	if q.Get("status") == "all" {
		f.Status = "all"
	}
	if q.Get("sort") == "date" {
		f.Sort = "date"
	}
	if q.Get("order") == "asc" {
		f.Order = "asc"
	}
	f.Query = strings.TrimSpace(q.Get("q"))
	f.CategoryID = parseIDList(q.Get("category"))
	f.From = parseDate(q.Get("from"))
	f.To = parseDate(q.Get("to"))
	return f, page, limit
}

func (a *App) listPostsHandler(w http.ResponseWriter, r *http.Request) error {
	f, page, limit := a.postFilter(r, a.viewer(r))
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

func (a *App) getPostHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	p, err := a.model.VisiblePost(id, a.viewer(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

type createPostRequest struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Categories []int64 `json:"categories"`
}

func (a *App) createPostHandler(w http.ResponseWriter, r *http.Request) error {
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	if !a.guard.CanPost(v.ID) {
		return &HTTPError{Code: http.StatusTooManyRequests, Message: "Please wait before posting again"}
	}

	var req createPostRequest
	var images []forum.PostImage
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "Invalid form"}
		}
		req.Title = r.FormValue("title")
		req.Content = r.FormValue("content")
		req.Categories = parseIDList(strings.Join(r.MultipartForm.Value["categories"], ","))
		for _, hdr := range r.MultipartForm.File["images"] {
			file, err := hdr.Open()
			if err != nil {
				return err
			}
			stored, err := a.files.Save(hdr.Filename, file)
			file.Close()
			if err != nil {
				return err
			}
			images = append(images, forum.PostImage{FilePath: stored, AltText: hdr.Filename})
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "Invalid body"}
	}

	if !nonEmpty(req.Title, 1, 200) {
		return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid title (1..200)"}
	}
	if !nonEmpty(req.Content, 1, 65535) {
		return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid content"}
	}

	p := &forum.Post{
		AuthorID: v.ID,
		Title:    strings.TrimSpace(req.Title),
		Content:  strings.TrimSpace(req.Content),
	}
	p.Rendered = renderText(p.Content)
	id, err := a.db.AddPost(p, req.Categories, images)
	if err != nil {
		return err
	}
	created, err := a.db.GetPostFull(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, created)
}

type updatePostRequest struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	Categories *[]int64 `json:"categories"`
	IsActive   *bool    `json:"is_active"`
}

func (a *App) updatePostHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	p, err := a.db.GetPost(id)
	if err != nil {
		return err
	}

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "Invalid body"}
	}

	var patch forum.PostPatch
	if req.Title != nil {
		if !forum.CanEditContent(v, p.AuthorID) {
			return &HTTPError{Code: http.StatusForbidden, Message: "Only owner can change title"}
		}
		if !nonEmpty(*req.Title, 1, 200) {
			return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid title"}
		}
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}
	if req.Content != nil {
		if !forum.CanEditContent(v, p.AuthorID) {
			return &HTTPError{Code: http.StatusForbidden, Message: "Only owner can change content"}
		}
		if !nonEmpty(*req.Content, 1, 65535) {
			return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid content"}
		}
		content := strings.TrimSpace(*req.Content)
		rendered := renderText(content)
		patch.Content = &content
		patch.Rendered = &rendered
	}
	if req.IsActive != nil {
		if !forum.CanTogglePost(v, p) {
			return &HTTPError{Code: http.StatusForbidden, Message: "Only owner or admin can change is_active"}
		}
		patch.Active = req.IsActive
	}

	if patch.Title != nil || patch.Content != nil || patch.Active != nil {
		if err := a.db.UpdatePost(id, patch); err != nil {
			return err
		}
	}
	if req.Categories != nil {
		if !forum.CanEditContent(v, p.AuthorID) {
			return &HTTPError{Code: http.StatusForbidden, Message: "Only owner can change categories"}
		}
		if err := a.db.ReplacePostCategories(id, *req.Categories); err != nil {
			return err
		}
	}

	updated, err := a.db.GetPostFull(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, updated)
}

func (a *App) deletePostHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	p, err := a.db.GetPost(id)
	if err != nil {
		return err
	}
	if !forum.CanDelete(v, p.AuthorID) {
		return forum.ErrForbidden
	}
	if err := a.db.DeletePost(id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}

func (a *App) getPostCategoriesHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	if _, err := a.model.VisiblePost(id, a.viewer(r)); err != nil {
		return err
	}
	cats, err := a.db.GetPostCategories(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, cats)
}

func (a *App) getPostCommentsHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	if _, err := a.model.VisiblePost(id, a.viewer(r)); err != nil {
		return err
	}
	comments, err := a.db.ListComments(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, comments)
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id"`
}

func (a *App) createCommentHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	p, err := a.db.GetPost(id)
	if err != nil {
		return err
	}
	if !forum.CanComment(v, p) {
		return &HTTPError{Code: http.StatusForbidden, Message: "Comments are allowed only under active posts"}
	}
	if !a.guard.CanPost(v.ID) {
		return &HTTPError{Code: http.StatusTooManyRequests, Message: "Please wait before posting again"}
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "Invalid body"}
	}
	if !nonEmpty(req.Content, 1, 65535) {
		return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid content"}
	}
	if req.ParentID != nil {
		parent, err := a.db.GetComment(*req.ParentID)
		if err != nil || parent.PostID != id {
			return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid parent comment"}
		}
		if !forum.CanReply(v, p, parent) {
			return &HTTPError{Code: http.StatusForbidden, Message: "Cannot reply to inactive comment"}
		}
	}

	content := strings.TrimSpace(req.Content)
	commentID, err := a.db.AddComment(&forum.Comment{
		PostID:   id,
		ParentID: req.ParentID,
		AuthorID: v.ID,
		Content:  content,
		Rendered: renderText(content),
	})
	if err != nil {
		return err
	}
	created, err := a.db.GetComment(commentID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, created)
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

// updateCommentStatusHandler is the post-level moderation switch: it flips
// the one targeted comment and nothing else. The comment author, the post
// owner and admins may use it.
func (a *App) updateCommentStatusHandler(w http.ResponseWriter, r *http.Request) error {
	postID, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	commentID, err := muxID(r, "comment_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	c, err := a.db.GetCommentWithPost(commentID)
	if err != nil {
		return err
	}
	if !v.Admin() {
		if c.PostID != postID {
			return forum.ErrNotFound
		}
		if !forum.CanToggleComment(v, &c.Comment, c.Post()) {
			return forum.ErrForbidden
		}
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		return &HTTPError{Code: http.StatusBadRequest, Message: "is_active is required"}
	}
	if err := a.cascade.SetStatus(commentID, *req.IsActive); err != nil {
		return err
	}
	updated, err := a.db.GetComment(commentID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, updated)
}

func (a *App) getPostLikesHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	if _, err := a.model.VisiblePost(id, a.viewer(r)); err != nil {
		return err
	}
	likes, err := a.db.ListLikes(forum.PostTarget(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, likes)
}

type reactionRequest struct {
	Type forum.ReactionType `json:"type"`
}

func (a *App) likePostHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	p, err := a.db.GetPost(id)
	if err != nil {
		return err
	}
	if !forum.CanViewPost(v, p) {
		return forum.ErrNotFound
	}
	if !forum.CanReactToPost(v, p) {
		return &HTTPError{Code: http.StatusForbidden, Message: "Likes are disabled for inactive posts"}
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Type.Valid() {
		return &HTTPError{Code: http.StatusBadRequest, Message: "type must be like|dislike"}
	}
	target := forum.PostTarget(id)
	if err := a.ledger.Upsert(v.ID, target, req.Type); err != nil {
		return err
	}
	score, err := a.ledger.Aggregate(target)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, scoreResponse{Message: "ok", Score: score})
}

func (a *App) unlikePostHandler(w http.ResponseWriter, r *http.Request) error {
	id, err := muxID(r, "post_id")
	if err != nil {
		return err
	}
	v, err := a.requireViewer(r)
	if err != nil {
		return err
	}
	p, err := a.db.GetPost(id)
	if err != nil {
		return err
	}
	if !forum.CanViewPost(v, p) {
		return forum.ErrNotFound
	}
	if !forum.CanReactToPost(v, p) {
		return &HTTPError{Code: http.StatusForbidden, Message: "Likes are disabled for inactive posts"}
	}

	target := forum.PostTarget(id)
	if err := a.ledger.Remove(v.ID, target); err != nil {
		return err
	}
	score, err := a.ledger.Aggregate(target)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, scoreResponse{Message: "Like removed", Score: score})
}
