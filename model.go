package main

import (
	"usof/database"
	"usof/forum"
)

// Model is the policy-aware read side: it resolves entities and applies
// the visibility predicates, reporting hidden content as not found so
// existence does not leak.
type Model struct {
	db database.Database
}

func NewModel(db database.Database) *Model {
	return &Model{db}
}

func (m *Model) VisiblePost(id int64, v *forum.Viewer) (*forum.Post, error) {
	p, err := m.db.GetPostFull(id)
	if err != nil {
		return nil, err
	}
	if !forum.CanViewPost(v, p) {
		return nil, forum.ErrNotFound
	}
	return p, nil
}

func (m *Model) VisibleComment(id int64, v *forum.Viewer) (*forum.CommentWithPost, error) {
	c, err := m.db.GetCommentWithPost(id)
	if err != nil {
		return nil, err
	}
	if !forum.CanViewComment(v, &c.Comment, c.Post()) {
		return nil, forum.ErrNotFound
	}
	return c, nil
}
