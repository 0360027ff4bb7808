package main

import (
	"errors"
	"testing"

	"usof/database/memory"
	"usof/forum"
)

type cascadeEnv struct {
	db      *memory.Memory
	cascade *Cascade
	post    int64
	top     int64 // top-level comment
	replyA  int64 // direct reply to top
	replyB  int64 // direct reply to top
	nested  int64 // reply to replyA, one level deeper
}

func newCascadeEnv(t *testing.T) *cascadeEnv {
	t.Helper()
	db := memory.New()
	author := db.SeedUser(forum.User{Login: "author"})
	postID, err := db.AddPost(&forum.Post{AuthorID: author, Title: "thread", Content: "body"}, nil, nil)
	if err != nil {
		t.Fatalf("add post: %v", err)
	}
	add := func(parent *int64) int64 {
		id, err := db.AddComment(&forum.Comment{PostID: postID, AuthorID: author, Content: "c", ParentID: parent})
		if err != nil {
			t.Fatalf("add comment: %v", err)
		}
		return id
	}
	top := add(nil)
	replyA := add(&top)
	replyB := add(&top)
	nested := add(&replyA)
	return &cascadeEnv{
		db:      db,
		cascade: NewCascade(db),
		post:    postID,
		top:     top,
		replyA:  replyA,
		replyB:  replyB,
		nested:  nested,
	}
}

func (e *cascadeEnv) active(t *testing.T, id int64) bool {
	t.Helper()
	c, err := e.db.GetComment(id)
	if err != nil {
		t.Fatalf("get comment %d: %v", id, err)
	}
	return c.Active
}

func TestCascadeStatusOneLevel(t *testing.T) {
	e := newCascadeEnv(t)
	if err := e.cascade.CascadeStatus(e.top, false); err != nil {
		t.Fatalf("cascade: %v", err)
	}
	for _, id := range []int64{e.top, e.replyA, e.replyB} {
		if e.active(t, id) {
			t.Errorf("comment %d still active, want inactive", id)
		}
	}
	// the grandchild is outside the cascade
	if !e.active(t, e.nested) {
		t.Errorf("nested reply %d deactivated, want untouched", e.nested)
	}
}

func TestCascadeStatusReactivates(t *testing.T) {
	e := newCascadeEnv(t)
	if err := e.cascade.CascadeStatus(e.top, false); err != nil {
		t.Fatal(err)
	}
	if err := e.cascade.CascadeStatus(e.top, true); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{e.top, e.replyA, e.replyB, e.nested} {
		if !e.active(t, id) {
			t.Errorf("comment %d inactive after reactivation", id)
		}
	}
}

func TestSetStatusDoesNotCascade(t *testing.T) {
	e := newCascadeEnv(t)
	if err := e.cascade.SetStatus(e.top, false); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if e.active(t, e.top) {
		t.Error("top comment still active")
	}
	for _, id := range []int64{e.replyA, e.replyB, e.nested} {
		if !e.active(t, id) {
			t.Errorf("reply %d deactivated, want untouched", id)
		}
	}
}

func TestCascadeStatusMissing(t *testing.T) {
	e := newCascadeEnv(t)
	if err := e.cascade.CascadeStatus(9999, false); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := e.cascade.SetStatus(9999, false); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("set status err = %v, want ErrNotFound", err)
	}
}
