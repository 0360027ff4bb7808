package main

import (
	"errors"
	"testing"

	"usof/database/memory"
	"usof/forum"
)

func TestVisiblePostHidesInactive(t *testing.T) {
	db := memory.New()
	author := db.SeedUser(forum.User{Login: "author"})
	stranger := db.SeedUser(forum.User{Login: "stranger"})
	admin := db.SeedUser(forum.User{Login: "mod", Role: forum.RoleAdmin})
	postID, _ := db.AddPost(&forum.Post{AuthorID: author, Title: "t", Content: "c"}, nil, nil)
	inactive := false
	if err := db.UpdatePost(postID, forum.PostPatch{Active: &inactive}); err != nil {
		t.Fatal(err)
	}
	model := NewModel(db)

	if _, err := model.VisiblePost(postID, nil); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("anonymous err = %v, want ErrNotFound", err)
	}
	if _, err := model.VisiblePost(postID, &forum.Viewer{ID: stranger, Role: forum.RoleUser}); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("stranger err = %v, want ErrNotFound", err)
	}
	if _, err := model.VisiblePost(postID, &forum.Viewer{ID: author, Role: forum.RoleUser}); err != nil {
		t.Errorf("author err = %v, want nil", err)
	}
	if _, err := model.VisiblePost(postID, &forum.Viewer{ID: admin, Role: forum.RoleAdmin}); err != nil {
		t.Errorf("admin err = %v, want nil", err)
	}
}

func TestVisibleCommentFollowsPost(t *testing.T) {
	db := memory.New()
	author := db.SeedUser(forum.User{Login: "author"})
	stranger := db.SeedUser(forum.User{Login: "stranger"})
	postID, _ := db.AddPost(&forum.Post{AuthorID: author, Title: "t", Content: "c"}, nil, nil)
	commentID, _ := db.AddComment(&forum.Comment{PostID: postID, AuthorID: stranger, Content: "reply"})
	model := NewModel(db)

	if _, err := model.VisibleComment(commentID, nil); err != nil {
		t.Errorf("active comment err = %v, want nil", err)
	}

	// hiding the post hides the comment for everyone but the post author
	inactive := false
	if err := db.UpdatePost(postID, forum.PostPatch{Active: &inactive}); err != nil {
		t.Fatal(err)
	}
	if _, err := model.VisibleComment(commentID, &forum.Viewer{ID: stranger, Role: forum.RoleUser}); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("comment author err = %v, want ErrNotFound", err)
	}
	if _, err := model.VisibleComment(commentID, &forum.Viewer{ID: author, Role: forum.RoleUser}); err != nil {
		t.Errorf("post author err = %v, want nil", err)
	}
}
