package memory

import (
	"reflect"
	"testing"

	"usof/database"
	"usof/forum"
)

func TestImplementsDatabase(t *testing.T) {
	iface := reflect.TypeOf((*database.Database)(nil)).Elem()
	if !reflect.TypeOf(New()).Implements(iface) {
		t.Error("Memory does not implement database.Database")
	}
}

func seed(t *testing.T) (*Memory, int64, int64) {
	t.Helper()
	m := New()
	author := m.SeedUser(forum.User{Login: "author"})
	postID, err := m.AddPost(&forum.Post{AuthorID: author, Title: "Go question", Content: "how do channels work"}, nil, nil)
	if err != nil {
		t.Fatalf("add post: %v", err)
	}
	return m, author, postID
}

func TestPostLifecycle(t *testing.T) {
	m, author, postID := seed(t)

	p, err := m.GetPost(postID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.Active {
		t.Error("new post not active")
	}

	title := "edited"
	active := false
	if err := m.UpdatePost(postID, forum.PostPatch{Title: &title, Active: &active}); err != nil {
		t.Fatalf("update: %v", err)
	}
	p, _ = m.GetPost(postID)
	if p.Title != "edited" || p.Active {
		t.Errorf("patch not applied: %+v", p)
	}
	if p.AuthorID != author {
		t.Errorf("author changed: %d", p.AuthorID)
	}

	if err := m.DeletePost(postID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetPost(postID); err != forum.ErrNotFound {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := m.DeletePost(postID); err != forum.ErrNotFound {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestListPostsVisibility(t *testing.T) {
	m, author, postID := seed(t)
	hiddenID, _ := m.AddPost(&forum.Post{AuthorID: author, Title: "draft", Content: "unfinished"}, nil, nil)
	inactive := false
	if err := m.UpdatePost(hiddenID, forum.PostPatch{Active: &inactive}); err != nil {
		t.Fatal(err)
	}

	anon, err := m.ListPosts(forum.PostFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(anon) != 1 || anon[0].ID != postID {
		t.Errorf("anonymous listing = %+v, want only the active post", anon)
	}

	own, err := m.ListPosts(forum.PostFilter{
		Viewer: &forum.Viewer{ID: author, Role: forum.RoleUser},
		Status: "all",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 2 {
		t.Errorf("author listing has %d posts, want 2", len(own))
	}

	admin, err := m.ListPosts(forum.PostFilter{
		Viewer: &forum.Viewer{ID: 999, Role: forum.RoleAdmin},
		Status: "all",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(admin) != 2 {
		t.Errorf("admin listing has %d posts, want 2", len(admin))
	}
}

func TestListPostsSearch(t *testing.T) {
	m, author, postID := seed(t)
	m.AddPost(&forum.Post{AuthorID: author, Title: "unrelated", Content: "nothing here"}, nil, nil)

	found, err := m.ListPosts(forum.PostFilter{Query: "CHANNELS"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != postID {
		t.Errorf("search result = %+v, want the channels post", found)
	}
}

func TestCategoryDetach(t *testing.T) {
	m := New()
	author := m.SeedUser(forum.User{Login: "author"})
	catID, _ := m.AddCategory(&forum.Category{Title: "go"})
	postID, _ := m.AddPost(&forum.Post{AuthorID: author, Title: "t", Content: "c"}, []int64{catID}, nil)

	cats, _ := m.GetPostCategories(postID)
	if len(cats) != 1 {
		t.Fatalf("categories = %d, want 1", len(cats))
	}

	if err := m.DeleteCategory(catID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	cats, _ = m.GetPostCategories(postID)
	if len(cats) != 0 {
		t.Errorf("post still carries deleted category: %+v", cats)
	}
	if _, err := m.GetPost(postID); err != nil {
		t.Errorf("post gone with its category: %v", err)
	}
}

func TestCommentOrder(t *testing.T) {
	m, author, postID := seed(t)
	first, _ := m.AddComment(&forum.Comment{PostID: postID, AuthorID: author, Content: "first"})
	second, _ := m.AddComment(&forum.Comment{PostID: postID, AuthorID: author, Content: "second"})

	list, err := m.ListComments(postID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != first || list[1].ID != second {
		t.Errorf("comments out of order: %+v", list)
	}
}

func TestDeletePostDropsDependents(t *testing.T) {
	m, author, postID := seed(t)
	commentID, _ := m.AddComment(&forum.Comment{PostID: postID, AuthorID: author, Content: "c"})
	err := m.InTx(func(tx database.Tx) error {
		return tx.InsertLike(&forum.Reaction{AuthorID: author, PostID: &postID, Type: forum.Like})
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.DeletePost(postID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetComment(commentID); err != forum.ErrNotFound {
		t.Errorf("comment survived post delete: %v", err)
	}
	likes, _ := m.ListLikes(forum.PostTarget(postID))
	if len(likes) != 0 {
		t.Errorf("likes survived post delete: %+v", likes)
	}
}
