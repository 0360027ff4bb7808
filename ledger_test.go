package main

import (
	"errors"
	"sync"
	"testing"

	"usof/database/memory"
	"usof/forum"
)

type ledgerEnv struct {
	db     *memory.Memory
	ledger *Ledger
	owner  int64
	actor  int64
	post   forum.Target
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	db := memory.New()
	owner := db.SeedUser(forum.User{Login: "owner"})
	actor := db.SeedUser(forum.User{Login: "actor"})
	postID, err := db.AddPost(&forum.Post{AuthorID: owner, Title: "first", Content: "hello"}, nil, nil)
	if err != nil {
		t.Fatalf("add post: %v", err)
	}
	return &ledgerEnv{
		db:     db,
		ledger: NewLedger(db),
		owner:  owner,
		actor:  actor,
		post:   forum.PostTarget(postID),
	}
}

func (e *ledgerEnv) rating(t *testing.T) int {
	t.Helper()
	u, err := e.db.GetUser(e.owner)
	if err != nil {
		t.Fatalf("get owner: %v", err)
	}
	return u.Rating
}

func (e *ledgerEnv) score(t *testing.T, target forum.Target) int {
	t.Helper()
	score, err := e.ledger.Aggregate(target)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	return score
}

func TestUpsertIdempotent(t *testing.T) {
	e := newLedgerEnv(t)
	for i := 0; i < 2; i++ {
		if err := e.ledger.Upsert(e.actor, e.post, forum.Like); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	if got := e.score(t, e.post); got != 1 {
		t.Errorf("score = %d, want 1", got)
	}
	if got := e.rating(t); got != 1 {
		t.Errorf("rating = %d, want 1", got)
	}
	likes, _ := e.db.ListLikes(e.post)
	if len(likes) != 1 {
		t.Errorf("like rows = %d, want 1", len(likes))
	}
}

func TestUpsertToggle(t *testing.T) {
	e := newLedgerEnv(t)
	if err := e.ledger.Upsert(e.actor, e.post, forum.Like); err != nil {
		t.Fatal(err)
	}
	if err := e.ledger.Upsert(e.actor, e.post, forum.Dislike); err != nil {
		t.Fatal(err)
	}
	if got := e.score(t, e.post); got != -1 {
		t.Errorf("score = %d, want -1", got)
	}
	if got := e.rating(t); got != -1 {
		t.Errorf("rating = %d, want -1", got)
	}
	likes, _ := e.db.ListLikes(e.post)
	if len(likes) != 1 {
		t.Errorf("like rows = %d, want 1", len(likes))
	}
}

func TestRemoveWithoutReaction(t *testing.T) {
	e := newLedgerEnv(t)
	if err := e.ledger.Remove(e.actor, e.post); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := e.score(t, e.post); got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
	if got := e.rating(t); got != 0 {
		t.Errorf("rating = %d, want 0", got)
	}
}

func TestRemoveRollsBackRating(t *testing.T) {
	e := newLedgerEnv(t)
	if err := e.ledger.Upsert(e.actor, e.post, forum.Dislike); err != nil {
		t.Fatal(err)
	}
	if err := e.ledger.Remove(e.actor, e.post); err != nil {
		t.Fatal(err)
	}
	if got := e.score(t, e.post); got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
	if got := e.rating(t); got != 0 {
		t.Errorf("rating = %d, want 0", got)
	}
	likes, _ := e.db.ListLikes(e.post)
	if len(likes) != 0 {
		t.Errorf("like rows = %d, want 0", len(likes))
	}
}

func TestCommentReactionsFeedSameRating(t *testing.T) {
	e := newLedgerEnv(t)
	commentID, err := e.db.AddComment(&forum.Comment{PostID: e.post.ID(), AuthorID: e.owner, Content: "mine"})
	if err != nil {
		t.Fatal(err)
	}
	comment := forum.CommentTarget(commentID)
	if err := e.ledger.Upsert(e.actor, e.post, forum.Like); err != nil {
		t.Fatal(err)
	}
	if err := e.ledger.Upsert(e.actor, comment, forum.Like); err != nil {
		t.Fatal(err)
	}
	// one rating per user, fed by posts and comments combined
	if got := e.rating(t); got != 2 {
		t.Errorf("rating = %d, want 2", got)
	}
	if got := e.score(t, comment); got != 1 {
		t.Errorf("comment score = %d, want 1", got)
	}
}

func TestRatingMatchesReplay(t *testing.T) {
	e := newLedgerEnv(t)
	second := e.db.SeedUser(forum.User{Login: "second"})
	otherPost, _ := e.db.AddPost(&forum.Post{AuthorID: e.owner, Title: "second post", Content: "more"}, nil, nil)
	other := forum.PostTarget(otherPost)

	steps := []struct {
		actor  int64
		target forum.Target
		rt     forum.ReactionType
		remove bool
	}{
		{e.actor, e.post, forum.Like, false},
		{second, e.post, forum.Like, false},
		{e.actor, other, forum.Dislike, false},
		{e.actor, e.post, forum.Dislike, false},
		{second, e.post, forum.Like, false}, // resubmission
		{e.actor, other, forum.Dislike, true},
		{second, other, forum.Like, false},
	}
	for i, s := range steps {
		var err error
		if s.remove {
			err = e.ledger.Remove(s.actor, s.target)
		} else {
			err = e.ledger.Upsert(s.actor, s.target, s.rt)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := 0
	for _, target := range []forum.Target{e.post, other} {
		likes, _ := e.db.ListLikes(target)
		for _, l := range likes {
			want += l.Type.Value()
		}
	}
	if got := e.rating(t); got != want {
		t.Errorf("rating = %d, want %d (sum over committed like rows)", got, want)
	}
}

func TestUpsertTargetGone(t *testing.T) {
	e := newLedgerEnv(t)
	if err := e.ledger.Upsert(e.actor, forum.PostTarget(9999), forum.Like); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	// target deleted between two reactions
	if err := e.ledger.Upsert(e.actor, e.post, forum.Like); err != nil {
		t.Fatal(err)
	}
	if err := e.db.DeletePost(e.post.ID()); err != nil {
		t.Fatal(err)
	}
	if err := e.ledger.Upsert(e.actor, e.post, forum.Dislike); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := e.ledger.Remove(e.actor, e.post); !errors.Is(err, forum.ErrNotFound) {
		t.Errorf("remove err = %v, want ErrNotFound", err)
	}
}

func TestInvalidTargets(t *testing.T) {
	e := newLedgerEnv(t)
	var zero forum.Target
	if err := e.ledger.Upsert(e.actor, zero, forum.Like); !errors.Is(err, forum.ErrInvalidInput) {
		t.Errorf("upsert err = %v, want ErrInvalidInput", err)
	}
	if err := e.ledger.Remove(e.actor, zero); !errors.Is(err, forum.ErrInvalidInput) {
		t.Errorf("remove err = %v, want ErrInvalidInput", err)
	}
	if _, err := e.ledger.Aggregate(zero); !errors.Is(err, forum.ErrInvalidInput) {
		t.Errorf("aggregate err = %v, want ErrInvalidInput", err)
	}
	if err := e.ledger.Upsert(e.actor, e.post, forum.ReactionType("meh")); !errors.Is(err, forum.ErrInvalidInput) {
		t.Errorf("bad type err = %v, want ErrInvalidInput", err)
	}
}

func TestConcurrentReactions(t *testing.T) {
	e := newLedgerEnv(t)
	const actors = 32
	ids := make([]int64, actors)
	for i := range ids {
		ids[i] = e.db.SeedUser(forum.User{Login: "u"})
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(actor int64) {
			defer wg.Done()
			// double submission from every actor must still count once
			e.ledger.Upsert(actor, e.post, forum.Like)
			e.ledger.Upsert(actor, e.post, forum.Like)
		}(id)
	}
	wg.Wait()
	if got := e.score(t, e.post); got != actors {
		t.Errorf("score = %d, want %d", got, actors)
	}
	if got := e.rating(t); got != actors {
		t.Errorf("rating = %d, want %d", got, actors)
	}
	likes, _ := e.db.ListLikes(e.post)
	if len(likes) != actors {
		t.Errorf("like rows = %d, want %d", len(likes), actors)
	}
}
