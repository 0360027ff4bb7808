package database

import (
	"usof/forum"
)

// Database is the storage contract the application is written against.
// sqlite and postgres provide the real backends; memory backs the tests.
type Database interface {
	Open(driver, dsn string) error
	Close() error

	GetUser(id int64) (*forum.User, error)
	ListUsers(count, offset int) ([]forum.User, error)

	GetPost(id int64) (*forum.Post, error)
	GetPostFull(id int64) (*forum.Post, error)
	ListPosts(f forum.PostFilter) ([]forum.Post, error)
	CountPosts(f forum.PostFilter) (int, error)
	AddPost(p *forum.Post, categoryIDs []int64, images []forum.PostImage) (int64, error)
	UpdatePost(id int64, patch forum.PostPatch) error
	ReplacePostCategories(postID int64, categoryIDs []int64) error
	DeletePost(id int64) error
	GetPostCategories(postID int64) ([]forum.Category, error)
	GetPostImages(postID int64) ([]forum.PostImage, error)

	GetComment(id int64) (*forum.Comment, error)
	GetCommentWithPost(id int64) (*forum.CommentWithPost, error)
	ListComments(postID int64) ([]forum.Comment, error)
	AddComment(c *forum.Comment) (int64, error)
	UpdateCommentContent(id int64, content, rendered string) error
	DeleteComment(id int64) error

	ListCategories() ([]forum.Category, error)
	GetCategory(id int64) (*forum.Category, error)
	AddCategory(c *forum.Category) (int64, error)
	UpdateCategory(c *forum.Category) error
	DeleteCategory(id int64) error

	ListLikes(t forum.Target) ([]forum.Reaction, error)
	AggregateScore(t forum.Target) (int, error)

	// InTx runs fn inside a single transaction. A nil return commits,
	// anything else rolls back. Errors that are not domain sentinels are
	// surfaced wrapped in forum.ErrConflict so callers may retry.
	InTx(fn func(tx Tx) error) error
}

// Tx is the locked, transactional surface used by the reaction ledger and
// the thread cascade. Lock order is fixed: target row first, like row
// second; every caller must follow it.
type Tx interface {
	// LockTarget reads the target row for update, serializing concurrent
	// reactions to the same target. forum.ErrNotFound if it is gone.
	LockTarget(t forum.Target) (*TargetRow, error)
	// LockLike reads the actor's existing reaction row for update.
	// Returns (nil, nil) when the actor has no reaction on the target.
	LockLike(actorID int64, t forum.Target) (*forum.Reaction, error)
	InsertLike(l *forum.Reaction) error
	SetLikeType(likeID int64, rt forum.ReactionType) error
	DeleteLike(likeID int64) error
	AdjustRating(userID int64, delta int) error

	SetCommentActive(id int64, active bool) error
	SetRepliesActive(parentID int64, active bool) error
}

// TargetRow is the locked projection of a reaction target.
type TargetRow struct {
	OwnerID int64
	Active  bool
}
