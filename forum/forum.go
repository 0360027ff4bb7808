package forum

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ReactionType is the closed set of reaction kinds.
type ReactionType string

const (
	Like    ReactionType = "like"
	Dislike ReactionType = "dislike"
)

func (rt ReactionType) Valid() bool {
	return rt == Like || rt == Dislike
}

// Value is the signed contribution of a reaction to a score or rating.
func (rt ReactionType) Value() int {
	if rt == Like {
		return 1
	}
	return -1
}

type User struct {
	ID       int64  `db:"id" json:"id"`
	Login    string `db:"login" json:"login"`
	FullName string `db:"full_name" json:"full_name"`
	Avatar   string `db:"profile_pic" json:"avatar"`
	Role     Role   `db:"role" json:"role"`
	Rating   int    `db:"rating" json:"rating"`
}

type Category struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
}

type PostImage struct {
	ID        int64  `db:"id" json:"id"`
	PostID    int64  `db:"post_id" json:"-"`
	FilePath  string `db:"filepath" json:"filepath"`
	AltText   string `db:"alt_text" json:"alt_text"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

type Post struct {
	ID          int64     `db:"id" json:"id"`
	AuthorID    int64     `db:"author_id" json:"author_id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	Rendered    string    `db:"rendered" json:"rendered"`
	Active      bool      `db:"is_active" json:"is_active"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	Score       int       `db:"score" json:"score"`

	Categories []Category  `json:"categories,omitempty"`
	Images     []PostImage `json:"images,omitempty"`
	Author     *User       `json:"author,omitempty"`
}

type Comment struct {
	ID          int64     `db:"id" json:"id"`
	PostID      int64     `db:"post_id" json:"post_id"`
	ParentID    *int64    `db:"parent_id" json:"parent_id"`
	AuthorID    int64     `db:"author_id" json:"author_id"`
	Content     string    `db:"content" json:"content"`
	Rendered    string    `db:"rendered" json:"rendered"`
	Active      bool      `db:"is_active" json:"is_active"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`

	AuthorLogin  string `db:"author_login" json:"author_login,omitempty"`
	AuthorAvatar string `db:"author_avatar" json:"author_avatar,omitempty"`
}

// CommentWithPost carries the owning post's moderation-relevant columns
// along with the comment, so callers can authorize without a second read.
type CommentWithPost struct {
	Comment
	PostAuthorID int64 `db:"post_author_id" json:"-"`
	PostActive   bool  `db:"post_is_active" json:"-"`
}

// Post reconstructs the owning post's policy-relevant fields.
func (c *CommentWithPost) Post() *Post {
	return &Post{ID: c.PostID, AuthorID: c.PostAuthorID, Active: c.PostActive}
}

// Reaction is exactly one vote by an author on a single target. The two
// target columns are mutually exclusive; Target() recovers the union.
type Reaction struct {
	ID        int64        `db:"id" json:"id"`
	AuthorID  int64        `db:"author_id" json:"author_id"`
	PostID    *int64       `db:"post_id" json:"post_id,omitempty"`
	CommentID *int64       `db:"comment_id" json:"comment_id,omitempty"`
	Type      ReactionType `db:"type" json:"type"`
}

func (l Reaction) Target() Target {
	if l.PostID != nil {
		return PostTarget(*l.PostID)
	}
	if l.CommentID != nil {
		return CommentTarget(*l.CommentID)
	}
	return Target{}
}

type TargetKind int

const (
	TargetPost TargetKind = iota + 1
	TargetComment
)

// Target identifies what a reaction applies to: a post or a comment,
// never both. The zero Target is invalid.
type Target struct {
	kind TargetKind
	id   int64
}

func PostTarget(id int64) Target    { return Target{TargetPost, id} }
func CommentTarget(id int64) Target { return Target{TargetComment, id} }

func (t Target) Kind() TargetKind { return t.kind }
func (t Target) ID() int64        { return t.id }

func (t Target) Validate() error {
	if t.id <= 0 {
		return ErrInvalidInput
	}
	switch t.kind {
	case TargetPost, TargetComment:
		return nil
	}
	return ErrInvalidInput
}

// Viewer is the identity evaluated by the visibility predicates.
// A nil *Viewer is an anonymous visitor.
type Viewer struct {
	ID   int64
	Role Role
}

func (v *Viewer) Authenticated() bool {
	return v != nil && v.ID > 0
}

func (v *Viewer) Admin() bool {
	return v != nil && v.Role == RoleAdmin
}

// PostFilter is the read-side filter for post listings.
type PostFilter struct {
	Viewer     *Viewer
	Status     string // "active" (default) or "all"
	CategoryID []int64
	From, To   time.Time
	Query      string
	Sort       string // "likes" (default) or "date"
	Order      string // "desc" (default) or "asc"
	Limit      int
	Offset     int
}

// PostPatch is a partial post update; nil fields are left unchanged.
type PostPatch struct {
	Title    *string
	Content  *string
	Rendered *string
	Active   *bool
}
