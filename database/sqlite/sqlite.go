package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"usof/database"
	"usof/forum"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const scoreSQL = `COALESCE(SUM(CASE l.type WHEN 'like' THEN 1 WHEN 'dislike' THEN -1 ELSE 0 END),0)`

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	login TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL DEFAULT '',
	profile_pic TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	rating INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	rendered TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	published_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	parent_id INTEGER,
	author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	rendered TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	published_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS post_categories (
	post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (post_id, category_id)
);

CREATE TABLE IF NOT EXISTS post_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	filepath TEXT NOT NULL,
	alt_text TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS likes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	post_id INTEGER REFERENCES posts(id) ON DELETE CASCADE,
	comment_id INTEGER REFERENCES comments(id) ON DELETE CASCADE,
	type TEXT NOT NULL CHECK (type IN ('like','dislike')),
	CHECK ((post_id IS NULL) <> (comment_id IS NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS likes_author_post ON likes(author_id, post_id) WHERE post_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS likes_author_comment ON likes(author_id, comment_id) WHERE comment_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS comments_post ON comments(post_id);
CREATE INDEX IF NOT EXISTS comments_parent ON comments(parent_id);
`

type SQLite struct {
	db *sqlx.DB
}

func New() *SQLite {
	return &SQLite{}
}

func (m *SQLite) Open(driver, dsn string) error {
	var err error
	m.db, err = sqlx.Open(driver, dsn)
	if err != nil {
		return err
	}
	if err = m.db.Ping(); err != nil {
		return err
	}
	if _, err = m.db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		return err
	}
	_, err = m.db.Exec(schema)
	return err
}

func (m *SQLite) Close() error {
	return m.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return forum.ErrNotFound
	}
	return err
}

func conflict(err error) error {
	return fmt.Errorf("%w: %v", forum.ErrConflict, err)
}

func domainErr(err error) bool {
	return errors.Is(err, forum.ErrNotFound) ||
		errors.Is(err, forum.ErrForbidden) ||
		errors.Is(err, forum.ErrInvalidInput)
}

func targetColumn(t forum.Target) string {
	if t.Kind() == forum.TargetComment {
		return "comment_id"
	}
	return "post_id"
}

func (m *SQLite) GetUser(id int64) (*forum.User, error) {
	var u forum.User
	if err := m.db.Get(&u, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *SQLite) ListUsers(count, offset int) ([]forum.User, error) {
	users := []forum.User{}
	err := m.db.Select(&users, `SELECT * FROM users ORDER BY id LIMIT ? OFFSET ?`, count, offset)
	return users, err
}

func (m *SQLite) GetPost(id int64) (*forum.Post, error) {
	var p forum.Post
	if err := m.db.Get(&p, `SELECT * FROM posts WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (m *SQLite) GetPostFull(id int64) (*forum.Post, error) {
	var p forum.Post
	err := m.db.Get(&p, `
		SELECT p.*, `+scoreSQL+` AS score
		FROM posts p
		LEFT JOIN likes l ON l.post_id = p.id
		WHERE p.id = ?
		GROUP BY p.id`, id)
	if err != nil {
		return nil, notFound(err)
	}
	if p.Categories, err = m.GetPostCategories(id); err != nil {
		return nil, err
	}
	if p.Images, err = m.GetPostImages(id); err != nil {
		return nil, err
	}
	if u, err := m.GetUser(p.AuthorID); err == nil {
		p.Author = u
	}
	return &p, nil
}

// postWhere builds the viewer- and filter-dependent WHERE clause shared by
// ListPosts and CountPosts. Slice arguments are expanded with sqlx.In.
func postWhere(f forum.PostFilter) (string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if !f.Viewer.Admin() {
		var viewerID int64
		if f.Viewer.Authenticated() {
			viewerID = f.Viewer.ID
		}
		where = append(where, "(p.is_active = 1 OR p.author_id = ?)")
		args = append(args, viewerID)
	}
	if f.Status != "all" {
		where = append(where, "p.is_active = 1")
	}
	if len(f.CategoryID) > 0 {
		where = append(where, "p.id IN (SELECT post_id FROM post_categories WHERE category_id IN (?))")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		where = append(where, "p.published_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "p.published_at <= ?")
		args = append(args, f.To)
	}
	if f.Query != "" {
		where = append(where, "(p.title LIKE ? OR p.content LIKE ?)")
		pat := "%" + f.Query + "%"
		args = append(args, pat, pat)
	}
	return strings.Join(where, " AND "), args
}

func postOrder(f forum.PostFilter) string {
	dir := "DESC"
	if f.Order == "asc" {
		dir = "ASC"
	}
	if f.Sort == "date" {
		return "p.published_at " + dir
	}
	return "score " + dir + ", p.published_at DESC"
}

func (m *SQLite) ListPosts(f forum.PostFilter) ([]forum.Post, error) {
	where, args := postWhere(f)
	query := `
		SELECT p.*, ` + scoreSQL + ` AS score
		FROM posts p
		LEFT JOIN likes l ON l.post_id = p.id
		WHERE ` + where + `
		GROUP BY p.id
		ORDER BY ` + postOrder(f) + `
		LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	posts := []forum.Post{}
	err = m.db.Select(&posts, query, args...)
	return posts, err
}

func (m *SQLite) CountPosts(f forum.PostFilter) (int, error) {
	where, args := postWhere(f)
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM posts p WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	var total int
	err = m.db.Get(&total, query, args...)
	return total, err
}

func (m *SQLite) AddPost(p *forum.Post, categoryIDs []int64, images []forum.PostImage) (int64, error) {
	tx, err := m.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	now := time.Now()
	res, err := tx.NamedExec(`INSERT INTO posts (author_id, title, content, rendered, is_active, published_at, updated_at)
		VALUES (:author_id, :title, :content, :rendered, :is_active, :published_at, :updated_at)`,
		map[string]interface{}{
			"author_id":    p.AuthorID,
			"title":        p.Title,
			"content":      p.Content,
			"rendered":     p.Rendered,
			"is_active":    true,
			"published_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, cid := range categoryIDs {
		if _, err = tx.Exec(`INSERT INTO post_categories (post_id, category_id) VALUES (?, ?)`, id, cid); err != nil {
			return 0, err
		}
	}
	for i, img := range images {
		if _, err = tx.Exec(`INSERT INTO post_images (post_id, filepath, alt_text, sort_order) VALUES (?, ?, ?, ?)`,
			id, img.FilePath, img.AltText, i); err != nil {
			return 0, err
		}
	}
	return id, tx.Commit()
}

func (m *SQLite) UpdatePost(id int64, patch forum.PostPatch) error {
	set := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}
	if patch.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		set = append(set, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Rendered != nil {
		set = append(set, "rendered = ?")
		args = append(args, *patch.Rendered)
	}
	if patch.Active != nil {
		set = append(set, "is_active = ?")
		args = append(args, *patch.Active)
	}
	args = append(args, id)
	res, err := m.db.Exec(`UPDATE posts SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) ReplacePostCategories(postID int64, categoryIDs []int64) error {
	tx, err := m.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err = tx.Exec(`DELETE FROM post_categories WHERE post_id = ?`, postID); err != nil {
		return err
	}
	for _, cid := range categoryIDs {
		if _, err = tx.Exec(`INSERT INTO post_categories (post_id, category_id) VALUES (?, ?)`, postID, cid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *SQLite) DeletePost(id int64) error {
	res, err := m.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) GetPostCategories(postID int64) ([]forum.Category, error) {
	cats := []forum.Category{}
	err := m.db.Select(&cats, `
		SELECT c.* FROM post_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = ?
		ORDER BY c.title ASC`, postID)
	return cats, err
}

func (m *SQLite) GetPostImages(postID int64) ([]forum.PostImage, error) {
	imgs := []forum.PostImage{}
	err := m.db.Select(&imgs, `
		SELECT * FROM post_images WHERE post_id = ?
		ORDER BY sort_order ASC, id ASC`, postID)
	return imgs, err
}

func (m *SQLite) GetComment(id int64) (*forum.Comment, error) {
	var c forum.Comment
	err := m.db.Get(&c, `
		SELECT c.*, u.login AS author_login, u.profile_pic AS author_avatar
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (m *SQLite) GetCommentWithPost(id int64) (*forum.CommentWithPost, error) {
	var c forum.CommentWithPost
	err := m.db.Get(&c, `
		SELECT c.*, u.login AS author_login, u.profile_pic AS author_avatar,
		       p.author_id AS post_author_id, p.is_active AS post_is_active
		FROM comments c
		JOIN users u ON u.id = c.author_id
		JOIN posts p ON p.id = c.post_id
		WHERE c.id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (m *SQLite) ListComments(postID int64) ([]forum.Comment, error) {
	comments := []forum.Comment{}
	err := m.db.Select(&comments, `
		SELECT c.*, u.login AS author_login, u.profile_pic AS author_avatar
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.published_at ASC, c.id ASC`, postID)
	return comments, err
}

func (m *SQLite) AddComment(c *forum.Comment) (int64, error) {
	res, err := m.db.NamedExec(`INSERT INTO comments (post_id, parent_id, author_id, content, rendered, is_active, published_at)
		VALUES (:post_id, :parent_id, :author_id, :content, :rendered, :is_active, :published_at)`,
		map[string]interface{}{
			"post_id":      c.PostID,
			"parent_id":    c.ParentID,
			"author_id":    c.AuthorID,
			"content":      c.Content,
			"rendered":     c.Rendered,
			"is_active":    true,
			"published_at": time.Now(),
		})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (m *SQLite) UpdateCommentContent(id int64, content, rendered string) error {
	res, err := m.db.Exec(`UPDATE comments SET content = ?, rendered = ? WHERE id = ?`, content, rendered, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) DeleteComment(id int64) error {
	res, err := m.db.Exec(`DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) ListCategories() ([]forum.Category, error) {
	cats := []forum.Category{}
	err := m.db.Select(&cats, `SELECT * FROM categories ORDER BY id ASC`)
	return cats, err
}

func (m *SQLite) GetCategory(id int64) (*forum.Category, error) {
	var c forum.Category
	if err := m.db.Get(&c, `SELECT * FROM categories WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (m *SQLite) AddCategory(c *forum.Category) (int64, error) {
	res, err := m.db.Exec(`INSERT INTO categories (title, description) VALUES (?, ?)`, c.Title, c.Description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (m *SQLite) UpdateCategory(c *forum.Category) error {
	res, err := m.db.Exec(`UPDATE categories SET title = ?, description = ? WHERE id = ?`, c.Title, c.Description, c.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) DeleteCategory(id int64) error {
	res, err := m.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *SQLite) ListLikes(t forum.Target) ([]forum.Reaction, error) {
	likes := []forum.Reaction{}
	err := m.db.Select(&likes, `SELECT * FROM likes WHERE `+targetColumn(t)+` = ? ORDER BY id ASC`, t.ID())
	return likes, err
}

func (m *SQLite) AggregateScore(t forum.Target) (int, error) {
	var score int
	err := m.db.Get(&score, `SELECT `+scoreSQL+` FROM likes l WHERE l.`+targetColumn(t)+` = ?`, t.ID())
	return score, err
}

func (m *SQLite) InTx(fn func(tx database.Tx) error) error {
	txx, err := m.db.Beginx()
	if err != nil {
		return conflict(err)
	}
	if err := fn(&sqliteTx{txx}); err != nil {
		txx.Rollback()
		if domainErr(err) {
			return err
		}
		return conflict(err)
	}
	if err := txx.Commit(); err != nil {
		return conflict(err)
	}
	return nil
}

// sqliteTx: sqlite has no SELECT ... FOR UPDATE; a write transaction holds
// the database write lock, which already serializes ledger mutations.
type sqliteTx struct {
	tx *sqlx.Tx
}

func (t *sqliteTx) LockTarget(target forum.Target) (*database.TargetRow, error) {
	table := "posts"
	if target.Kind() == forum.TargetComment {
		table = "comments"
	}
	var row database.TargetRow
	err := t.tx.QueryRowx(`SELECT author_id, is_active FROM `+table+` WHERE id = ?`, target.ID()).
		Scan(&row.OwnerID, &row.Active)
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (t *sqliteTx) LockLike(actorID int64, target forum.Target) (*forum.Reaction, error) {
	var l forum.Reaction
	err := t.tx.Get(&l, `SELECT * FROM likes WHERE author_id = ? AND `+targetColumn(target)+` = ?`, actorID, target.ID())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *sqliteTx) InsertLike(l *forum.Reaction) error {
	_, err := t.tx.Exec(`INSERT INTO likes (author_id, post_id, comment_id, type) VALUES (?, ?, ?, ?)`,
		l.AuthorID, l.PostID, l.CommentID, l.Type)
	return err
}

func (t *sqliteTx) SetLikeType(likeID int64, rt forum.ReactionType) error {
	_, err := t.tx.Exec(`UPDATE likes SET type = ? WHERE id = ?`, rt, likeID)
	return err
}

func (t *sqliteTx) DeleteLike(likeID int64) error {
	_, err := t.tx.Exec(`DELETE FROM likes WHERE id = ?`, likeID)
	return err
}

func (t *sqliteTx) AdjustRating(userID int64, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := t.tx.Exec(`UPDATE users SET rating = rating + ? WHERE id = ?`, delta, userID)
	return err
}

func (t *sqliteTx) SetCommentActive(id int64, active bool) error {
	res, err := t.tx.Exec(`UPDATE comments SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (t *sqliteTx) SetRepliesActive(parentID int64, active bool) error {
	_, err := t.tx.Exec(`UPDATE comments SET is_active = ? WHERE parent_id = ?`, active, parentID)
	return err
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return forum.ErrNotFound
	}
	return nil
}
