package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"usof/database"
	"usof/forum"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const scoreSQL = `COALESCE(SUM(CASE l.type WHEN 'like' THEN 1 WHEN 'dislike' THEN -1 ELSE 0 END),0)`

type Postgres struct {
	db *sqlx.DB
}

func New() *Postgres {
	return &Postgres{}
}

func (m *Postgres) Open(driver, dsn string) error {
	var err error
	m.db, err = sqlx.Open(driver, dsn)
	if err != nil {
		return err
	}
	return m.db.Ping()
}

func (m *Postgres) Close() error {
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

func (m *Postgres) GetUser(id int64) (*forum.User, error) {
	var u forum.User
	if err := m.db.Get(&u, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *Postgres) ListUsers(count, offset int) ([]forum.User, error) {
	users := []forum.User{}
	err := m.db.Select(&users, `SELECT * FROM users ORDER BY id LIMIT $1 OFFSET $2`, count, offset)
	return users, err
}

func (m *Postgres) GetPost(id int64) (*forum.Post, error) {
	var p forum.Post
	if err := m.db.Get(&p, `SELECT * FROM posts WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (m *Postgres) GetPostFull(id int64) (*forum.Post, error) {
	var p forum.Post
	err := m.db.Get(&p, `
		SELECT p.*, `+scoreSQL+` AS score
		FROM posts p
		LEFT JOIN likes l ON l.post_id = p.id
		WHERE p.id = $1
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

// postWhere builds the filter clause with ? placeholders; callers expand
// IN lists with sqlx.In and rebind for postgres.
func postWhere(f forum.PostFilter) (string, []interface{}) {
	where := []string{"TRUE"}
	args := []interface{}{}
	if !f.Viewer.Admin() {
		var viewerID int64
		if f.Viewer.Authenticated() {
			viewerID = f.Viewer.ID
		}
		where = append(where, "(p.is_active OR p.author_id = ?)")
		args = append(args, viewerID)
	}
	if f.Status != "all" {
		where = append(where, "p.is_active")
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
		where = append(where, "(p.title ILIKE ? OR p.content ILIKE ?)")
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

func (m *Postgres) ListPosts(f forum.PostFilter) ([]forum.Post, error) {
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
	err = m.db.Select(&posts, m.db.Rebind(query), args...)
	return posts, err
}

func (m *Postgres) CountPosts(f forum.PostFilter) (int, error) {
	where, args := postWhere(f)
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM posts p WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	var total int
	err = m.db.Get(&total, m.db.Rebind(query), args...)
	return total, err
}

func (m *Postgres) AddPost(p *forum.Post, categoryIDs []int64, images []forum.PostImage) (int64, error) {
	tx, err := m.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	now := time.Now()
	var id int64
	err = tx.QueryRowx(`INSERT INTO posts (author_id, title, content, rendered, is_active, published_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5) RETURNING id`,
		p.AuthorID, p.Title, p.Content, p.Rendered, now).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, cid := range categoryIDs {
		if _, err = tx.Exec(`INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)`, id, cid); err != nil {
			return 0, err
		}
	}
	for i, img := range images {
		if _, err = tx.Exec(`INSERT INTO post_images (post_id, filepath, alt_text, sort_order) VALUES ($1, $2, $3, $4)`,
			id, img.FilePath, img.AltText, i); err != nil {
			return 0, err
		}
	}
	return id, tx.Commit()
}

func (m *Postgres) UpdatePost(id int64, patch forum.PostPatch) error {
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
	res, err := m.db.Exec(m.db.Rebind(`UPDATE posts SET `+strings.Join(set, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *Postgres) ReplacePostCategories(postID int64, categoryIDs []int64) error {
	tx, err := m.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err = tx.Exec(`DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
		return err
	}
	for _, cid := range categoryIDs {
		if _, err = tx.Exec(`INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)`, postID, cid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Postgres) DeletePost(id int64) error {
	res, err := m.db.Exec(`DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *Postgres) GetPostCategories(postID int64) ([]forum.Category, error) {
	cats := []forum.Category{}
	err := m.db.Select(&cats, `
		SELECT c.* FROM post_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = $1
		ORDER BY c.title ASC`, postID)
	return cats, err
}

func (m *Postgres) GetPostImages(postID int64) ([]forum.PostImage, error) {
	imgs := []forum.PostImage{}
	err := m.db.Select(&imgs, `
		SELECT * FROM post_images WHERE post_id = $1
		ORDER BY sort_order ASC, id ASC`, postID)
	return imgs, err
}

func (m *Postgres) GetComment(id int64) (*forum.Comment, error) {
	var c forum.Comment
	err := m.db.Get(&c, `
		SELECT c.*, u.login AS author_login, u.profile_pic AS author_avatar
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (m *Postgres) GetCommentWithPost(id int64) (*forum.CommentWithPost, error) {
	var c forum.CommentWithPost
	err := m.db.Get(&c, `
		SELECT c.*, u.login AS author_login, u.profile_pic AS author_avatar,
		       p.author_id AS post_author_id, p.is_active AS post_is_active
		FROM comments c
		JOIN users u ON u.id = c.author_id
		JOIN posts p ON p.id = c.post_id
		WHERE c.id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (m *Postgres) ListComments(postID int64) ([]forum.Comment, error) {
	comments := []forum.Comment{}
	err := m.db.Select(&comments, `
		SELECT c.*, u.login AS author_login, u.profile_pic AS author_avatar
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.published_at ASC, c.id ASC`, postID)
	return comments, err
}

func (m *Postgres) AddComment(c *forum.Comment) (int64, error) {
	var id int64
	err := m.db.QueryRowx(`INSERT INTO comments (post_id, parent_id, author_id, content, rendered, is_active, published_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6) RETURNING id`,
		c.PostID, c.ParentID, c.AuthorID, c.Content, c.Rendered, time.Now()).Scan(&id)
	return id, err
}

func (m *Postgres) UpdateCommentContent(id int64, content, rendered string) error {
	res, err := m.db.Exec(`UPDATE comments SET content = $1, rendered = $2 WHERE id = $3`, content, rendered, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *Postgres) DeleteComment(id int64) error {
	res, err := m.db.Exec(`DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *Postgres) ListCategories() ([]forum.Category, error) {
	cats := []forum.Category{}
	err := m.db.Select(&cats, `SELECT * FROM categories ORDER BY id ASC`)
	return cats, err
}

func (m *Postgres) GetCategory(id int64) (*forum.Category, error) {
	var c forum.Category
	if err := m.db.Get(&c, `SELECT * FROM categories WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (m *Postgres) AddCategory(c *forum.Category) (int64, error) {
	var id int64
	err := m.db.QueryRowx(`INSERT INTO categories (title, description) VALUES ($1, $2) RETURNING id`,
		c.Title, c.Description).Scan(&id)
	return id, err
}

func (m *Postgres) UpdateCategory(c *forum.Category) error {
	res, err := m.db.Exec(`UPDATE categories SET title = $1, description = $2 WHERE id = $3`, c.Title, c.Description, c.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *Postgres) DeleteCategory(id int64) error {
	res, err := m.db.Exec(`DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (m *Postgres) ListLikes(t forum.Target) ([]forum.Reaction, error) {
	likes := []forum.Reaction{}
	err := m.db.Select(&likes, `SELECT * FROM likes WHERE `+targetColumn(t)+` = $1 ORDER BY id ASC`, t.ID())
	return likes, err
}

func (m *Postgres) AggregateScore(t forum.Target) (int, error) {
	var score int
	err := m.db.Get(&score, `SELECT `+scoreSQL+` FROM likes l WHERE l.`+targetColumn(t)+` = $1`, t.ID())
	return score, err
}

func (m *Postgres) InTx(fn func(tx database.Tx) error) error {
	txx, err := m.db.Beginx()
	if err != nil {
		return conflict(err)
	}
	if err := fn(&pgTx{txx}); err != nil {
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

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) LockTarget(target forum.Target) (*database.TargetRow, error) {
	table := "posts"
	if target.Kind() == forum.TargetComment {
		table = "comments"
	}
	var row database.TargetRow
	err := t.tx.QueryRowx(`SELECT author_id, is_active FROM `+table+` WHERE id = $1 FOR UPDATE`, target.ID()).
		Scan(&row.OwnerID, &row.Active)
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (t *pgTx) LockLike(actorID int64, target forum.Target) (*forum.Reaction, error) {
	var l forum.Reaction
	err := t.tx.Get(&l, `SELECT * FROM likes WHERE author_id = $1 AND `+targetColumn(target)+` = $2 FOR UPDATE`, actorID, target.ID())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *pgTx) InsertLike(l *forum.Reaction) error {
	_, err := t.tx.Exec(`INSERT INTO likes (author_id, post_id, comment_id, type) VALUES ($1, $2, $3, $4)`,
		l.AuthorID, l.PostID, l.CommentID, l.Type)
	return err
}

func (t *pgTx) SetLikeType(likeID int64, rt forum.ReactionType) error {
	_, err := t.tx.Exec(`UPDATE likes SET type = $1 WHERE id = $2`, rt, likeID)
	return err
}

func (t *pgTx) DeleteLike(likeID int64) error {
	_, err := t.tx.Exec(`DELETE FROM likes WHERE id = $1`, likeID)
	return err
}

func (t *pgTx) AdjustRating(userID int64, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := t.tx.Exec(`UPDATE users SET rating = rating + $1 WHERE id = $2`, delta, userID)
	return err
}

func (t *pgTx) SetCommentActive(id int64, active bool) error {
	res, err := t.tx.Exec(`UPDATE comments SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (t *pgTx) SetRepliesActive(parentID int64, active bool) error {
	_, err := t.tx.Exec(`UPDATE comments SET is_active = $1 WHERE parent_id = $2`, active, parentID)
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
