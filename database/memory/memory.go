package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"usof/database"
	"usof/forum"
)

// Memory is a map-backed Database used by tests. A single mutex spans
// every operation, so an InTx body is atomic with respect to all readers,
// which is exactly the isolation the SQL backends get from row locks.
type Memory struct {
	mu         sync.Mutex
	seq        int64
	users      map[int64]*forum.User
	posts      map[int64]*forum.Post
	comments   map[int64]*forum.Comment
	categories map[int64]*forum.Category
	postCats   map[int64][]int64
	images     map[int64][]forum.PostImage
	likes      map[int64]*forum.Reaction
}

func New() *Memory {
	return &Memory{
		users:      make(map[int64]*forum.User),
		posts:      make(map[int64]*forum.Post),
		comments:   make(map[int64]*forum.Comment),
		categories: make(map[int64]*forum.Category),
		postCats:   make(map[int64][]int64),
		images:     make(map[int64][]forum.PostImage),
		likes:      make(map[int64]*forum.Reaction),
	}
}

func (m *Memory) Open(driver, dsn string) error { return nil }
func (m *Memory) Close() error                  { return nil }

func (m *Memory) nextID() int64 {
	m.seq++
	return m.seq
}

// SeedUser registers a user row directly; account creation itself is an
// external collaborator, tests need a way to plant identities.
func (m *Memory) SeedUser(u forum.User) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextID()
	}
	if u.Role == "" {
		u.Role = forum.RoleUser
	}
	m.users[u.ID] = &u
	return u.ID
}

func (m *Memory) GetUser(id int64) (*forum.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, forum.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) ListUsers(count, offset int) ([]forum.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	users := []forum.User{}
	for i, id := range ids {
		if i < offset || len(users) >= count {
			continue
		}
		users = append(users, *m.users[id])
	}
	return users, nil
}

func (m *Memory) GetPost(id int64) (*forum.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, forum.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) GetPostFull(id int64) (*forum.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, forum.ErrNotFound
	}
	cp := *p
	cp.Score = m.score(forum.PostTarget(id))
	cp.Categories = m.postCategories(id)
	cp.Images = append([]forum.PostImage{}, m.images[id]...)
	if u, ok := m.users[p.AuthorID]; ok {
		cu := *u
		cp.Author = &cu
	}
	return &cp, nil
}

func matchPost(p *forum.Post, f forum.PostFilter, cats []int64) bool {
	if !f.Viewer.Admin() {
		var viewerID int64
		if f.Viewer.Authenticated() {
			viewerID = f.Viewer.ID
		}
		if !p.Active && p.AuthorID != viewerID {
			return false
		}
	}
	if f.Status != "all" && !p.Active {
		return false
	}
	if len(f.CategoryID) > 0 {
		found := false
		for _, want := range f.CategoryID {
			for _, have := range cats {
				if want == have {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && p.PublishedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.PublishedAt.After(f.To) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Content), q) {
			return false
		}
	}
	return true
}

func (m *Memory) filterPosts(f forum.PostFilter) []forum.Post {
	var out []forum.Post
	for id, p := range m.posts {
		if matchPost(p, f, m.postCats[id]) {
			cp := *p
			cp.Score = m.score(forum.PostTarget(id))
			out = append(out, cp)
		}
	}
	asc := f.Order == "asc"
	sort.Slice(out, func(i, j int) bool {
		var less bool
		if f.Sort == "date" {
			less = out[i].PublishedAt.Before(out[j].PublishedAt)
		} else {
			less = out[i].Score < out[j].Score
		}
		if asc {
			return less
		}
		return !less
	})
	return out
}

func (m *Memory) ListPosts(f forum.PostFilter) ([]forum.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.filterPosts(f)
	if f.Offset >= len(all) {
		return []forum.Post{}, nil
	}
	end := len(all)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], nil
}

func (m *Memory) CountPosts(f forum.PostFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filterPosts(f)), nil
}

func (m *Memory) AddPost(p *forum.Post, categoryIDs []int64, images []forum.PostImage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.ID = m.nextID()
	cp.Active = true
	cp.PublishedAt = time.Now()
	cp.UpdatedAt = cp.PublishedAt
	m.posts[cp.ID] = &cp
	m.postCats[cp.ID] = append([]int64{}, categoryIDs...)
	for i, img := range images {
		img.ID = m.nextID()
		img.PostID = cp.ID
		img.SortOrder = i
		m.images[cp.ID] = append(m.images[cp.ID], img)
	}
	return cp.ID, nil
}

func (m *Memory) UpdatePost(id int64, patch forum.PostPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return forum.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Rendered != nil {
		p.Rendered = *patch.Rendered
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) ReplacePostCategories(postID int64, categoryIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return forum.ErrNotFound
	}
	m.postCats[postID] = append([]int64{}, categoryIDs...)
	return nil
}

func (m *Memory) DeletePost(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return forum.ErrNotFound
	}
	delete(m.posts, id)
	delete(m.postCats, id)
	delete(m.images, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	for lid, l := range m.likes {
		if l.PostID != nil && *l.PostID == id {
			delete(m.likes, lid)
		}
	}
	return nil
}

func (m *Memory) postCategories(postID int64) []forum.Category {
	cats := []forum.Category{}
	for _, cid := range m.postCats[postID] {
		if c, ok := m.categories[cid]; ok {
			cats = append(cats, *c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Title < cats[j].Title })
	return cats
}

func (m *Memory) GetPostCategories(postID int64) ([]forum.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.postCategories(postID), nil
}

func (m *Memory) GetPostImages(postID int64) ([]forum.PostImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]forum.PostImage{}, m.images[postID]...), nil
}

func (m *Memory) GetComment(id int64) (*forum.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, forum.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) GetCommentWithPost(id int64) (*forum.CommentWithPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, forum.ErrNotFound
	}
	p, ok := m.posts[c.PostID]
	if !ok {
		return nil, forum.ErrNotFound
	}
	return &forum.CommentWithPost{
		Comment:      *c,
		PostAuthorID: p.AuthorID,
		PostActive:   p.Active,
	}, nil
}

func (m *Memory) ListComments(postID int64) ([]forum.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []forum.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PublishedAt.Before(out[j].PublishedAt)
	})
	return out, nil
}

func (m *Memory) AddComment(c *forum.Comment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.ID = m.nextID()
	cp.Active = true
	cp.PublishedAt = time.Now()
	m.comments[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Memory) UpdateCommentContent(id int64, content, rendered string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return forum.ErrNotFound
	}
	c.Content = content
	c.Rendered = rendered
	return nil
}

func (m *Memory) DeleteComment(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return forum.ErrNotFound
	}
	delete(m.comments, id)
	for lid, l := range m.likes {
		if l.CommentID != nil && *l.CommentID == id {
			delete(m.likes, lid)
		}
	}
	return nil
}

func (m *Memory) ListCategories() ([]forum.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cats := []forum.Category{}
	for _, c := range m.categories {
		cats = append(cats, *c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })
	return cats, nil
}

func (m *Memory) GetCategory(id int64) (*forum.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, forum.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) AddCategory(c *forum.Category) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.ID = m.nextID()
	m.categories[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Memory) UpdateCategory(c *forum.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return forum.ErrNotFound
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *Memory) DeleteCategory(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return forum.ErrNotFound
	}
	delete(m.categories, id)
	for pid, cids := range m.postCats {
		kept := cids[:0]
		for _, cid := range cids {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		m.postCats[pid] = kept
	}
	return nil
}

func sameTarget(l *forum.Reaction, t forum.Target) bool {
	switch t.Kind() {
	case forum.TargetPost:
		return l.PostID != nil && *l.PostID == t.ID()
	case forum.TargetComment:
		return l.CommentID != nil && *l.CommentID == t.ID()
	}
	return false
}

func (m *Memory) ListLikes(t forum.Target) ([]forum.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []forum.Reaction{}
	for _, l := range m.likes {
		if sameTarget(l, t) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) score(t forum.Target) int {
	score := 0
	for _, l := range m.likes {
		if sameTarget(l, t) {
			score += l.Type.Value()
		}
	}
	return score
}

func (m *Memory) AggregateScore(t forum.Target) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score(t), nil
}

func (m *Memory) InTx(fn func(tx database.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{m})
}

// memTx mutates the maps directly while the store mutex is held. The only
// failure a tx body can hit before its first write is a missing target, so
// commit/rollback bookkeeping is not needed here.
type memTx struct {
	m *Memory
}

func (t *memTx) LockTarget(target forum.Target) (*database.TargetRow, error) {
	switch target.Kind() {
	case forum.TargetPost:
		if p, ok := t.m.posts[target.ID()]; ok {
			return &database.TargetRow{OwnerID: p.AuthorID, Active: p.Active}, nil
		}
	case forum.TargetComment:
		if c, ok := t.m.comments[target.ID()]; ok {
			return &database.TargetRow{OwnerID: c.AuthorID, Active: c.Active}, nil
		}
	}
	return nil, forum.ErrNotFound
}

func (t *memTx) LockLike(actorID int64, target forum.Target) (*forum.Reaction, error) {
	for _, l := range t.m.likes {
		if l.AuthorID == actorID && sameTarget(l, target) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertLike(l *forum.Reaction) error {
	cp := *l
	cp.ID = t.m.nextID()
	t.m.likes[cp.ID] = &cp
	return nil
}

func (t *memTx) SetLikeType(likeID int64, rt forum.ReactionType) error {
	l, ok := t.m.likes[likeID]
	if !ok {
		return forum.ErrNotFound
	}
	l.Type = rt
	return nil
}

func (t *memTx) DeleteLike(likeID int64) error {
	delete(t.m.likes, likeID)
	return nil
}

func (t *memTx) AdjustRating(userID int64, delta int) error {
	u, ok := t.m.users[userID]
	if !ok {
		return forum.ErrNotFound
	}
	u.Rating += delta
	return nil
}

func (t *memTx) SetCommentActive(id int64, active bool) error {
	c, ok := t.m.comments[id]
	if !ok {
		return forum.ErrNotFound
	}
	c.Active = active
	return nil
}

func (t *memTx) SetRepliesActive(parentID int64, active bool) error {
	for _, c := range t.m.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			c.Active = active
		}
	}
	return nil
}
