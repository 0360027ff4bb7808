package forum

// Visibility and mutation predicates. All of them are pure: they decide,
// the HTTP layer enforces, and the storage layer never consults them.

// CanViewPost: active posts are public; inactive ones are visible only to
// their author and to admins.
func CanViewPost(v *Viewer, p *Post) bool {
	if p.Active {
		return true
	}
	if !v.Authenticated() {
		return false
	}
	return v.Admin() || v.ID == p.AuthorID
}

// CanViewComment requires the owning post to be visible first.
func CanViewComment(v *Viewer, c *Comment, p *Post) bool {
	if !CanViewPost(v, p) {
		return false
	}
	if c.Active {
		return true
	}
	return v.Admin() || (v.Authenticated() && v.ID == c.AuthorID)
}

// CanReactToPost: reactions are disabled on inactive targets for everyone,
// author and admin included.
func CanReactToPost(v *Viewer, p *Post) bool {
	return v.Authenticated() && p.Active && CanViewPost(v, p)
}

// CanReactToComment additionally requires the owning post to be active.
func CanReactToComment(v *Viewer, c *Comment, p *Post) bool {
	if !v.Authenticated() || !c.Active || !p.Active {
		return false
	}
	return CanViewComment(v, c, p)
}

// CanEditContent: only the author may change title/content. Admins
// moderate status, they do not rewrite other people's words.
func CanEditContent(v *Viewer, authorID int64) bool {
	return v.Authenticated() && v.ID == authorID
}

func CanTogglePost(v *Viewer, p *Post) bool {
	return v.Admin() || (v.Authenticated() && v.ID == p.AuthorID)
}

// CanToggleComment: the comment author, the owner of the post it lives
// under, or an admin.
func CanToggleComment(v *Viewer, c *Comment, p *Post) bool {
	if v.Admin() {
		return true
	}
	if !v.Authenticated() {
		return false
	}
	return v.ID == c.AuthorID || v.ID == p.AuthorID
}

func CanDelete(v *Viewer, authorID int64) bool {
	return v.Admin() || (v.Authenticated() && v.ID == authorID)
}

// CanComment: the post owner and admins may comment under an inactive
// post; everyone else needs it active.
func CanComment(v *Viewer, p *Post) bool {
	if !v.Authenticated() {
		return false
	}
	if p.Active {
		return true
	}
	return v.Admin() || v.ID == p.AuthorID
}

// CanReply checks the immediate parent only: a reply chain halts the
// moment its direct ancestor goes inactive, deeper ancestors are not
// consulted.
func CanReply(v *Viewer, p *Post, parent *Comment) bool {
	if !CanComment(v, p) {
		return false
	}
	return parent.PostID == p.ID && parent.Active
}
