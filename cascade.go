package main

import (
	"usof/database"
	"usof/forum"
)

// Cascade toggles comment visibility. The cascading entry point touches
// the comment and its direct replies only; grandchildren keep whatever
// flag they had. Deeper propagation is deliberately not implemented.
type Cascade struct {
	db database.Database
}

func NewCascade(db database.Database) *Cascade {
	return &Cascade{db}
}

// CascadeStatus sets the flag on the comment and every comment whose
// parent_id points at it, atomically.
func (c *Cascade) CascadeStatus(commentID int64, active bool) error {
	if commentID <= 0 {
		return forum.ErrInvalidInput
	}
	return c.db.InTx(func(tx database.Tx) error {
		if err := tx.SetCommentActive(commentID, active); err != nil {
			return err
		}
		return tx.SetRepliesActive(commentID, active)
	})
}

// SetStatus is the post-level moderation switch: the single targeted
// comment, no propagation.
func (c *Cascade) SetStatus(commentID int64, active bool) error {
	if commentID <= 0 {
		return forum.ErrInvalidInput
	}
	return c.db.InTx(func(tx database.Tx) error {
		return tx.SetCommentActive(commentID, active)
	})
}
