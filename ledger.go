package main

import (
	"usof/database"
	"usof/forum"
)

// Ledger owns all reaction state. It keeps at most one like row per
// (actor, target) and keeps the target owner's rating equal to the signed
// sum of reactions across everything they own. Every mutation runs in one
// transaction with a fixed lock order: target row first, like row second.
type Ledger struct {
	db database.Database
}

func NewLedger(db database.Database) *Ledger {
	return &Ledger{db}
}

// Upsert records or switches a reaction. Resubmitting the same type is a
// no-op. The owner's rating moves by the delta between old and new value
// in the same transaction as the like row change.
func (l *Ledger) Upsert(actorID int64, target forum.Target, rt forum.ReactionType) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if !rt.Valid() {
		return forum.ErrInvalidInput
	}
	return l.db.InTx(func(tx database.Tx) error {
		row, err := tx.LockTarget(target)
		if err != nil {
			return err
		}
		prev, err := tx.LockLike(actorID, target)
		if err != nil {
			return err
		}
		var delta int
		switch {
		case prev == nil:
			like := &forum.Reaction{AuthorID: actorID, Type: rt}
			id := target.ID()
			if target.Kind() == forum.TargetPost {
				like.PostID = &id
			} else {
				like.CommentID = &id
			}
			if err := tx.InsertLike(like); err != nil {
				return err
			}
			delta = rt.Value()
		case prev.Type != rt:
			if err := tx.SetLikeType(prev.ID, rt); err != nil {
				return err
			}
			delta = rt.Value() - prev.Type.Value()
		default:
			// same reaction resubmitted
			return nil
		}
		return tx.AdjustRating(row.OwnerID, delta)
	})
}

// Remove deletes the actor's reaction if present and rolls its value out
// of the owner's rating. Removing a reaction that does not exist is not
// an error.
func (l *Ledger) Remove(actorID int64, target forum.Target) error {
	if err := target.Validate(); err != nil {
		return err
	}
	return l.db.InTx(func(tx database.Tx) error {
		row, err := tx.LockTarget(target)
		if err != nil {
			return err
		}
		prev, err := tx.LockLike(actorID, target)
		if err != nil {
			return err
		}
		if prev == nil {
			return nil
		}
		if err := tx.DeleteLike(prev.ID); err != nil {
			return err
		}
		return tx.AdjustRating(row.OwnerID, -prev.Type.Value())
	})
}

// Aggregate is the unlocked likes-minus-dislikes score for a target. It
// reflects the latest committed state, not writes still in flight.
func (l *Ledger) Aggregate(target forum.Target) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	return l.db.AggregateScore(target)
}
