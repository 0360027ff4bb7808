package forum

import (
	"errors"
	"testing"
)

func TestReactionType(t *testing.T) {
	if !Like.Valid() || !Dislike.Valid() {
		t.Error("known types reported invalid")
	}
	if ReactionType("meh").Valid() {
		t.Error("unknown type reported valid")
	}
	if Like.Value() != 1 {
		t.Errorf("like value = %d, want 1", Like.Value())
	}
	if Dislike.Value() != -1 {
		t.Errorf("dislike value = %d, want -1", Dislike.Value())
	}
}

func TestTargetValidate(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		ok     bool
	}{
		{"post", PostTarget(1), true},
		{"comment", CommentTarget(7), true},
		{"zero", Target{}, false},
		{"post id 0", PostTarget(0), false},
		{"comment id negative", CommentTarget(-3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.ok && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestReactionTarget(t *testing.T) {
	postID := int64(4)
	commentID := int64(9)
	if got := (Reaction{PostID: &postID}).Target(); got != PostTarget(4) {
		t.Errorf("post reaction target = %+v", got)
	}
	if got := (Reaction{CommentID: &commentID}).Target(); got != CommentTarget(9) {
		t.Errorf("comment reaction target = %+v", got)
	}
	if got := (Reaction{}).Target(); got.Validate() == nil {
		t.Error("empty reaction produced a valid target")
	}
}
