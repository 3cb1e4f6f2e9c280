package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeContent(t *testing.T) {
	got, err := NormalizeContent("  hello  ")
	if err != nil || got != "hello" {
		t.Fatalf("expected trimmed content, got %q %v", got, err)
	}

	if _, err := NormalizeContent("   \n\t "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for whitespace, got %v", err)
	}

	exact := strings.Repeat("é", MaxContentLength)
	if _, err := NormalizeContent(exact); err != nil {
		t.Fatalf("2000 multi-byte characters must be accepted: %v", err)
	}
	if _, err := NormalizeContent(exact + "x"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation over the limit, got %v", err)
	}

	var ve *ValidationError
	_, err = NormalizeContent("")
	if !errors.As(err, &ve) || ve.Field != "content" {
		t.Fatalf("expected field detail, got %v", err)
	}
}

func TestParentDeletedIsInvalidParent(t *testing.T) {
	if !errors.Is(ErrParentDeleted, ErrInvalidParent) {
		t.Fatal("ErrParentDeleted must match ErrInvalidParent")
	}
	if errors.Is(ErrInvalidParent, ErrParentDeleted) {
		t.Fatal("a plain invalid parent is not a deleted parent")
	}
}

func TestCounterDelta(t *testing.T) {
	cases := []struct {
		from, to       ReactionState
		likes, dislike int
	}{
		{ReactionNone, ReactionLiked, 1, 0},
		{ReactionNone, ReactionDisliked, 0, 1},
		{ReactionLiked, ReactionNone, -1, 0},
		{ReactionLiked, ReactionDisliked, -1, 1},
		{ReactionDisliked, ReactionLiked, 1, -1},
		{ReactionDisliked, ReactionNone, 0, -1},
		{ReactionLiked, ReactionLiked, 0, 0},
	}
	for _, c := range cases {
		l, d := CounterDelta(c.from, c.to)
		if l != c.likes || d != c.dislike {
			t.Fatalf("%q->%q: got (%d,%d) want (%d,%d)", c.from, c.to, l, d, c.likes, c.dislike)
		}
	}
}

func TestUnavailableWrapping(t *testing.T) {
	if Unavailable("op", nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if err := Unavailable("op", ErrNotFound); err != ErrNotFound {
		t.Fatalf("domain errors pass through, got %v", err)
	}
	err := Unavailable("delete", errors.New("connection reset"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestParseReactionKind(t *testing.T) {
	if s, err := ParseReactionKind("like"); err != nil || s != ReactionLiked {
		t.Fatalf("like: %v %v", s, err)
	}
	if s, err := ParseReactionKind("dislike"); err != nil || s != ReactionDisliked {
		t.Fatalf("dislike: %v %v", s, err)
	}
	if _, err := ParseReactionKind("love"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
