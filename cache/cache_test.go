package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	moderation "github.com/heibot/moderation"
)

func TestKey(t *testing.T) {
	base := moderation.Request{Text: "Ginger tea helps cramps", ContentType: moderation.ContentPost, Topic: "Home Remedies"}

	padded := base
	padded.Text = "  Ginger tea helps cramps\n"
	if Key(base) != Key(padded) {
		t.Error("surrounding whitespace should not change the key")
	}

	otherTopic := base
	otherTopic.Topic = "PCOS"
	if Key(base) == Key(otherTopic) {
		t.Error("topic must be part of the key")
	}

	comment := base
	comment.ContentType = moderation.ContentComment
	if Key(base) == Key(comment) {
		t.Error("content type must be part of the key")
	}

	if !strings.HasPrefix(Key(base), KeyPrefix) {
		t.Errorf("Key() = %q, want prefix %q", Key(base), KeyPrefix)
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("empty cache returned a hit")
	}

	res := moderation.Result{Approved: true, SafetyScore: 92, Flags: []string{"safe"}}
	_ = m.Set(ctx, "k", res)
	res.Flags[0] = "mutated"

	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Flags[0] != "safe" {
		t.Error("cache shares memory with the caller")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expired entry returned a hit")
	}
}
