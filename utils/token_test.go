package utils

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewInviteCode(8)
		if len(code) != 8 {
			t.Fatalf("len = %d, want 8", len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(inviteCharset, r) {
				t.Fatalf("code %q contains %q outside the charset", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("only %d distinct codes out of 100", len(seen))
	}
}

func TestGenerateETagChangesWithUpdate(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Now()

	a := GenerateETag(id, at)
	if a != GenerateETag(id, at) {
		t.Error("same inputs must produce the same tag")
	}
	if a == GenerateETag(id, at.Add(time.Second)) {
		t.Error("a later update must change the tag")
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) {
		t.Errorf("tag %q is not quoted", a)
	}
}
