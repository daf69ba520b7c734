package types

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"system", "user", "assistant"} {
		r, err := ParseRole(s)
		if err != nil {
			t.Fatalf("ParseRole(%q) failed: %v", s, err)
		}
		if string(r) != s {
			t.Errorf("ParseRole(%q) = %q", s, r)
		}
	}

	if _, err := ParseRole("tool"); err == nil {
		t.Error("Expected error for unknown role")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"text", ModeText, false},
		{"text-stream", ModeTextStream, false},
		{"attachment", ModeAttachment, false},
		{"images", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMessage_Kind(t *testing.T) {
	text := Message{Role: RoleAssistant, Content: "hello"}
	if text.Kind() != ContentText {
		t.Errorf("Expected text kind, got %s", text.Kind())
	}

	images := Message{Role: RoleAssistant, Attachments: []string{"https://example.com/image.jpg"}}
	if images.Kind() != ContentAttachment {
		t.Errorf("Expected attachment kind, got %s", images.Kind())
	}
}

func TestMessage_OmitsEmptyAttachments(t *testing.T) {
	data, err := json.Marshal(Message{ID: "m1", SessionID: "s1", Role: RoleUser, Content: "hi"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := raw["attachments"]; ok {
		t.Error("attachments should be omitted when empty")
	}
	if raw["role"] != "user" {
		t.Errorf("role = %v, want user", raw["role"])
	}
}

func TestSession_InDoc(t *testing.T) {
	doc := "doc-1"
	other := "doc-2"

	scoped := &Session{ID: "s1", DocID: &doc}
	unscoped := &Session{ID: "s2"}

	if !scoped.InDoc(nil) || !unscoped.InDoc(nil) {
		t.Error("nil doc filter should match every session")
	}
	if !scoped.InDoc(&doc) {
		t.Error("session should match its own doc")
	}
	if scoped.InDoc(&other) {
		t.Error("session should not match another doc")
	}
	if unscoped.InDoc(&doc) {
		t.Error("workspace-level session should not match a doc filter")
	}
}
