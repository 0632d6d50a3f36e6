package llm

import (
	"strings"
	"testing"
)

func TestBuildChatMessagesWithBuffer(t *testing.T) {
	messages := BuildChatMessages("what does this do?", "main.py", "print(1)\n")

	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	if messages[0].Role != "system" {
		t.Errorf("first role = %q, want system", messages[0].Role)
	}
	if !strings.Contains(messages[1].Content, "main.py") || !strings.Contains(messages[1].Content, "print(1)") {
		t.Errorf("buffer context missing: %q", messages[1].Content)
	}
	if messages[2].Content != "what does this do?" {
		t.Errorf("prompt = %q", messages[2].Content)
	}
}

func TestBuildChatMessagesWithoutBuffer(t *testing.T) {
	messages := BuildChatMessages("hello", "", "")

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[1].Role != "user" || messages[1].Content != "hello" {
		t.Errorf("unexpected final message: %+v", messages[1])
	}
}

func TestBuildChatMessagesUnnamedBuffer(t *testing.T) {
	messages := BuildChatMessages("check this", "", "x = 1\n")

	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	if !strings.Contains(messages[1].Content, "(unsaved buffer)") {
		t.Errorf("unnamed buffer not labeled: %q", messages[1].Content)
	}
}
