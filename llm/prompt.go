package llm

import (
	"fmt"
	"strings"
	"time"
)

const systemPrompt = `You are an assistant embedded in a terminal text editor.
Answer questions about the user's code and editing session concisely.
When the user shares buffer contents, treat them as the current state of the file.
Prefer short, direct answers; include code only when asked or clearly useful.`

// BuildChatMessages assembles the message sequence for one chat task: the
// editor system prompt, optional buffer context, and the user's prompt.
func BuildChatMessages(prompt, filename, buffer string) []Message {
	now := time.Now()
	messages := []Message{
		{Role: "system", Content: systemPrompt, Timestamp: now},
	}

	if strings.TrimSpace(buffer) != "" {
		name := filename
		if name == "" {
			name = "(unsaved buffer)"
		}
		context := fmt.Sprintf("Current buffer %s:\n\n%s", name, buffer)
		messages = append(messages, Message{Role: "user", Content: context, Timestamp: now})
	}

	messages = append(messages, Message{Role: "user", Content: prompt, Timestamp: now})
	return messages
}
