package gemini

import (
	"testing"

	"ai-tutor-be/pkg/llm"

	"google.golang.org/genai"
)

func TestToContents(t *testing.T) {
	system, contents := toContents([]llm.Message{
		{Role: llm.RoleSystem, Content: "persona"},
		{Role: llm.RoleUser, Content: "what is a mean?"},
		{Role: llm.RoleAssistant, Content: "Which option?"},
		{Role: llm.RoleSystem, Content: "context"},
	})

	if system != "persona\n\ncontext" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("len(contents) = %d, want 2", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) || contents[1].Role != string(genai.RoleModel) {
		t.Errorf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
}
