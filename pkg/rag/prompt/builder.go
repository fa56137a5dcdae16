package prompt

import (
	"fmt"
	"strings"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/pkg/llm"
)

// TurnBuilder assembles the completion messages for one tutoring turn.
type TurnBuilder struct {
	Persona       string
	TopicName     string
	DiagnosisOnly bool
	AnsweredPrior bool
	FirstContact  bool
	Chunks        []string
	Sources       []entity.SourceRef
	History       []entity.ChatMessage
	Query         string
}

// Build returns a system message followed by the history and the new question.
func (b *TurnBuilder) Build() []llm.Message {
	var system strings.Builder
	b.writePersona(&system)
	b.writeTask(&system)
	b.writeReferenceMaterial(&system)

	messages := make([]llm.Message, 0, len(b.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system.String()})
	for _, m := range b.History {
		role := llm.RoleUser
		if m.Role == entity.ChatMessageRoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: b.Query})
	return messages
}

func (b *TurnBuilder) writePersona(sb *strings.Builder) {
	sb.WriteString("<persona>\n")
	sb.WriteString(strings.TrimSpace(b.Persona))
	sb.WriteString("\nReply in the language the student writes in.\n")
	if b.FirstContact {
		sb.WriteString("This is the student's first message. Greet them briefly.\n")
	}
	sb.WriteString("</persona>\n\n")
}

func (b *TurnBuilder) writeTask(sb *strings.Builder) {
	sb.WriteString("<task>\n")
	switch {
	case b.DiagnosisOnly && b.TopicName == "":
		sb.WriteString("Ask the student one short question about which statistics topic they want to work on.\n")
		sb.WriteString("Let them name it in their own words and mention a few examples such as mean, variance, probability or regression.\n")
		sb.WriteString("Do not offer lettered choices. Do not teach anything yet.\n")
	case b.DiagnosisOnly:
		fmt.Fprintf(sb, "Before teaching %s, ask exactly one short multiple-choice question that shows what the student already knows.\n", b.TopicName)
		sb.WriteString("Offer the choices inline as A) B) C) D) and end with a question mark.\n")
		sb.WriteString("Do not explain, define, give formulas or use lists. At most two sentences.\n")
	case b.AnsweredPrior:
		fmt.Fprintf(sb, "The student just answered your diagnostic question about %s. ", b.TopicName)
		sb.WriteString("Say briefly whether the answer was right, then teach from what they showed they know.\n")
	default:
		if b.TopicName != "" {
			fmt.Fprintf(sb, "The current topic is %s. ", b.TopicName)
		}
		sb.WriteString("Answer the question step by step, grounded in the course material.\n")
	}
	sb.WriteString("</task>\n\n")
}

func (b *TurnBuilder) writeReferenceMaterial(sb *strings.Builder) {
	if b.DiagnosisOnly || len(b.Chunks) == 0 {
		return
	}
	sb.WriteString("<reference_material>\n")
	for i, chunk := range b.Chunks {
		source := ""
		if i < len(b.Sources) {
			source = b.Sources[i].Source
		}
		fmt.Fprintf(sb, "[%d] (%s)\n%s\n\n", i+1, source, strings.TrimSpace(chunk))
	}
	sb.WriteString("If the material does not cover the question, say so honestly.\n")
	sb.WriteString("</reference_material>\n")
}
