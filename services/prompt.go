package services

import (
	"fmt"
	"strings"

	"docqa-service/models"
)

// PromptAssembler builds the generation prompt. The grounding rule carrying
// the fallback phrase is always included, even under a custom instruction.
type PromptAssembler struct {
	defaultInstruction string
	fallback           string
}

func NewPromptAssembler(defaultInstruction, fallback string) *PromptAssembler {
	return &PromptAssembler{
		defaultInstruction: strings.TrimSpace(defaultInstruction),
		fallback:           strings.TrimSpace(fallback),
	}
}

func (p *PromptAssembler) Fallback() string { return p.fallback }

func (p *PromptAssembler) DefaultInstruction() string { return p.defaultInstruction }

// Assemble lays out instruction, grounding rule, context block and question.
// Context chunks appear in the order given.
func (p *PromptAssembler) Assemble(instruction string, chunks []models.ScoredChunk, question string) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		instruction = p.defaultInstruction
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Use only the information inside <context>. If the context does not contain the requested fact or number, reply exactly '%s'.", p.fallback)
	sb.WriteString("\n\n<context>\n")
	sb.WriteString(strings.Join(texts, "\n\n"))
	sb.WriteString("\n</context>\n\n")
	sb.WriteString("Q: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\nA:")
	return sb.String()
}

// Normalize trims model output and maps near-misses of the fallback phrase
// (quotes, case, trailing period) to the exact phrase.
func (p *PromptAssembler) Normalize(answer string) string {
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(canonical(answer), canonical(p.fallback)) {
		return p.fallback
	}
	return answer
}

func canonical(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`“”‘’ ")
	s = strings.TrimRight(s, ". ")
	s = strings.Trim(s, "\"'`“”‘’ ")
	return strings.Join(strings.Fields(s), " ")
}
