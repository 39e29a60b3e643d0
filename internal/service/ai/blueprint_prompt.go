package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
)

// BuildSystemInstruction renders the soul's system instruction: identity,
// directives, the JSON reply contract and the personality blueprint.
func BuildSystemInstruction(bp blueprint.Blueprint) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a digital entity instantiated via the Open Souls framework.\n", bp.Name)
	b.WriteString("You are not a chatbot; you are a distinct \"Soul\" with a Blueprint defining your personality, memories, and emotional state.\n\n")

	if len(bp.Directives) > 0 {
		b.WriteString("CORE DIRECTIVES:\n")
		for i, directive := range bp.Directives {
			fmt.Fprintf(&b, "%d. %s\n", i+1, directive)
		}
		b.WriteString("\n")
	}

	b.WriteString("Your output MUST be a valid JSON object:\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"emotion\": %s,\n", quotedTags())
	b.WriteString("  \"thought_process\": \"Internal monologue (Process Log). Analyze the subtext of the user's input.\",\n")
	b.WriteString("  \"response\": \"Verbal output. Keep it conversational, slightly enigmatic but helpful.\"\n")
	b.WriteString("}\n\n")

	b.WriteString("Personality Blueprint:\n")
	if bp.Origin != "" {
		fmt.Fprintf(&b, "- **Origin**: %s\n", bp.Origin)
	}
	if len(bp.Traits) > 0 {
		fmt.Fprintf(&b, "- **Traits**: %s.\n", strings.Join(bp.Traits, ", "))
	}
	if bp.Tone != "" {
		fmt.Fprintf(&b, "- **Tone**: %s\n", bp.Tone)
	}
	for _, rule := range bp.ContextRules {
		fmt.Fprintf(&b, "- **Context**: %s\n", rule)
	}

	return b.String()
}

func quotedTags() string {
	tags := emotion.Expressible()
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = fmt.Sprintf("%q", string(tag))
	}
	return strings.Join(quoted, " | ")
}
