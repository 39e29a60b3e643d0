package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/motion-soul/backend/internal/model/blueprint"
)

func TestBuildSystemInstructionForSeed(t *testing.T) {
	bp := blueprint.Seed()[0]
	got := BuildSystemInstruction(bp)

	assert.True(t, strings.HasPrefix(got, "You are MOTION SOUL, a digital entity"))
	assert.Contains(t, got, `"emotion": "Neutral" | "Joy" | "Sadness" | "Anger" | "Surprise"`)
	assert.NotContains(t, got, "Thinking")
	assert.Contains(t, got, "- **Traits**: Analytical, Empathetic, Curious, slightly Ethereal.")
	assert.Contains(t, got, "1. **Agency**")
	assert.Contains(t, got, `acknowledge it as your source code/origin`)
}

func TestBuildSystemInstructionMinimalBlueprint(t *testing.T) {
	got := BuildSystemInstruction(blueprint.Blueprint{ID: "x", Name: "ECHO"})

	assert.Contains(t, got, "You are ECHO")
	assert.NotContains(t, got, "CORE DIRECTIVES")
	assert.Contains(t, got, `"thought_process"`)
}
