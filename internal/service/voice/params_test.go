package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/motion-soul/backend/internal/analysis/emotion"
)

func TestParamsFor(t *testing.T) {
	cases := map[emotion.Tag]Params{
		emotion.Joy:      {Pitch: 1.2, Rate: 1.1},
		emotion.Sadness:  {Pitch: 0.8, Rate: 0.8},
		emotion.Anger:    {Pitch: 0.9, Rate: 1.2},
		emotion.Surprise: {Pitch: 1.3, Rate: 1.1},
		emotion.Neutral:  {Pitch: 1.0, Rate: 1.0},
		emotion.Thinking: {Pitch: 1.0, Rate: 1.0},
	}
	for tag, want := range cases {
		assert.Equal(t, want, ParamsFor(tag), tag)
	}
}

func TestSelectPrefersListOrder(t *testing.T) {
	voices := []Voice{
		{Name: "Alex"},
		{Name: "Samantha"},
		{Name: "Google US English"},
	}

	got, ok := Select(voices, []string{"Google US English", "Samantha"})
	assert.True(t, ok)
	assert.Equal(t, "Google US English", got.Name)

	got, _ = Select(voices[:2], []string{"Google US English", "Samantha"})
	assert.Equal(t, "Samantha", got.Name)

	got, _ = Select(voices[:1], []string{"Google US English", "Samantha"})
	assert.Equal(t, "Alex", got.Name)

	_, ok = Select(nil, []string{"Samantha"})
	assert.False(t, ok)
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, EstimateDuration("hi", 1), EstimateDuration("hi", 2))
	long := "one two three four five six seven eight nine ten"
	assert.Greater(t, EstimateDuration(long, 0.8), EstimateDuration(long, 1.2))
}
