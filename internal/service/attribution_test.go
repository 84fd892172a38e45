package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumistudy/tutorai/internal/domain"
)

func TestAttributor_Attribute(t *testing.T) {
	attributor := NewAttributor()

	candidates := []domain.RetrievalResult{
		resultWithText("a", "Biology: Unit 3", "Photosynthesis converts light energy into chemical energy stored in glucose molecules inside the chloroplast."),
		resultWithText("b", "Chemistry Basics", "Ionic bonds form when electrons transfer completely between a metal and a nonmetal atom."),
	}

	t.Run("credits sources cited on the references line", func(t *testing.T) {
		answer := "Plants make their own food.\n\nReferences: Biology: Unit 3"

		sources := attributor.Attribute(answer, candidates)
		require.Len(t, sources, 1)
		assert.Equal(t, "Biology: Unit 3", sources[0].Title)
	})

	t.Run("credits sources whose wording surfaces in the answer", func(t *testing.T) {
		answer := "In short, photosynthesis converts light energy into chemical energy stored in glucose molecules inside the cell."

		sources := attributor.Attribute(answer, candidates)
		require.Len(t, sources, 1)
		assert.Equal(t, "Biology: Unit 3", sources[0].Title)
	})

	t.Run("a single overlapping window is not enough", func(t *testing.T) {
		// Only one 5-word window of the chemistry chunk appears.
		answer := "Bonds form when electrons transfer, roughly speaking."

		sources := attributor.Attribute(answer, candidates)
		assert.Empty(t, sources)
	})

	t.Run("paraphrased answers credit nothing", func(t *testing.T) {
		answer := "Plants use sunlight to build sugars, and salts arise from charged atoms sticking together."

		sources := attributor.Attribute(answer, candidates)
		assert.Empty(t, sources)
	})

	t.Run("result is a subset in candidate order", func(t *testing.T) {
		answer := "Photosynthesis converts light energy into chemical energy stored in glucose molecules, while ionic bonds form when electrons transfer completely between a metal and a nonmetal atom.\nReferences: Biology: Unit 3, Chemistry Basics"

		sources := attributor.Attribute(answer, candidates)
		require.Len(t, sources, 2)
		assert.Equal(t, "Biology: Unit 3", sources[0].Title)
		assert.Equal(t, "Chemistry Basics", sources[1].Title)
	})

	t.Run("empty answer or candidates credit nothing", func(t *testing.T) {
		assert.Empty(t, attributor.Attribute("", candidates))
		assert.Empty(t, attributor.Attribute("some answer", nil))
	})

	t.Run("references line matching is case insensitive", func(t *testing.T) {
		answer := "Salts are ionic.\nreferences: chemistry basics"

		sources := attributor.Attribute(answer, candidates)
		require.Len(t, sources, 1)
		assert.Equal(t, "Chemistry Basics", sources[0].Title)
	})
}
