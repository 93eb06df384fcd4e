package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorerEvaluate(t *testing.T) {
	scorer := NewScorer(DefaultWordlists())

	t.Run("clean text scores zero with no flags", func(t *testing.T) {
		score, flags := scorer.Evaluate("Lost wallet near the park")
		assert.Zero(t, score)
		assert.Empty(t, flags)
	})

	t.Run("banned term adds 100 and a BANNED flag", func(t *testing.T) {
		score, flags := scorer.Evaluate("Informações sobre o sequestro")
		assert.Equal(t, 100, score)
		require.Len(t, flags, 1)
		assert.Equal(t, Flag("BANNED:sequestro"), flags[0])
		assert.True(t, flags[0].Banned())
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		score, flags := scorer.Evaluate("SEQUESTRO")
		assert.Equal(t, 100, score)
		require.Len(t, flags, 1)
		assert.Equal(t, Flag("BANNED:sequestro"), flags[0])
	})

	t.Run("each term matches at most once", func(t *testing.T) {
		score, flags := scorer.Evaluate("senha senha senha")
		assert.Equal(t, 30, score)
		assert.Len(t, flags, 1)
	})

	t.Run("two sensitive terms score 60", func(t *testing.T) {
		score, flags := scorer.Evaluate("vou monitorar a senha dele")
		assert.Equal(t, 60, score)
		require.Len(t, flags, 2)
		assert.Equal(t, Flag("SENSITIVE:monitorar"), flags[0])
		assert.Equal(t, Flag("SENSITIVE:senha"), flags[1])
		assert.False(t, flags[0].Banned())
	})

	t.Run("flags preserve wordlist traversal order", func(t *testing.T) {
		// "senha" appears before "monitorar" in the text but after it in the
		// sensitive wordlist; list order wins.
		_, flags := scorer.Evaluate("a senha para monitorar")
		require.Len(t, flags, 2)
		assert.Equal(t, Flag("SENSITIVE:monitorar"), flags[0])
		assert.Equal(t, Flag("SENSITIVE:senha"), flags[1])
	})

	t.Run("banned flags come before sensitive flags", func(t *testing.T) {
		_, flags := scorer.Evaluate("senha do sequestro")
		require.Len(t, flags, 2)
		assert.Equal(t, Flag("BANNED:sequestro"), flags[0])
		assert.Equal(t, Flag("SENSITIVE:senha"), flags[1])
	})

	t.Run("urgency marker adds 5 without a flag", func(t *testing.T) {
		score, flags := scorer.Evaluate("Reward for safe return, urgent!")
		assert.Equal(t, 5, score)
		assert.Empty(t, flags)
	})

	t.Run("urgency counts once for multiple markers", func(t *testing.T) {
		score, _ := scorer.Evaluate("urgente! immediate response needed")
		assert.Equal(t, 5, score)
	})

	t.Run("currency-like numerals add 5", func(t *testing.T) {
		score, flags := scorer.Evaluate("recompensa de 1.000,00 pela devolução")
		assert.Equal(t, 5, score)
		assert.Empty(t, flags)
	})

	t.Run("plain small numbers are not currency", func(t *testing.T) {
		score, _ := scorer.Evaluate("apartment 42 block 7")
		assert.Zero(t, score)
	})

	t.Run("signals accumulate", func(t *testing.T) {
		score, flags := scorer.Evaluate("urgente: 5.000 para monitorar a senha")
		// 30 + 30 sensitive, 5 currency, 5 urgency.
		assert.Equal(t, 70, score)
		assert.Len(t, flags, 2)
	})
}

func TestScorerIsPure(t *testing.T) {
	scorer := NewScorer(DefaultWordlists())
	text := "urgente: 1.000,00 para monitorar a senha do sequestro"

	firstScore, firstFlags := scorer.Evaluate(text)
	for i := 0; i < 10; i++ {
		score, flags := scorer.Evaluate(text)
		assert.Equal(t, firstScore, score)
		assert.Equal(t, firstFlags, flags)
	}
}

func TestScorerMonotonicity(t *testing.T) {
	scorer := NewScorer(DefaultWordlists())

	// Appending more matching content never decreases the score.
	texts := []string{
		"procurando meu cachorro",
		"procurando meu cachorro urgente",
		"procurando meu cachorro urgente por 1.000,00",
		"procurando meu cachorro urgente por 1.000,00, vou monitorar",
		"procurando meu cachorro urgente por 1.000,00, vou monitorar a senha",
		"procurando meu cachorro urgente por 1.000,00, vou monitorar a senha do sequestro",
	}

	prev := -1
	for _, text := range texts {
		score, _ := scorer.Evaluate(text)
		require.GreaterOrEqual(t, score, prev, "score decreased for %q", text)
		prev = score
	}
}

func TestJoinFlags(t *testing.T) {
	assert.Equal(t, "", JoinFlags(nil))
	assert.Equal(t,
		"BANNED:sequestro, SENSITIVE:senha",
		JoinFlags([]Flag{"BANNED:sequestro", "SENSITIVE:senha"}),
	)
}
