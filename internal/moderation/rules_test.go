package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recompensa/internal/listing/models"
)

func TestDecide(t *testing.T) {
	t.Run("banned flag rejects regardless of score", func(t *testing.T) {
		d := Decide(100, []Flag{"BANNED:sequestro"})
		assert.Equal(t, ActionReject, d.Action)
		assert.Equal(t, models.StatusBanned, d.ToStatus)
		assert.True(t, d.Transitions)
		assert.Equal(t, "BANNED:sequestro", d.Reason)
	})

	t.Run("banned flag wins even mixed with sensitive flags", func(t *testing.T) {
		d := Decide(130, []Flag{"SENSITIVE:senha", "BANNED:sequestro"})
		assert.Equal(t, ActionReject, d.Action)
		assert.Equal(t, "SENSITIVE:senha, BANNED:sequestro", d.Reason)
	})

	t.Run("score at threshold without banned flags adjusts", func(t *testing.T) {
		d := Decide(AdjustThreshold, []Flag{"SENSITIVE:monitorar", "SENSITIVE:senha"})
		assert.Equal(t, ActionAdjust, d.Action)
		assert.False(t, d.Transitions, "ADJUST must not transition the listing")
		assert.Equal(t, "SENSITIVE:monitorar, SENSITIVE:senha", d.Reason)
	})

	t.Run("score above threshold adjusts", func(t *testing.T) {
		d := Decide(60, []Flag{"SENSITIVE:monitorar", "SENSITIVE:senha"})
		assert.Equal(t, ActionAdjust, d.Action)
	})

	t.Run("low score approves with reason auto", func(t *testing.T) {
		d := Decide(5, nil)
		assert.Equal(t, ActionApprove, d.Action)
		assert.Equal(t, models.StatusPublished, d.ToStatus)
		assert.True(t, d.Transitions)
		assert.Equal(t, "auto", d.Reason)
		assert.Equal(t, 5, d.Score)
	})

	t.Run("score just below threshold approves", func(t *testing.T) {
		d := Decide(AdjustThreshold-1, []Flag{"SENSITIVE:senha"})
		assert.Equal(t, ActionApprove, d.Action)
	})
}
