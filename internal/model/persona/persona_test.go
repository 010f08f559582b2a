package persona

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardDefaults(t *testing.T) {
	w := Wizard()

	assert.Equal(t, "gemini-1.5-flash", w.Model)
	assert.Equal(t, float32(1), w.Generation.Temperature)
	assert.Equal(t, float32(0.95), w.Generation.TopP)
	assert.Equal(t, int32(64), w.Generation.TopK)
	assert.Equal(t, int32(8192), w.Generation.MaxOutputTokens)
	assert.Contains(t, w.Instruction, "CONDITION: The player threatens to steal a cookie from Sundar Pichai.")
}

func TestSecretParsedFromInstruction(t *testing.T) {
	assert.Equal(t, "RICHARDTHEE", Wizard().Secret())
	assert.Empty(t, Persona{Instruction: "no password here"}.Secret())
}

func TestInstructionNotSerialized(t *testing.T) {
	raw, err := json.Marshal(Wizard())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "RICHARDTHEE")
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(Seed())

	list := store.List()
	require.Len(t, list, 1)
	list[0].Name = "mutated"

	got, ok := store.FindByID(WizardID)
	require.True(t, ok)
	assert.Equal(t, "Secret Keeper", got.Name)

	_, ok = store.FindByID("missing")
	assert.False(t, ok)
}

func TestOverrideKeepsUnsetFields(t *testing.T) {
	topK := int32(40)
	p := Override(Wizard(), Overrides{Model: "gemini-2.0-flash", TopK: &topK})

	assert.Equal(t, "gemini-2.0-flash", p.Model)
	assert.Equal(t, int32(40), p.Generation.TopK)
	assert.Equal(t, float32(0.95), p.Generation.TopP)
	assert.Equal(t, int32(8192), p.Generation.MaxOutputTokens)
}

func TestOverrideAppliesZero(t *testing.T) {
	zero := float32(0)
	p := Override(Wizard(), Overrides{Temperature: &zero})

	assert.Equal(t, float32(0), p.Generation.Temperature)
	assert.Equal(t, Wizard().Model, p.Model)
}
