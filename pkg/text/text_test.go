package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "asuncion", Fold("Asunción"))
	assert.Equal(t, "ermita de san saturio", Fold("Ermita de San Saturio"))
	assert.Equal(t, "", Fold(""))
}

func TestTrigramSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, TrigramSimilarity("Iglesia de San Pedro", "Iglesia de San Pedro"))
}

func TestTrigramSimilarityAccentInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, TrigramSimilarity("Basílica del Pilar", "basilica del pilar"))
}

func TestTrigramSimilarityDisjoint(t *testing.T) {
	assert.Zero(t, TrigramSimilarity("Iglesia de San Pedro", "xyzzy"))
}

func TestTrigramSimilarityEmpty(t *testing.T) {
	assert.Zero(t, TrigramSimilarity("", "Iglesia"))
	assert.Zero(t, TrigramSimilarity("Iglesia", ""))
	assert.Zero(t, TrigramSimilarity("", ""))
}

func TestTrigramSimilarityPartial(t *testing.T) {
	s := TrigramSimilarity("Iglesia de San Pedro", "San Pedro")
	assert.Greater(t, s, 0.2)
	assert.Less(t, s, 1.0)

	// Unrelated names should stay near zero.
	assert.Less(t, TrigramSimilarity("Convento de Santa Clara", "Nave industrial en polígono"), 0.1)
}

func TestTrigramSimilarityShortStrings(t *testing.T) {
	assert.Equal(t, 1.0, TrigramSimilarity("; ab", "AB"))
}
