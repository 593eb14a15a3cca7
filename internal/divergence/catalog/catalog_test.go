package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalia-integrity/internal/models"
)

func TestGet_KnownTypes(t *testing.T) {
	info, ok := Get(models.TypeAlunosDuplicados)
	require.True(t, ok)
	assert.Equal(t, models.SeverityCritical, info.Severity)
	assert.True(t, info.Fixable)
	assert.False(t, info.AutoFixable, "merge requires operator confirmation")

	info, ok = Get(models.TypeMediasInconsistentes)
	require.True(t, ok)
	assert.Equal(t, models.SeverityImportant, info.Severity)
	assert.True(t, info.AutoFixable)

	info, ok = Get(models.TypeResultadosOrfaos)
	require.True(t, ok)
	assert.True(t, info.AutoFixable)
}

func TestGet_UnknownType(t *testing.T) {
	_, ok := Get(models.DivergenceType("nada_disso"))
	assert.False(t, ok)
}

func TestAll_MetadataInvariants(t *testing.T) {
	all := All()
	require.Len(t, all, 21)

	for typ, info := range all {
		assert.NotEmpty(t, info.Title, "type %s", typ)
		assert.NotEmpty(t, info.Description, "type %s", typ)
		assert.Contains(t, []models.Severity{
			models.SeverityCritical,
			models.SeverityImportant,
			models.SeverityWarning,
			models.SeverityInformational,
		}, info.Severity, "type %s", typ)

		if info.AutoFixable {
			assert.True(t, info.Fixable, "auto-fixable implies fixable: %s", typ)
		}
		if info.Fixable {
			assert.NotEmpty(t, info.FixActionLabel, "fixable types carry an action label: %s", typ)
		}
	}
}
