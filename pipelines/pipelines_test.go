package pipelines

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemasAreValidJSON(t *testing.T) {
	for _, d := range All {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(d.Schema, &m), d.Name)
		assert.Contains(t, m, "mappings", d.Name)
	}
}

func TestFiltersBindWatermarkParam(t *testing.T) {
	for _, d := range All {
		for _, f := range d.Filters {
			assert.Equal(t, "dt", f.Param)
			assert.Contains(t, f.Query, "> :dt", f.StateKey)
		}
	}
	for _, q := range []string{filmworkCollect, personCollect, genreCollect} {
		assert.Contains(t, q, "IN (:ids)")
		assert.NotContains(t, q, "::") // Escapes of named parameter syntax.
		assert.True(t, strings.HasPrefix(strings.TrimSpace(q), "SELECT"))
	}
}

func TestSelect(t *testing.T) {
	var defs, err = Select(nil)
	require.NoError(t, err)
	assert.Len(t, defs, 3)

	defs, err = Select([]string{"genres", "movies"})
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "movies", defs[0].Name) // Definition order is retained.
	assert.Equal(t, "genres", defs[1].Name)

	_, err = Select([]string{"genres", "studios", "awards"})
	assert.EqualError(t, err, "unknown pipelines: [awards studios]")
}

func TestStateKeys(t *testing.T) {
	assert.Equal(t, []string{
		"fw_last_filmwork_dt",
		"fw_last_genre_dt",
		"fw_last_person_dt",
		"persons_last_dt",
		"genres_last_dt",
	}, StateKeys())
}
