package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketJSONAlwaysCarriesTranslatedFields(t *testing.T) {
	m := Market{ID: 42, Slug: "will-boca-defeat-river", Title: "Will Boca defeat River?"}.
		WithTranslation(MarketTranslation{TitleTarget: "¿Vencerá Boca a River?"})

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "¿Vencerá Boca a River?", fields["titleEs"])
	assert.Contains(t, fields, "descriptionEs")
	assert.Equal(t, "", fields["descriptionEs"])
}
