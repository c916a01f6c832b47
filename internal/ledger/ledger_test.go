package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := Default()
	require.Len(t, table, 3)

	code, ok := table.Account("CF10 1AE")
	require.True(t, ok)
	assert.Equal(t, 5001, code)

	code, ok = table.Account("CF24 3LP")
	require.True(t, ok)
	assert.Equal(t, 5002, code)

	code, ok = table.Account("CF11 9DX")
	require.True(t, ok)
	assert.Equal(t, 5004, code)

	_, ok = table.Account("SO16 0YS")
	assert.False(t, ok)
	assert.False(t, table.Knows("SO16 0YS"))
}

func TestKeywordTable(t *testing.T) {
	keywords := DefaultKeywords()

	tests := []struct {
		ref  string
		want string
	}{
		{"Royal Arcade store", "CF10 1AE"},
		{"CANTON BRANCH", "CF11 9DX"},
		{"roath", "CF24 3LP"},
		{"Albany Road", "CF24 3LP"},
	}
	for _, tt := range tests {
		postcode, ok := keywords.Postcode(tt.ref)
		require.True(t, ok, tt.ref)
		assert.Equal(t, tt.want, postcode)
	}

	_, ok := keywords.Postcode("unknown site")
	assert.False(t, ok)
	_, ok = keywords.Postcode("")
	assert.False(t, ok)
}
