package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineRows(t *testing.T) {
	assert.Nil(t, InlineRows())

	m := InlineRows(
		[]InlineBtn{{Text: "A", Unique: "a"}, {Text: "B", Unique: "b", Data: "1"}},
		[]InlineBtn{{Text: "Site", URL: "https://example.com"}},
	)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "a", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "1", m.InlineKeyboard[0][1].Data)
	assert.Equal(t, "https://example.com", m.InlineKeyboard[1][0].URL)
}
