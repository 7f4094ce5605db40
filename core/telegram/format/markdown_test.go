package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdown(t *testing.T) {
	v1, err := EscapeMarkdown("snake_case *bold* [x] `code`", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, "snake\\_case \\*bold\\* \\[x] \\`code\\`", v1)

	v2, err := EscapeMarkdown("1.5 (ok)!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, "1\\.5 \\(ok\\)\\!", v2)

	v2, err = EscapeMarkdown("+7 900-123-45-67, 18:00 = 5/5 < 10", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, "\\+7 900\\-123\\-45\\-67, 18:00 \\= 5/5 < 10", v2)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)

	assert.Equal(t, "ул. Баранова, 87", MD("ул. Баранова, 87"))
}
