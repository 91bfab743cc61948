package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "valid UTF-8 string unchanged",
			input:    "Hello, World! 你好世界",
			expected: "Hello, World! 你好世界",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "invalid UTF-8 bytes removed",
			input:    "Hello\xffWorld",
			expected: "HelloWorld",
		},
		{
			name:     "multiple invalid UTF-8 sequences",
			input:    "Start\xffMiddle\xfeEnd\xfd",
			expected: "StartMiddleEnd",
		},
		{
			name:     "mixed valid and invalid UTF-8",
			input:    "Test 🚀\xff note\xfe here",
			expected: "Test 🚀 note here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeUTF8(tt.input))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	long := strings.Repeat("é", previewLimit+10)
	got := Preview(long)
	assert.Equal(t, previewLimit+1, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestNewBaseEvent(t *testing.T) {
	a := NewBaseEvent(TypeTradeLogged, "u1")
	b := NewBaseEvent(TypeTradeLogged, "u1")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "trade.logged", a.Type)
	assert.Equal(t, "1.0", a.Version)
	assert.False(t, a.OccurredAt.IsZero())
}
