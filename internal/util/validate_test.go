package util

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("student@ldrp.ac.in"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("a@"))
}

func TestValidUsername(t *testing.T) {
	assert.True(t, ValidUsername("alice_01"))
	assert.False(t, ValidUsername("alice-01"))
	assert.False(t, ValidUsername("al ice"))
	assert.False(t, ValidUsername(""))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "alice", SanitizeInput("  alice \n"))
	assert.Equal(t, "scriptalert(1)/script", SanitizeInput("<script>alert(1)</script>"))
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "al***@example.com"},
		{"ab@example.com", "a***@example.com"},
		{"a@example.com", "a***@example.com"},
		{"noatsign", "noatsign"},
		{"x@", "x@"},
		{"ésaïe@example.com", "és***@example.com"},
		{"日本@example.jp", "日***@example.jp"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := MaskEmail(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
