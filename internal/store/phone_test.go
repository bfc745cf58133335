package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"01012345678", "010-1234-5678"},
		{"010-1234-5678", "010-1234-5678"},
		{"+82 10 1234 5678 99", "821-0123-4567"},
		{"(02) 123-4567", "021234567"},
		{"abc", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPhone(tt.in), "input %q", tt.in)
	}
}
