package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhoneNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"010", "010"},
		{"01012345678", "010-1234-5678"},
		{"010-1234-5678", "010-1234-5678"},
		{"0311234567", "031-123-4567"},
		{"0312345", "031-2345"},
		{"021234567", "02-123-4567"},
		{"0212345678", "02-1234-5678"},
		{"02123", "02-123"},
		{"(02) 1234 5678 ext", "02-1234-5678"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatPhoneNumber(tc.in), tc.in)
	}
}

func TestFormatRegNumber(t *testing.T) {
	assert.Equal(t, "123", FormatRegNumber("123"))
	assert.Equal(t, "123-45", FormatRegNumber("12345"))
	assert.Equal(t, "123-45-67890", FormatRegNumber("1234567890"))
	assert.Equal(t, "123-45-67890", FormatRegNumber("123-45-678901"))
}
