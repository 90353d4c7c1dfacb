package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIconURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://mail.google.com/u/0", "https://www.google.com/s2/favicons?domain=google.com&sz=64"},
		{"bbc.co.uk", "https://www.google.com/s2/favicons?domain=bbc.co.uk&sz=64"},
		{"http://WWW.Example.ORG:8080/x", "https://www.google.com/s2/favicons?domain=example.org&sz=64"},
		{"", ""},
		{"localhost", ""},
		{"http://192.168.1.1/admin", ""},
		{"co.uk", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveIconURL(tt.in))
		})
	}
}
