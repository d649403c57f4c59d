package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		first string
		last  string
	}{
		{"grace.hopper@example.com", "Grace", "Hopper"},
		{"ada_lovelace@example.com", "Ada", "Lovelace"},
		{"alan-m-turing@example.com", "Alan", "Turing"},
		{"bob@example.com", "Bob", "User"},
		{"bob+ci@example.com", "Bob", "Ci"},
		{"no-at-sign", "No", "Sign"},
		{"", "User", "User"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			first, last := DeriveNameFromEmail(tt.email)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}
