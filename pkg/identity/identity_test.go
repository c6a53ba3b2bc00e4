package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Project", "myproject"},
		{"my-project.zip", "myprojectzip"},
		{"Café Réservé", "cafereserve"},
		{"Ünïcode_2024", "unicode2024"},
		{"   ", ""},
		{"日本語", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"My Project 2", "ÀÉÎ-õü", "x.zip"} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("my-project.zip", Normalize("My Project")))
	assert.False(t, Matches("my-project.zip", Normalize("My Project 2")))
	assert.False(t, Matches("anything.zip", ""))
}
