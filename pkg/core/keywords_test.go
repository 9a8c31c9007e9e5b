package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			"stop words and short tokens dropped",
			"Can you tell me about the big dinosaurs?",
			[]string{"can", "tell", "big", "dinosaurs"},
		},
		{
			"first five kept in order",
			"dinosaurs volcanoes planets rockets comets asteroids galaxies",
			[]string{"dinosaurs", "volcanoes", "planets", "rockets", "comets"},
		},
		{
			"punctuation stripped",
			"Dinosaurs! Planets? (Rockets)",
			[]string{"dinosaurs", "planets", "rockets"},
		},
		{
			"empty message",
			"",
			nil,
		},
		{
			"only stop words",
			"the a an is my your",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.message))
		})
	}
}
