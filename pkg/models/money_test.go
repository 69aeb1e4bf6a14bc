package models_test

import (
	"testing"

	"github.com/kiranshivaraju/bidhub/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestHasCentsPrecision(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{100, true},
		{19.9, true},
		{19.99, true},
		{0.1 + 0.2, false},
		{6000.555, false},
		{models.MaxAmount, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.HasCentsPrecision(tt.v), "value %v", tt.v)
	}
}
