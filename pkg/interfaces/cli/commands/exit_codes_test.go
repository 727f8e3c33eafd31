package commands

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"insufficient stock", fmt.Errorf("release: %w", &entities.InsufficientStockError{}), 3},
		{"cycle", &entities.CircularReferenceError{Path: []uuid.UUID{uuid.New()}}, 4},
		{"not found", entities.NewNotFound("product", uuid.New()), 8},
		{"ambiguous", &entities.AmbiguousBOMError{ProductID: uuid.New()}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
