package ownership_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/ownership"
)

func TestValidateSplit(t *testing.T) {
	tests := []struct {
		name        string
		splits      []domain.Split
		expectedErr error
	}{
		{
			name: "valid two-way split",
			splits: []domain.Split{
				{CreatorID: "creator-a", ShareBps: 6000},
				{CreatorID: "creator-b", ShareBps: 4000},
			},
		},
		{
			name:   "valid sole owner",
			splits: []domain.Split{{CreatorID: "creator-a", ShareBps: 10000}},
		},
		{
			name: "valid many small shares",
			splits: []domain.Split{
				{CreatorID: "creator-a", ShareBps: 9997},
				{CreatorID: "creator-b", ShareBps: 1},
				{CreatorID: "creator-c", ShareBps: 1},
				{CreatorID: "creator-d", ShareBps: 1},
			},
		},
		{
			name:        "empty split",
			splits:      nil,
			expectedErr: domain.ErrInvalidSplit,
		},
		{
			name: "sum below total",
			splits: []domain.Split{
				{CreatorID: "creator-a", ShareBps: 5000},
				{CreatorID: "creator-b", ShareBps: 4000},
			},
			expectedErr: domain.ErrInvalidSplit,
		},
		{
			name: "sum above total",
			splits: []domain.Split{
				{CreatorID: "creator-a", ShareBps: 6000},
				{CreatorID: "creator-b", ShareBps: 6000},
			},
			expectedErr: domain.ErrInvalidSplit,
		},
		{
			name: "zero share",
			splits: []domain.Split{
				{CreatorID: "creator-a", ShareBps: 10000},
				{CreatorID: "creator-b", ShareBps: 0},
			},
			expectedErr: domain.ErrInvalidSplit,
		},
		{
			name: "negative share",
			splits: []domain.Split{
				{CreatorID: "creator-a", ShareBps: 11000},
				{CreatorID: "creator-b", ShareBps: -1000},
			},
			expectedErr: domain.ErrInvalidSplit,
		},
		{
			name: "duplicate creator",
			splits: []domain.Split{
				{CreatorID: "creator-a", ShareBps: 5000},
				{CreatorID: "creator-a", ShareBps: 5000},
			},
			expectedErr: domain.ErrInvalidSplit,
		},
		{
			name: "missing creator id",
			splits: []domain.Split{
				{CreatorID: "", ShareBps: 10000},
			},
			expectedErr: domain.ErrInvalidSplit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ownership.ValidateSplit(tt.splits)
			if tt.expectedErr != nil {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSplitErrorMessage(t *testing.T) {
	err := ownership.ValidateSplit([]domain.Split{
		{CreatorID: "creator-a", ShareBps: 5000},
		{CreatorID: "creator-b", ShareBps: 4500},
	})
	assert.ErrorContains(t, err, "sums to 9500 of required 10000 bps")
}
