// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tally/block"
	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

// spaced returns n infos from height 100 spaced by spacing milliseconds.
func spaced(n int, spacing tally.Timestamp, difficulty tally.Difficulty) []difficultycache.Info {
	out := make([]difficultycache.Info, n)
	for i := range out {
		out[i] = difficultycache.Info{
			Height:     tally.Height(100 + i),
			Timestamp:  12_345 + tally.Timestamp(i)*spacing,
			Difficulty: difficulty,
		}
	}
	return out
}

func TestCalculateDifficulty(t *testing.T) {
	tests := []struct {
		name    string
		history []difficultycache.Info
		want    tally.Difficulty
	}{
		{"single sample", spaced(1, 0, 75_000), 75_000},
		{"on target", spaced(4, 15_000, 1000), 1000},
		{"slow blocks raise", spaced(4, 16_000, 1000), 1066},
		{"fast blocks lower", spaced(4, 14_000, 1000), 933},
		{"raise is bounded", spaced(4, 60_000, 1000), 1100},
		{"lower is bounded", spaced(4, 1_000, 1000), 900},
		{"never zero", spaced(4, 1_000, 1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			height := tt.history[len(tt.history)-1].Height + 1
			got, err := CalculateDifficulty(tt.history, height, 15)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateDifficultyRejectsUnusableHistory(t *testing.T) {
	_, err := CalculateDifficulty(nil, 2, 15)
	assert.ErrorIs(t, err, ErrDifficultyHistory)

	_, err = CalculateDifficulty(spaced(3, 15_000, 1000), 104, 15)
	assert.ErrorIs(t, err, ErrDifficultyHistory, "history must end at the parent")

	_, err = CalculateDifficulty(spaced(1, 0, 0), 101, 15)
	assert.ErrorIs(t, err, ErrDifficultyHistory)
}

func TestNextDifficultyUsesDeltaHistory(t *testing.T) {
	delta := newDelta(t)
	difficulties, err := statecache.DeltaOf[*difficultycache.Delta](delta)
	require.NoError(t, err)
	for _, info := range spaced(4, 16_000, 1000) {
		require.NoError(t, difficulties.Insert(info))
	}

	got, err := NextDifficulty(difficulties, 104, 15)
	require.NoError(t, err)
	assert.Equal(t, tally.Difficulty(1066), got)
}

func TestProcessorChecksDifficulty(t *testing.T) {
	parent := newParent()
	delta := newDelta(t)
	difficulties, err := statecache.DeltaOf[*difficultycache.Delta](delta)
	require.NoError(t, err)
	require.NoError(t, difficulties.Insert(difficultycache.Info{
		Height:     parent.Height(),
		Timestamp:  parent.Header().Timestamp(),
		Difficulty: parent.Header().Difficulty(),
	}))

	hit := new(mockHit)
	entities := new(mockEntities)
	p := NewProcessor(hit, entities, Options{BlockTargetSeconds: 15})

	bad := next(parent, func(b *block.Builder) { b.Difficulty(101) })
	r, err := p.Process(context.Background(), parent, []*block.Element{bad}, delta)
	require.NoError(t, err)
	assert.Equal(t, validation.InvalidDifficulty, r)
	hit.AssertNotCalled(t, "IsHit", mock.Anything)
	entities.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	hit.On("IsHit", mock.Anything).Return(true)
	entities.On("Process", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(validation.Success, nil)
	r, err = p.Process(context.Background(), parent, []*block.Element{next(parent)}, delta)
	require.NoError(t, err)
	assert.Equal(t, validation.Success, r)
}

func TestProcessorNeedsDifficultyHistory(t *testing.T) {
	parent := newParent()
	p := NewProcessor(new(mockHit), new(mockEntities), Options{BlockTargetSeconds: 15})
	_, err := p.Process(context.Background(), parent, newElements(parent, 1), newDelta(t))
	assert.ErrorIs(t, err, ErrDifficultyHistory)
}
