package fixpoint_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averyl/idverify/internal/fixpoint"
)

// intState is a minimal State: the max of every value ever joined in,
// exercising the join-until-stable contract without needing the real
// ID/NonID lattice.
type intState struct{ v int }

func (s *intState) Clone() fixpoint.State { return &intState{v: s.v} }

func (s *intState) Join(other fixpoint.State) bool {
	o := other.(*intState)
	if o.v > s.v {
		s.v = o.v
		return true
	}
	return false
}

type fakeBlock struct {
	id   int
	succ []int
}

func (b *fakeBlock) ID() int             { return b.id }
func (b *fakeBlock) SuccessorIDs() []int { return b.succ }

func TestRunLinearChainPropagatesState(t *testing.T) {
	blocks := []fixpoint.Block{
		&fakeBlock{id: 0, succ: []int{1}},
		&fakeBlock{id: 1, succ: []int{2}},
		&fakeBlock{id: 2, succ: nil},
	}

	var seen []int
	transfer := func(entry fixpoint.State, block fixpoint.Block) (fixpoint.State, error) {
		s := entry.(*intState)
		seen = append(seen, s.v)
		return &intState{v: s.v + 1}, nil
	}

	err := fixpoint.Run(blocks, 0, &intState{v: 0}, transfer)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestRunJoinsAtMergePoint(t *testing.T) {
	// 0 branches to 1 and 2; both feed into 3. The transfer on 3 should see
	// a joined state reflecting whichever entrant's value is larger.
	blocks := []fixpoint.Block{
		&fakeBlock{id: 0, succ: []int{1, 2}},
		&fakeBlock{id: 1, succ: []int{3}},
		&fakeBlock{id: 2, succ: []int{3}},
		&fakeBlock{id: 3, succ: nil},
	}

	var joinedAt3 int
	transfer := func(entry fixpoint.State, block fixpoint.Block) (fixpoint.State, error) {
		s := entry.(*intState)
		switch block.ID() {
		case 1:
			return &intState{v: 5}, nil
		case 2:
			return &intState{v: 9}, nil
		case 3:
			joinedAt3 = s.v
		}
		return &intState{v: s.v}, nil
	}

	err := fixpoint.Run(blocks, 0, &intState{v: 0}, transfer)
	require.NoError(t, err)
	assert.Equal(t, 9, joinedAt3)
}

func TestRunPropagatesTransferError(t *testing.T) {
	blocks := []fixpoint.Block{&fakeBlock{id: 0}}
	boom := errors.New("boom")
	err := fixpoint.Run(blocks, 0, &intState{}, func(fixpoint.State, fixpoint.Block) (fixpoint.State, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunReportsUnknownBlock(t *testing.T) {
	blocks := []fixpoint.Block{&fakeBlock{id: 0, succ: []int{42}}}
	err := fixpoint.Run(blocks, 0, &intState{}, func(entry fixpoint.State, block fixpoint.Block) (fixpoint.State, error) {
		return entry.Clone(), nil
	})
	assert.Error(t, err)
}
