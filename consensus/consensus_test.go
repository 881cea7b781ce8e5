package consensus

import (
	"testing"

	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type memStore map[string][]byte

func (m memStore) Get(key []byte) ([]byte, error) { return m[string(key)], nil }

func (m memStore) Set(key, value []byte) error {
	m[string(key)] = value
	return nil
}

func (m memStore) Delete(key []byte) error {
	delete(m, string(key))
	return nil
}

const actionTest Action = 200

var (
	subject = common.HexToAddress("0x2000000000000000000000000000000000000005")
	voterA  = common.HexToAddress("0x2000000000000000000000000000000000000001")
	voterB  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	voterC  = common.HexToAddress("0x2000000000000000000000000000000000000003")
)

func TestMinimumVotesPerAction(t *testing.T) {
	e := NewEngine(memStore{})
	require.NoError(t, e.SetMinimumVotes(ActionRegisterAirline, 2))
	require.NoError(t, e.SetMinimumVotes(actionTest, 3))

	m1, err := e.MinimumVotes(ActionRegisterAirline)
	require.NoError(t, err)
	m2, err := e.MinimumVotes(actionTest)
	require.NoError(t, err)
	require.Equal(t, uint64(2), m1)
	require.Equal(t, uint64(3), m2)

	require.ErrorIs(t, e.SetMinimumVotes(actionTest, 0), types.ErrValueOutOfBounds)
}

func TestConsensusRequiresMinimum(t *testing.T) {
	e := NewEngine(memStore{})
	require.NoError(t, e.SetMinimumVotes(actionTest, 2))

	reached, count, err := e.RegisterVote(actionTest, subject, voterA)
	require.NoError(t, err)
	require.False(t, reached)
	require.Equal(t, uint64(1), count)
	ok, err := e.IsConsensusAchieved(actionTest, subject)
	require.NoError(t, err)
	require.False(t, ok)

	reached, count, err = e.RegisterVote(actionTest, subject, voterB)
	require.NoError(t, err)
	require.True(t, reached)
	require.Equal(t, uint64(2), count)
	ok, err = e.IsConsensusAchieved(actionTest, subject)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDuplicateVoteRejected(t *testing.T) {
	e := NewEngine(memStore{})
	require.NoError(t, e.SetMinimumVotes(actionTest, 2))

	_, _, err := e.RegisterVote(actionTest, subject, voterA)
	require.NoError(t, err)
	_, _, err = e.RegisterVote(actionTest, subject, voterA)
	require.ErrorIs(t, err, types.ErrAlreadyVoted)

	count, err := e.VoteCount(actionTest, subject)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestVoteWithoutMinimum(t *testing.T) {
	e := NewEngine(memStore{})
	_, _, err := e.RegisterVote(actionTest, subject, voterA)
	require.ErrorIs(t, err, ErrMinimumNotSet)
	ok, err := e.IsConsensusAchieved(actionTest, subject)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResetConsensus(t *testing.T) {
	store := memStore{}
	e := NewEngine(store)
	require.NoError(t, e.SetMinimumVotes(actionTest, 2))

	_, _, err := e.RegisterVote(actionTest, subject, voterA)
	require.NoError(t, err)
	_, _, err = e.RegisterVote(actionTest, subject, voterB)
	require.NoError(t, err)
	require.NoError(t, e.ResetConsensus(actionTest, subject))

	ok, err := e.IsConsensusAchieved(actionTest, subject)
	require.NoError(t, err)
	require.False(t, ok)
	voted, err := e.HasVoted(actionTest, subject, voterA)
	require.NoError(t, err)
	require.False(t, voted)

	// only the minimum survives a reset
	require.Len(t, store, 1)

	_, _, err = e.RegisterVote(actionTest, subject, voterA)
	require.NoError(t, err)
}

func TestVotersKeepArrivalOrder(t *testing.T) {
	e := NewEngine(memStore{})
	require.NoError(t, e.SetMinimumVotes(actionTest, 5))
	for _, v := range []common.Address{voterC, voterA, voterB} {
		_, _, err := e.RegisterVote(actionTest, subject, v)
		require.NoError(t, err)
	}
	voters, err := e.Voters(actionTest, subject)
	require.NoError(t, err)
	require.Equal(t, []common.Address{voterC, voterA, voterB}, voters)
}

func TestActionsAreIsolated(t *testing.T) {
	e := NewEngine(memStore{})
	require.NoError(t, e.SetMinimumVotes(actionTest, 1))
	require.NoError(t, e.SetMinimumVotes(ActionRegisterAirline, 1))

	reached, _, err := e.RegisterVote(actionTest, subject, voterA)
	require.NoError(t, err)
	require.True(t, reached)

	ok, err := e.IsConsensusAchieved(ActionRegisterAirline, subject)
	require.NoError(t, err)
	require.False(t, ok)
}
