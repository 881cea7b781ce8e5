package surety

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/calehh/surety-app/consensus"
	"github.com/calehh/surety-app/state"
	"github.com/calehh/surety-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

var (
	owner  = common.HexToAddress("0x4000000000000000000000000000000000000001")
	oracle = common.HexToAddress("0x4000000000000000000000000000000000000002")
	buyer  = common.HexToAddress("0x4000000000000000000000000000000000000003")
	buyer2 = common.HexToAddress("0x4000000000000000000000000000000000000004")

	airlines = func() (a []common.Address) {
		for i := 1; i <= 8; i++ {
			a = append(a, common.HexToAddress(fmt.Sprintf("0x50000000000000000000000000000000000000%02d", i)))
		}
		return
	}()

	blockTime = time.Unix(1_700_000_000, 0)
	future    = uint64(blockTime.Unix()) + 3600
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

func newTestSurety(t *testing.T) *Surety {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	g := &types.AppGenesis{
		Owner:   owner,
		Oracles: []common.Address{oracle},
		Accounts: []types.GenesisAccount{
			{Address: buyer, Balance: ether(5)},
			{Address: buyer2, Balance: ether(5)},
		},
	}
	for _, a := range airlines {
		g.Accounts = append(g.Accounts, types.GenesisAccount{Address: a, Balance: ether(50)})
	}
	s := New(db.NewState(), DefaultConfig(), func() time.Time { return blockTime }, cmtlog.NewNopLogger())
	require.NoError(t, s.InitGenesis(g))
	return s
}

// registerFunded registers airlines[:n] through the bootstrap path and funds
// the first funded of them to the threshold.
func registerFunded(t *testing.T, s *Surety, n, funded int) {
	_, err := s.RegisterAirline(owner, airlines[0])
	require.NoError(t, err)
	_, err = s.FundAirline(airlines[0], ether(10))
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		res, err := s.RegisterAirline(airlines[0], airlines[i])
		require.NoError(t, err)
		require.NotNil(t, res.Registered)
		require.Nil(t, res.Vote)
	}
	for i := 1; i < funded; i++ {
		_, err = s.FundAirline(airlines[i], ether(10))
		require.NoError(t, err)
	}
}

func TestFirstAirlineOnlyByOwner(t *testing.T) {
	s := newTestSurety(t)
	_, err := s.RegisterAirline(airlines[1], airlines[0])
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	res, err := s.RegisterAirline(owner, airlines[0])
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Registered.Index)

	_, err = s.RegisterAirline(owner, airlines[1])
	require.ErrorIs(t, err, types.ErrNotAuthorized)
}

func TestRegisterRequiresOperationalCaller(t *testing.T) {
	s := newTestSurety(t)
	_, err := s.RegisterAirline(owner, airlines[0])
	require.NoError(t, err)

	_, err = s.RegisterAirline(airlines[0], airlines[1])
	require.ErrorIs(t, err, types.ErrNotOperational)

	_, err = s.FundAirline(airlines[0], ether(10))
	require.NoError(t, err)
	_, err = s.RegisterAirline(airlines[0], airlines[1])
	require.NoError(t, err)

	_, err = s.RegisterAirline(airlines[0], airlines[1])
	require.ErrorIs(t, err, types.ErrAlreadyRegistered)
}

func TestRegisterByConsensus(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 5, 4)
	candidate := airlines[5]

	res, err := s.RegisterAirline(airlines[0], candidate)
	require.NoError(t, err)
	require.Nil(t, res.Registered)
	require.Equal(t, uint64(1), res.Vote.Votes)
	require.Equal(t, uint64(2), res.Vote.Required)

	ok, err := s.Ledger().IsAirlineRegistered(candidate)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.RegisterAirline(airlines[0], candidate)
	require.ErrorIs(t, err, types.ErrAlreadyVoted)

	// the fifth airline is registered but unfunded
	_, err = s.RegisterAirline(airlines[4], candidate)
	require.ErrorIs(t, err, types.ErrNotOperational)

	res, err = s.RegisterAirline(airlines[1], candidate)
	require.NoError(t, err)
	require.NotNil(t, res.Registered)
	require.Equal(t, uint64(2), res.Registered.Votes)
	require.Equal(t, uint64(5), res.Registered.Index)

	count, err := s.Votes().VoteCount(consensus.ActionRegisterAirline, candidate)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestFundingBelowThreshold(t *testing.T) {
	s := newTestSurety(t)
	_, err := s.RegisterAirline(owner, airlines[0])
	require.NoError(t, err)

	ev, err := s.FundAirline(airlines[0], ether(9))
	require.NoError(t, err)
	require.False(t, ev.Operational)

	status, err := s.AirlineStatus(airlines[0])
	require.NoError(t, err)
	require.True(t, status.Registered)
	require.False(t, status.Operational)

	ev, err = s.FundAirline(airlines[0], ether(1))
	require.NoError(t, err)
	require.True(t, ev.Operational)
	require.Equal(t, ether(10), ev.Funded)

	treasury, err := s.Ledger().Treasury()
	require.NoError(t, err)
	require.Equal(t, ether(10), treasury)
	bal, err := s.Ledger().Balance(airlines[0])
	require.NoError(t, err)
	require.Equal(t, ether(40), bal)
}

func TestFundingRejected(t *testing.T) {
	s := newTestSurety(t)
	_, err := s.FundAirline(airlines[0], ether(10))
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	_, err = s.RegisterAirline(owner, airlines[0])
	require.NoError(t, err)
	_, err = s.FundAirline(airlines[0], big.NewInt(0))
	require.ErrorIs(t, err, types.ErrValueOutOfBounds)
	_, err = s.FundAirline(airlines[0], ether(51))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestRegisterFlight(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 2, 1)

	_, err := s.RegisterFlight(airlines[1], airlines[1], "ND1309", future)
	require.ErrorIs(t, err, types.ErrNotOperational)
	_, err = s.RegisterFlight(airlines[0], airlines[1], "ND1309", future)
	require.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = s.RegisterFlight(airlines[0], airlines[0], "", future)
	require.ErrorIs(t, err, types.ErrValueOutOfBounds)
	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1309", uint64(blockTime.Unix()))
	require.ErrorIs(t, err, types.ErrInvalidTiming)

	ev, err := s.RegisterFlight(airlines[0], airlines[0], "ND1309", future)
	require.NoError(t, err)
	require.Equal(t, types.FlightStatusUnknown, ev.Status)

	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1309", future)
	require.ErrorIs(t, err, types.ErrAlreadyRegistered)

	flights, err := s.AvailableFlights()
	require.NoError(t, err)
	require.Len(t, flights, 1)
	require.Equal(t, ev.Key, flights[0].Key)
}

func TestBuyInsurance(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 1, 1)

	_, err := s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1309", future)
	require.NoError(t, err)

	_, err = s.Buy(buyer, airlines[0], "ND1309", future, ether(2))
	require.ErrorIs(t, err, types.ErrValueOutOfBounds)
	_, err = s.Buy(buyer, airlines[0], "ND1309", future, big.NewInt(0))
	require.ErrorIs(t, err, types.ErrValueOutOfBounds)

	ev, err := s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.NoError(t, err)
	require.Equal(t, ether(1), ev.Amount)

	_, err = s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.ErrorIs(t, err, types.ErrAlreadyPurchased)

	p, err := s.GetPolicy(buyer, airlines[0], "ND1309", future)
	require.NoError(t, err)
	require.Equal(t, ether(1), p.Premium)
	require.False(t, p.Claimed)

	bal, err := s.Ledger().Balance(buyer)
	require.NoError(t, err)
	require.Equal(t, ether(4), bal)
}

func TestLateAirlineCreditsAndWithdraw(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 1, 1)
	_, err := s.RegisterFlight(airlines[0], airlines[0], "ND1309", future)
	require.NoError(t, err)
	_, err = s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.NoError(t, err)
	_, err = s.Buy(buyer2, airlines[0], "ND1309", future, big.NewInt(1000))
	require.NoError(t, err)

	_, err = s.UpdateFlightStatus(buyer, airlines[0], "ND1309", future, types.FlightStatusLateAirline)
	require.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = s.UpdateFlightStatus(oracle, airlines[0], "ND1309", future, types.FlightStatusUnknown)
	require.ErrorIs(t, err, types.ErrValueOutOfBounds)

	res, err := s.UpdateFlightStatus(oracle, airlines[0], "ND1309", future, types.FlightStatusLateAirline)
	require.NoError(t, err)
	require.Len(t, res.Credited, 2)
	require.Equal(t, big.NewInt(1500), res.Credited[1].Amount)

	_, err = s.UpdateFlightStatus(oracle, airlines[0], "ND1309", future, types.FlightStatusOnTime)
	require.ErrorIs(t, err, types.ErrFlightSettled)
	_, err = s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.ErrorIs(t, err, types.ErrInvalidTiming)

	credit, err := s.Ledger().Credit(buyer)
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Div(ether(3), big.NewInt(2)), credit)

	ev, err := s.Withdraw(buyer)
	require.NoError(t, err)
	require.Equal(t, credit, ev.Amount)
	bal, err := s.Ledger().Balance(buyer)
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Add(ether(4), credit), bal)

	_, err = s.Withdraw(buyer)
	require.ErrorIs(t, err, types.ErrValueOutOfBounds)
}

func TestOnTimeCreditsNothing(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 1, 1)
	_, err := s.RegisterFlight(airlines[0], airlines[0], "ND1309", future)
	require.NoError(t, err)
	_, err = s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.NoError(t, err)

	res, err := s.UpdateFlightStatus(oracle, airlines[0], "ND1309", future, types.FlightStatusOnTime)
	require.NoError(t, err)
	require.Empty(t, res.Credited)
	_, err = s.Withdraw(buyer)
	require.ErrorIs(t, err, types.ErrValueOutOfBounds)
}

func TestFetchFlightStatus(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 1, 1)
	_, err := s.FetchFlightStatus(buyer, airlines[0], "ND1309", future)
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1309", future)
	require.NoError(t, err)
	for i := uint64(0); i < 2; i++ {
		ev, err := s.FetchFlightStatus(buyer, airlines[0], "ND1309", future)
		require.NoError(t, err)
		require.Equal(t, i, ev.Index)
		require.Equal(t, buyer, ev.Requester)
	}
}

type ledgerSnapshot struct {
	balance  *big.Int
	treasury *big.Int
	flights  []*types.Flight
}

func snapshot(t *testing.T, s *Surety, insuree common.Address) ledgerSnapshot {
	bal, err := s.Ledger().Balance(insuree)
	require.NoError(t, err)
	treasury, err := s.Ledger().Treasury()
	require.NoError(t, err)
	flights, err := s.AvailableFlights()
	require.NoError(t, err)
	return ledgerSnapshot{balance: bal, treasury: treasury, flights: flights}
}

func TestPauseBlocksMutations(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 1, 1)
	_, err := s.RegisterFlight(airlines[0], airlines[0], "ND1309", future)
	require.NoError(t, err)
	before := snapshot(t, s, buyer)

	app, err := s.Gate(types.SurfaceApp)
	require.NoError(t, err)
	_, err = app.SetPaused(owner, true)
	require.NoError(t, err)

	_, err = s.RegisterAirline(airlines[0], airlines[1])
	require.ErrorIs(t, err, types.ErrPaused)
	_, err = s.FundAirline(airlines[0], ether(1))
	require.ErrorIs(t, err, types.ErrPaused)
	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1310", future)
	require.ErrorIs(t, err, types.ErrPaused)
	_, err = s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.ErrorIs(t, err, types.ErrPaused)
	_, err = s.Withdraw(buyer)
	require.ErrorIs(t, err, types.ErrPaused)

	_, err = app.SetPaused(owner, false)
	require.NoError(t, err)
	require.Equal(t, before, snapshot(t, s, buyer))

	_, err = s.Buy(buyer, airlines[0], "ND1309", future, ether(1))
	require.NoError(t, err)
	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1310", future)
	require.NoError(t, err)
	after := snapshot(t, s, buyer)
	require.Equal(t, ether(4), after.balance)
	require.Equal(t, ether(11), after.treasury)
	require.Len(t, after.flights, 2)

	data, err := s.Gate(types.SurfaceData)
	require.NoError(t, err)
	_, err = data.SetPaused(owner, true)
	require.NoError(t, err)
	_, err = s.Buy(buyer2, airlines[0], "ND1309", future, ether(1))
	require.ErrorIs(t, err, types.ErrPaused)
	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1311", future)
	require.ErrorIs(t, err, types.ErrPaused)

	_, err = data.SetPaused(owner, false)
	require.NoError(t, err)
	require.Equal(t, after, snapshot(t, s, buyer))
	_, err = s.Buy(buyer2, airlines[0], "ND1309", future, ether(1))
	require.NoError(t, err)
	_, err = s.RegisterFlight(airlines[0], airlines[0], "ND1311", future)
	require.NoError(t, err)
	bal, err := s.Ledger().Balance(buyer2)
	require.NoError(t, err)
	require.Equal(t, ether(4), bal)
}

func TestRegisterByConsensusOddCount(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 5, 5)
	candidate := airlines[5]

	for i := 0; i < 2; i++ {
		res, err := s.RegisterAirline(airlines[i], candidate)
		require.NoError(t, err)
		require.Nil(t, res.Registered)
		require.Equal(t, uint64(i+1), res.Vote.Votes)
		require.Equal(t, uint64(3), res.Vote.Required)
	}
	ok, err := s.Ledger().IsAirlineRegistered(candidate)
	require.NoError(t, err)
	require.False(t, ok)

	res, err := s.RegisterAirline(airlines[2], candidate)
	require.NoError(t, err)
	require.NotNil(t, res.Registered)
	require.Equal(t, uint64(3), res.Registered.Votes)
	ok, err = s.Ledger().IsAirlineRegistered(candidate)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDuplicateVoteKeepsMinimum(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 5, 4)
	candidate := airlines[5]

	res, err := s.RegisterAirline(airlines[0], candidate)
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.Vote.Required)

	// a fifth operational airline would raise the minimum to 3
	_, err = s.FundAirline(airlines[4], ether(10))
	require.NoError(t, err)
	_, err = s.RegisterAirline(airlines[0], candidate)
	require.ErrorIs(t, err, types.ErrAlreadyVoted)

	m, err := s.Votes().MinimumVotes(consensus.ActionRegisterAirline)
	require.NoError(t, err)
	require.Equal(t, uint64(2), m)
}

func TestWithdrawKeepsCreditOnShortTreasury(t *testing.T) {
	s := newTestSurety(t)
	_, err := s.Ledger().AddCredit(AppAddress, buyer, ether(3))
	require.NoError(t, err)

	_, err = s.Withdraw(buyer)
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	credit, err := s.Ledger().Credit(buyer)
	require.NoError(t, err)
	require.Equal(t, ether(3), credit)
	bal, err := s.Ledger().Balance(buyer)
	require.NoError(t, err)
	require.Equal(t, ether(5), bal)
}

func TestResetAirlineVotes(t *testing.T) {
	s := newTestSurety(t)
	registerFunded(t, s, 5, 5)
	candidate := airlines[5]

	_, err := s.ResetAirlineVotes(owner, candidate)
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.RegisterAirline(airlines[0], candidate)
	require.NoError(t, err)
	_, err = s.RegisterAirline(airlines[1], candidate)
	require.NoError(t, err)

	_, err = s.ResetAirlineVotes(airlines[0], candidate)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	ev, err := s.ResetAirlineVotes(owner, candidate)
	require.NoError(t, err)
	require.Equal(t, uint64(2), ev.Votes)
	require.Equal(t, candidate, ev.Candidate)

	count, err := s.Votes().VoteCount(consensus.ActionRegisterAirline, candidate)
	require.NoError(t, err)
	require.Zero(t, count)
	voted, err := s.Votes().HasVoted(consensus.ActionRegisterAirline, candidate, airlines[0])
	require.NoError(t, err)
	require.False(t, voted)

	// the abandoned voters may vote again from scratch
	res, err := s.RegisterAirline(airlines[0], candidate)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Vote.Votes)
	require.Nil(t, res.Registered)
}
