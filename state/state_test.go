package state

import (
	"math/big"
	"testing"

	"github.com/calehh/surety-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

var (
	owner   = common.HexToAddress("0x3000000000000000000000000000000000000001")
	rules   = common.HexToAddress("0x3000000000000000000000000000000000000002")
	airline = common.HexToAddress("0x3000000000000000000000000000000000000003")
	insuree = common.HexToAddress("0x3000000000000000000000000000000000000004")

	threshold = new(big.Int).Mul(big.NewInt(10), big.NewInt(params.Ether))
)

func newTestDB(t *testing.T) *StateDB {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestLedger(t *testing.T) *Ledger {
	db := newTestDB(t)
	l := NewLedger(db.NewState())
	require.NoError(t, l.Gate().Init(owner))
	_, err := l.Gate().AuthorizeCaller(owner, rules)
	require.NoError(t, err)
	return l
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

func TestCommitPersistsAndHashes(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	st.SetChainId("surety-test")
	require.NoError(t, st.AddBalance(insuree, ether(5)))

	h1, err := st.Update()
	require.NoError(t, err)
	h2, err := db.SetState(st)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Equal(t, h2, db.State().Hash())

	acnt, height, err := db.GetAccount(insuree)
	require.NoError(t, err)
	require.Equal(t, uint64(0), height)
	require.Equal(t, ether(5), acnt.Balance)

	next := db.NewState()
	require.Equal(t, uint64(1), next.Height())
	require.Equal(t, "surety-test", next.Header().ChainId)
}

func TestCloneIsolatesWrites(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	require.NoError(t, st.Set([]byte("k"), []byte("v1")))

	c := st.Clone()
	require.NoError(t, c.Set([]byte("k"), []byte("v2")))
	require.NoError(t, c.Delete([]byte("k2")))

	val, err := st.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), val)
	val, err = c.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), val)
}

func TestDeleteReachesTree(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	require.NoError(t, st.Set([]byte("k"), []byte("v")))
	_, err := st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)

	st = db.NewState()
	require.NoError(t, st.Delete([]byte("k")))
	val, err := st.Get([]byte("k"))
	require.NoError(t, err)
	require.Nil(t, val)
	_, err = st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)

	val, err = db.State().Get([]byte("k"))
	require.NoError(t, err)
	require.Nil(t, val)
}

func TestLedgerWritesRequireAuthorizedCaller(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.RegisterAirline(airline, airline)
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	a, err := l.RegisterAirline(rules, airline)
	require.NoError(t, err)
	require.Equal(t, uint64(0), a.Index)

	ok, err := l.IsAirlineRegistered(airline)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = l.RegisterAirline(rules, airline)
	require.ErrorIs(t, err, types.ErrAlreadyRegistered)
}

func TestLedgerPausedRejectsWrites(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Gate().SetPaused(owner, true)
	require.NoError(t, err)

	_, err = l.RegisterAirline(rules, airline)
	require.ErrorIs(t, err, types.ErrPaused)
	_, err = l.AddTreasury(rules, ether(1))
	require.ErrorIs(t, err, types.ErrPaused)
	err = l.VoteStore(rules).Set([]byte("x"), []byte{1})
	require.ErrorIs(t, err, types.ErrPaused)

	n, err := l.RegisteredAirlineCount()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestLedgerFundingTracksOperational(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.RegisterAirline(rules, airline)
	require.NoError(t, err)

	a, err := l.AddAirlineFunding(rules, airline, ether(9), threshold)
	require.NoError(t, err)
	require.False(t, a.Operational(threshold))
	n, err := l.OperationalAirlineCount()
	require.NoError(t, err)
	require.Zero(t, n)

	a, err = l.AddAirlineFunding(rules, airline, ether(1), threshold)
	require.NoError(t, err)
	require.True(t, a.Operational(threshold))
	n, err = l.OperationalAirlineCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	_, err = l.AddAirlineFunding(rules, airline, ether(1), threshold)
	require.NoError(t, err)
	n, err = l.OperationalAirlineCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	ops, err := l.OperationalAirlines(threshold)
	require.NoError(t, err)
	require.Len(t, ops, 1)
}

func TestLedgerFlightsAndPolicies(t *testing.T) {
	l := newTestLedger(t)
	f, err := l.RegisterFlight(rules, airline, "ND1309", 2000)
	require.NoError(t, err)
	require.Equal(t, types.FlightKey(airline, "ND1309", 2000), f.Key)

	_, err = l.RegisterFlight(rules, airline, "ND1309", 2000)
	require.ErrorIs(t, err, types.ErrAlreadyRegistered)
	_, err = l.RegisterFlight(rules, airline, "ND1310", 2000)
	require.NoError(t, err)

	flights, err := l.AvailableFlights()
	require.NoError(t, err)
	require.Len(t, flights, 2)
	require.Equal(t, "ND1309", flights[0].Code)
	require.Equal(t, "ND1310", flights[1].Code)

	_, err = l.AddPolicy(rules, insuree, f.Key, ether(1))
	require.NoError(t, err)
	_, err = l.AddPolicy(rules, insuree, f.Key, ether(1))
	require.ErrorIs(t, err, types.ErrAlreadyPurchased)

	policies, err := l.FlightPolicies(f.Key)
	require.NoError(t, err)
	require.Len(t, policies, 1)
	mine, err := l.InsureePolicies(insuree)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	p, err := l.SetPolicyClaimed(rules, insuree, f.Key, ether(1))
	require.NoError(t, err)
	require.True(t, p.Claimed)
	_, err = l.SetPolicyClaimed(rules, insuree, f.Key, ether(1))
	require.Error(t, err)
}

func TestLedgerCreditsAndTreasury(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.AddTreasury(rules, ether(2))
	require.NoError(t, err)
	_, err = l.SubTreasury(rules, ether(3))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	_, err = l.AddCredit(rules, insuree, big.NewInt(15))
	require.NoError(t, err)
	credit, err := l.TakeCredit(rules, insuree)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(15), credit)
	credit, err = l.Credit(insuree)
	require.NoError(t, err)
	require.Zero(t, credit.Sign())

	err = l.Debit(rules, insuree, big.NewInt(1))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	require.NoError(t, l.CreditAccount(rules, insuree, big.NewInt(7)))
	require.NoError(t, l.Debit(rules, insuree, big.NewInt(7)))
}

func TestOracleRequestIndex(t *testing.T) {
	l := newTestLedger(t)
	for i := uint64(0); i < 3; i++ {
		idx, err := l.NextOracleRequest(rules)
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
}
