package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/calehh/surety-app/state"
	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testChainId = "surety-test"

var genesisTime = time.Unix(1_700_000_000, 0)

type testUser struct {
	key   *ecdsa.PrivateKey
	addr  common.Address
	nonce uint64
}

func newTestUser(t *testing.T) *testUser {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &testUser{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// signTx signs a transaction with the user's next nonce.
func (u *testUser) signTx(t *testing.T, tp tx.SuretyTxType, value *big.Int, payload any) []byte {
	btx := &tx.SuretyTx{Type: tp, Nonce: u.nonce, Value: value, Tx: payload}
	require.NoError(t, btx.Sign([]byte(testChainId), u.key))
	u.nonce += 1
	dat, err := tx.MarshalSuretyTx(btx)
	require.NoError(t, err)
	return dat
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

type testNet struct {
	app     *SuretyApp
	height  int64
	now     time.Time
	owner   *testUser
	airline *testUser
	buyer   *testUser
	oracle  *testUser
}

func newTestNet(t *testing.T) *testNet {
	return newTestNetWith(t, newTestUser(t), newTestUser(t), newTestUser(t), newTestUser(t))
}

func newTestNetWith(t *testing.T, owner, airline, buyer, oracle *testUser) *testNet {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	n := &testNet{
		app:     NewSuretyAppWithDB(db, surety.DefaultConfig(), prometheus.NewRegistry(), cmtlog.NewNopLogger()),
		now:     genesisTime,
		owner:   owner,
		airline: airline,
		buyer:   buyer,
		oracle:  oracle,
	}
	t.Cleanup(n.app.Stop)
	first := n.airline.addr
	g := &types.AppGenesis{
		Owner:        n.owner.addr,
		FirstAirline: &first,
		Oracles:      []common.Address{n.oracle.addr},
		Accounts: []types.GenesisAccount{
			{Address: n.airline.addr, Balance: ether(20)},
			{Address: n.buyer.addr, Balance: ether(2)},
		},
	}
	dat, err := json.Marshal(g)
	require.NoError(t, err)
	res, err := n.app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       testChainId,
		Time:          genesisTime,
		AppStateBytes: dat,
	})
	require.NoError(t, err)
	require.Len(t, res.AppHash, 32)
	return n
}

func (n *testNet) block(t *testing.T, txs ...[]byte) []*abcitypes.ExecTxResult {
	ctx := context.Background()
	n.height += 1
	n.now = n.now.Add(5 * time.Second)
	res, err := n.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{
		Height: n.height,
		Time:   n.now,
		Txs:    txs,
	})
	require.NoError(t, err)
	_, err = n.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(t, err)
	require.Equal(t, res.AppHash, n.app.db.Header().Hash)
	return res.TxResults
}

func (n *testNet) query(t *testing.T, path string, data []byte, v any) *abcitypes.ResponseQuery {
	res, err := n.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(t, err)
	if v != nil && res.Code == 0 {
		require.NoError(t, json.Unmarshal(res.Value, v))
	}
	return res
}

func requireCodes(t *testing.T, res []*abcitypes.ExecTxResult, codes ...uint32) {
	require.Len(t, res, len(codes))
	for i, c := range codes {
		require.Equal(t, c, res[i].Code, "tx %d: %s", i, res[i].Log)
	}
}

func TestInsuranceLifecycle(t *testing.T) {
	n := newTestNet(t)
	flight := tx.FlightTx{Airline: n.airline.addr, Code: "ND1309", Timestamp: uint64(genesisTime.Unix()) + 3600}

	res := n.block(t,
		n.airline.signTx(t, tx.SuretyTxTypeFundAirline, ether(10), &tx.FundAirlineTx{}),
		n.airline.signTx(t, tx.SuretyTxTypeRegisterFlight, nil, &tx.RegisterFlightTx{FlightTx: flight}),
		n.buyer.signTx(t, tx.SuretyTxTypeBuy, ether(1), &tx.BuyTx{FlightTx: flight}),
	)
	requireCodes(t, res, types.CodeOK, types.CodeOK, types.CodeOK)
	require.Equal(t, types.EventAirlineFundedType, res[0].Events[0].Type)

	var flights []*types.Flight
	n.query(t, "/flights", nil, &flights)
	require.Len(t, flights, 1)
	key := types.FlightKey(n.airline.addr, flight.Code, flight.Timestamp)
	require.Equal(t, key, flights[0].Key)

	res = n.block(t,
		n.buyer.signTx(t, tx.SuretyTxTypeFetchFlightStatus, nil, &tx.FetchFlightStatusTx{FlightTx: flight}),
		n.oracle.signTx(t, tx.SuretyTxTypeUpdateFlightStatus, nil, &tx.UpdateFlightStatusTx{FlightTx: flight, Status: types.FlightStatusLateAirline}),
	)
	requireCodes(t, res, types.CodeOK, types.CodeOK)
	require.Equal(t, types.EventOracleRequestType, res[0].Events[0].Type)

	// settled flights stay listed
	flights = nil
	n.query(t, "/flights", nil, &flights)
	require.Len(t, flights, 1)
	require.Equal(t, types.FlightStatusLateAirline, flights[0].Status)

	var acnt AccountResult
	n.query(t, "/accounts", n.buyer.addr.Bytes(), &acnt)
	require.Equal(t, big.NewInt(params.Ether*3/2), acnt.Credit)

	res = n.block(t, n.buyer.signTx(t, tx.SuretyTxTypeWithdraw, nil, &tx.WithdrawTx{}))
	requireCodes(t, res, types.CodeOK)
	n.query(t, "/accounts", n.buyer.addr.Bytes(), &acnt)
	require.Equal(t, big.NewInt(params.Ether*5/2), acnt.Account.Balance)
	require.Equal(t, 0, acnt.Credit.Sign())

	var p types.Policy
	n.query(t, "/policies", append(key.Bytes(), n.buyer.addr.Bytes()...), &p)
	require.True(t, p.Claimed)
}

func TestFailedTxKeepsNonceOnly(t *testing.T) {
	n := newTestNet(t)
	flight := tx.FlightTx{Airline: n.airline.addr, Code: "ND1310", Timestamp: uint64(genesisTime.Unix()) + 3600}
	n.block(t,
		n.airline.signTx(t, tx.SuretyTxTypeFundAirline, ether(10), &tx.FundAirlineTx{}),
		n.airline.signTx(t, tx.SuretyTxTypeRegisterFlight, nil, &tx.RegisterFlightTx{FlightTx: flight}),
	)

	res := n.block(t,
		n.buyer.signTx(t, tx.SuretyTxTypeBuy, ether(1), &tx.BuyTx{FlightTx: flight}),
		n.buyer.signTx(t, tx.SuretyTxTypeBuy, ether(1), &tx.BuyTx{FlightTx: flight}),
		n.buyer.signTx(t, tx.SuretyTxTypeBuy, ether(2), &tx.BuyTx{FlightTx: flight}),
		n.buyer.signTx(t, tx.SuretyTxTypeBuy, ether(1), &tx.BuyTx{FlightTx: flight}),
	)
	requireCodes(t, res, types.CodeOK, types.CodeAlreadyPurchased, types.CodeValueOutOfBounds, types.CodeAlreadyPurchased)
	require.Equal(t, types.Codespace, res[1].Codespace)

	var acnt AccountResult
	n.query(t, "/accounts", n.buyer.addr.Bytes(), &acnt)
	require.Equal(t, uint64(4), acnt.Account.Nonce)
	require.Equal(t, ether(1), acnt.Account.Balance)

	// replayed nonce
	n.buyer.nonce = 0
	res = n.block(t, n.buyer.signTx(t, tx.SuretyTxTypeWithdraw, nil, &tx.WithdrawTx{}))
	requireCodes(t, res, types.CodeInvalidTx)
}

func TestGateTxs(t *testing.T) {
	n := newTestNet(t)
	res := n.block(t,
		n.buyer.signTx(t, tx.SuretyTxTypeSetPaused, nil, &tx.SetPausedTx{Surface: types.SurfaceApp, Paused: true}),
		n.owner.signTx(t, tx.SuretyTxTypeSetPaused, nil, &tx.SetPausedTx{Surface: types.SurfaceApp, Paused: true}),
		n.airline.signTx(t, tx.SuretyTxTypeFundAirline, ether(10), &tx.FundAirlineTx{}),
	)
	requireCodes(t, res, types.CodeNotAuthorized, types.CodeOK, types.CodePaused)

	var paused PausedResult
	n.query(t, "/paused", nil, &paused)
	require.True(t, paused.App)
	require.False(t, paused.Data)
}

func TestRegistrationQueries(t *testing.T) {
	n := newTestNet(t)
	second := newTestUser(t)
	res := n.block(t,
		n.airline.signTx(t, tx.SuretyTxTypeFundAirline, ether(10), &tx.FundAirlineTx{}),
		n.airline.signTx(t, tx.SuretyTxTypeRegisterAirline, nil, &tx.RegisterAirlineTx{Airline: second.addr}),
	)
	requireCodes(t, res, types.CodeOK, types.CodeOK)

	var airlines AirlineResult
	n.query(t, "/airlines", nil, &airlines)
	require.Equal(t, uint64(2), airlines.Registered)
	require.Equal(t, uint64(1), airlines.Operational)
	require.Len(t, airlines.Airlines, 2)

	var status surety.AirlineStatus
	n.query(t, "/airlines", second.addr.Bytes(), &status)
	require.True(t, status.Registered)
	require.False(t, status.Operational)

	var votes VoteResult
	n.query(t, "/votes", second.addr.Bytes(), &votes)
	require.Equal(t, second.addr, votes.Candidate)
	require.Zero(t, votes.Votes)

	res = n.block(t,
		n.airline.signTx(t, tx.SuretyTxTypeResetAirlineVotes, nil, &tx.ResetAirlineVotesTx{Airline: second.addr}),
		n.owner.signTx(t, tx.SuretyTxTypeResetAirlineVotes, nil, &tx.ResetAirlineVotesTx{Airline: second.addr}),
	)
	requireCodes(t, res, types.CodeNotAuthorized, types.CodeNotFound)

	require.Equal(t, QueryCodeUnknown, n.query(t, "/proposals", nil, nil).Code)
	require.Equal(t, QueryCodeInvalid, n.query(t, "/accounts", []byte{1, 2}, nil).Code)
	require.Equal(t, QueryCodeNotFound, n.query(t, "/flights", make([]byte, 32), nil).Code)
}

func TestProposalFiltering(t *testing.T) {
	n := newTestNet(t)
	ctx := context.Background()
	good := n.airline.signTx(t, tx.SuretyTxTypeFundAirline, ether(10), &tx.FundAirlineTx{})
	gap := n.buyer.signTx(t, tx.SuretyTxTypeWithdraw, nil, &tx.WithdrawTx{})
	n.buyer.nonce = 5
	future := n.buyer.signTx(t, tx.SuretyTxTypeWithdraw, nil, &tx.WithdrawTx{})

	prep, err := n.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{
		Height:     1,
		MaxTxBytes: 1 << 20,
		Txs:        [][]byte{good, []byte("garbage"), future, gap},
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{good, gap}, prep.Txs)

	proc, err := n.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: 1, Txs: prep.Txs})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)

	proc, err = n.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: 1, Txs: [][]byte{future}})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	check, err := n.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: future, Type: abcitypes.CheckTxType_New})
	require.NoError(t, err)
	require.Equal(t, types.CodeOK, check.Code)

	check, err = n.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: []byte("garbage"), Type: abcitypes.CheckTxType_New})
	require.NoError(t, err)
	require.Equal(t, types.CodeInvalidTx, check.Code)
}

func TestDeterministicAppHash(t *testing.T) {
	owner, airline, buyer, oracle := newTestUser(t), newTestUser(t), newTestUser(t), newTestUser(t)
	a := newTestNetWith(t, owner, airline, buyer, oracle)
	b := newTestNetWith(t, owner, airline, buyer, oracle)
	require.Equal(t, a.app.db.Header().Hash, b.app.db.Header().Hash)

	fund := airline.signTx(t, tx.SuretyTxTypeFundAirline, ether(10), &tx.FundAirlineTx{})
	withdraw := buyer.signTx(t, tx.SuretyTxTypeWithdraw, nil, &tx.WithdrawTx{})
	resA := a.block(t, fund, withdraw)
	resB := b.block(t, fund, withdraw)
	requireCodes(t, resA, types.CodeOK, types.CodeValueOutOfBounds)
	require.Equal(t, resA, resB)
	require.Equal(t, a.app.db.Header().Hash, b.app.db.Header().Hash)
	require.NotEqual(t, common.Hash{}, common.BytesToHash(a.app.db.Header().Hash))
}
