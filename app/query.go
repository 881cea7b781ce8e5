package app

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/calehh/surety-app/consensus"
	"github.com/calehh/surety-app/gate"
	"github.com/calehh/surety-app/state"
	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	QueryCodeNotFound uint32 = 1
	QueryCodeInvalid  uint32 = 2
	QueryCodeUnknown  uint32 = 404
)

func (app *SuretyApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = QueryCodeUnknown
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

func jsonResult(res *abcitypes.ResponseQuery, logger cmtlog.Logger, height uint64, v any, err error) {
	if err != nil {
		logger.Error("query fail", "err", err)
		res.Code = QueryCodeNotFound
		res.Log = err.Error()
		return
	}
	res.Value, err = json.Marshal(v)
	if err != nil {
		res.Code = QueryCodeInvalid
		res.Log = err.Error()
		return
	}
	res.Height = int64(height)
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// AccountResult is an account with its pending insurance credit.
type AccountResult struct {
	Account *state.Account `json:"account"`
	Credit  *big.Int       `json:"credit"`
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.AddressLength {
		res.Code = QueryCodeInvalid
		return
	}
	l, height := q.db.Ledger()
	addr := common.BytesToAddress(req.Data)
	a, err := l.State().Account(addr)
	if err != nil {
		jsonResult(res, q.logger, height, nil, err)
		return res, nil
	}
	credit, err := l.Credit(addr)
	jsonResult(res, q.logger, height, &AccountResult{Account: a, Credit: credit}, err)
	return res, nil
}

type AirlineQuerier struct {
	db     *state.StateDB
	cfg    surety.Config
	logger cmtlog.Logger
}

func NewAirlineQuerier(db *state.StateDB, cfg surety.Config, logger cmtlog.Logger) (q *AirlineQuerier) {
	q = &AirlineQuerier{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
	return
}

// AirlineResult lists airlines together with their operational state.
type AirlineResult struct {
	Airlines    []*surety.AirlineStatus `json:"airlines"`
	Registered  uint64                  `json:"registered"`
	Operational uint64                  `json:"operational"`
}

func (q *AirlineQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	l, height := q.db.Ledger()
	if len(req.Data) == common.AddressLength {
		s := surety.New(l.State(), q.cfg, time.Now, q.logger)
		status, err := s.AirlineStatus(common.BytesToAddress(req.Data))
		jsonResult(res, q.logger, height, status, err)
		return res, nil
	} else if len(req.Data) != 0 {
		res.Code = QueryCodeInvalid
		return
	}
	result := &AirlineResult{}
	airlines, err := l.Airlines()
	if err == nil {
		for _, a := range airlines {
			result.Airlines = append(result.Airlines, &surety.AirlineStatus{
				Address:     a.Address,
				Registered:  a.Registered,
				Operational: a.Operational(q.cfg.FundingThreshold),
				Funded:      a.FundedAmount,
				Index:       a.Index,
			})
		}
		result.Registered, err = l.RegisteredAirlineCount()
	}
	if err == nil {
		result.Operational, err = l.OperationalAirlineCount()
	}
	jsonResult(res, q.logger, height, result, err)
	return res, nil
}

type FlightQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewFlightQuerier(db *state.StateDB, logger cmtlog.Logger) (q *FlightQuerier) {
	q = &FlightQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query returns one flight by key, or every registered flight in
// registration order, settled ones included.
func (q *FlightQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	l, height := q.db.Ledger()
	switch len(req.Data) {
	case 0:
		flights, err := l.AvailableFlights()
		if flights == nil {
			flights = []*types.Flight{}
		}
		jsonResult(res, q.logger, height, flights, err)
	case common.HashLength:
		f, err := l.GetFlight(common.BytesToHash(req.Data))
		if err == nil && f == nil {
			err = types.ErrNotFound
		}
		jsonResult(res, q.logger, height, f, err)
	default:
		res.Code = QueryCodeInvalid
	}
	return res, nil
}

type PolicyQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewPolicyQuerier(db *state.StateDB, logger cmtlog.Logger) (q *PolicyQuerier) {
	q = &PolicyQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query takes an insuree address, optionally preceded by a flight key.
func (q *PolicyQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	l, height := q.db.Ledger()
	switch len(req.Data) {
	case common.AddressLength:
		policies, err := l.InsureePolicies(common.BytesToAddress(req.Data))
		if policies == nil {
			policies = []*types.Policy{}
		}
		jsonResult(res, q.logger, height, policies, err)
	case common.HashLength + common.AddressLength:
		flight := common.BytesToHash(req.Data[:common.HashLength])
		insuree := common.BytesToAddress(req.Data[common.HashLength:])
		p, err := l.GetPolicy(flight, insuree)
		if err == nil && p == nil {
			err = types.ErrNotFound
		}
		jsonResult(res, q.logger, height, p, err)
	default:
		res.Code = QueryCodeInvalid
	}
	return res, nil
}

type PausedQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewPausedQuerier(db *state.StateDB, logger cmtlog.Logger) (q *PausedQuerier) {
	q = &PausedQuerier{
		db:     db,
		logger: logger,
	}
	return
}

type PausedResult struct {
	Data bool `json:"data"`
	App  bool `json:"app"`
}

func (q *PausedQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	l, height := q.db.Ledger()
	result := &PausedResult{}
	result.Data, err = l.Gate().IsPaused()
	if err == nil {
		result.App, err = gate.New(l.State(), types.SurfaceApp).IsPaused()
	}
	jsonResult(res, q.logger, height, result, err)
	return res, nil
}

type VoteQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewVoteQuerier(db *state.StateDB, logger cmtlog.Logger) (q *VoteQuerier) {
	q = &VoteQuerier{
		db:     db,
		logger: logger,
	}
	return
}

type VoteResult struct {
	Candidate common.Address   `json:"candidate"`
	Votes     uint64           `json:"votes"`
	Minimum   uint64           `json:"minimum"`
	Voters    []common.Address `json:"voters"`
}

// Query reports the registration tally of a candidate airline.
func (q *VoteQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.AddressLength {
		res.Code = QueryCodeInvalid
		return
	}
	l, height := q.db.Ledger()
	votes := consensus.NewEngine(l.VoteStore(surety.AppAddress))
	result := &VoteResult{Candidate: common.BytesToAddress(req.Data), Voters: []common.Address{}}
	action := consensus.ActionRegisterAirline
	result.Votes, err = votes.VoteCount(action, result.Candidate)
	if err == nil {
		result.Minimum, err = votes.MinimumVotes(action)
	}
	if err == nil {
		var voters []common.Address
		voters, err = votes.Voters(action, result.Candidate)
		if voters != nil {
			result.Voters = voters
		}
	}
	jsonResult(res, q.logger, height, result, err)
	return res, nil
}
