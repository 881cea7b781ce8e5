package handler

import (
	"context"

	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type RegisterAirlineTxHandler struct {
	logger cmtlog.Logger
}

func NewRegisterAirlineTxHandler(logger cmtlog.Logger) (h *RegisterAirlineTxHandler) {
	logger = logger.With("module", "registerAirlineTx")
	h = &RegisterAirlineTxHandler{
		logger: logger,
	}
	return
}

func (h *RegisterAirlineTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "RegisterAirlineTx", err1), nil
}

func (h *RegisterAirlineTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	wtx := btx.Tx.(*tx.RegisterAirlineTx)
	r, err := s.RegisterAirline(btx.Sender, wtx.Airline)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	if r.Vote != nil {
		res.Events = append(res.Events, types.EncodeEventAirlineVote(r.Vote))
	}
	if r.Registered != nil {
		res.Events = append(res.Events, types.EncodeEventAirlineRegistered(r.Registered))
	}
	return
}

type FundAirlineTxHandler struct {
	logger cmtlog.Logger
}

func NewFundAirlineTxHandler(logger cmtlog.Logger) (h *FundAirlineTxHandler) {
	logger = logger.With("module", "fundAirlineTx")
	h = &FundAirlineTxHandler{
		logger: logger,
	}
	return
}

func (h *FundAirlineTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "FundAirlineTx", err1), nil
}

func (h *FundAirlineTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	event, err := s.FundAirline(btx.Sender, btx.Amount())
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventAirlineFunded(event)},
	}
	return
}

type ResetAirlineVotesTxHandler struct {
	logger cmtlog.Logger
}

func NewResetAirlineVotesTxHandler(logger cmtlog.Logger) (h *ResetAirlineVotesTxHandler) {
	logger = logger.With("module", "resetAirlineVotesTx")
	h = &ResetAirlineVotesTxHandler{
		logger: logger,
	}
	return
}

func (h *ResetAirlineVotesTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "ResetAirlineVotesTx", err1), nil
}

func (h *ResetAirlineVotesTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	wtx := btx.Tx.(*tx.ResetAirlineVotesTx)
	event, err := s.ResetAirlineVotes(btx.Sender, wtx.Airline)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventVotesReset(event)},
	}
	return
}
