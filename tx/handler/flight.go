package handler

import (
	"context"

	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type RegisterFlightTxHandler struct {
	logger cmtlog.Logger
}

func NewRegisterFlightTxHandler(logger cmtlog.Logger) (h *RegisterFlightTxHandler) {
	logger = logger.With("module", "registerFlightTx")
	h = &RegisterFlightTxHandler{
		logger: logger,
	}
	return
}

func (h *RegisterFlightTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "RegisterFlightTx", err1), nil
}

func (h *RegisterFlightTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	wtx := btx.Tx.(*tx.RegisterFlightTx)
	event, err := s.RegisterFlight(btx.Sender, wtx.Airline, wtx.Code, wtx.Timestamp)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventFlight(types.EventFlightRegisteredType, event)},
	}
	return
}

type FetchFlightStatusTxHandler struct {
	logger cmtlog.Logger
}

func NewFetchFlightStatusTxHandler(logger cmtlog.Logger) (h *FetchFlightStatusTxHandler) {
	logger = logger.With("module", "fetchFlightStatusTx")
	h = &FetchFlightStatusTxHandler{
		logger: logger,
	}
	return
}

func (h *FetchFlightStatusTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "FetchFlightStatusTx", err1), nil
}

func (h *FetchFlightStatusTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	wtx := btx.Tx.(*tx.FetchFlightStatusTx)
	event, err := s.FetchFlightStatus(btx.Sender, wtx.Airline, wtx.Code, wtx.Timestamp)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventFlight(types.EventOracleRequestType, event)},
	}
	return
}

type UpdateFlightStatusTxHandler struct {
	logger cmtlog.Logger
}

func NewUpdateFlightStatusTxHandler(logger cmtlog.Logger) (h *UpdateFlightStatusTxHandler) {
	logger = logger.With("module", "updateFlightStatusTx")
	h = &UpdateFlightStatusTxHandler{
		logger: logger,
	}
	return
}

func (h *UpdateFlightStatusTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "UpdateFlightStatusTx", err1), nil
}

func (h *UpdateFlightStatusTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	wtx := btx.Tx.(*tx.UpdateFlightStatusTx)
	r, err := s.UpdateFlightStatus(btx.Sender, wtx.Airline, wtx.Code, wtx.Timestamp, wtx.Status)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventFlight(types.EventFlightStatusType, r.Status)},
	}
	for _, credited := range r.Credited {
		res.Events = append(res.Events, types.EncodeEventPolicy(types.EventInsureeCreditedType, credited))
	}
	return
}
