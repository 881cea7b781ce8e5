package handler

import (
	"context"

	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type SetPausedTxHandler struct {
	logger cmtlog.Logger
}

func NewSetPausedTxHandler(logger cmtlog.Logger) (h *SetPausedTxHandler) {
	logger = logger.With("module", "setPausedTx")
	h = &SetPausedTxHandler{
		logger: logger,
	}
	return
}

func (h *SetPausedTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "SetPausedTx", err1), nil
}

func (h *SetPausedTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	wtx := btx.Tx.(*tx.SetPausedTx)
	g, err := s.Gate(wtx.Surface)
	if err != nil {
		return nil, err
	}
	event, err := g.SetPaused(btx.Sender, wtx.Paused)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		h.logger.Info("operating status changed", "surface", event.Surface, "paused", event.Paused)
		res.Events = []abcitypes.Event{types.EncodeEventOperatingStatus(event)}
	}
	return
}

type AuthorizeCallerTxHandler struct {
	logger cmtlog.Logger
}

func NewAuthorizeCallerTxHandler(logger cmtlog.Logger) (h *AuthorizeCallerTxHandler) {
	logger = logger.With("module", "authorizeCallerTx")
	h = &AuthorizeCallerTxHandler{
		logger: logger,
	}
	return
}

func (h *AuthorizeCallerTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "AuthorizeCallerTx", err1), nil
}

func (h *AuthorizeCallerTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	wtx := btx.Tx.(*tx.AuthorizeCallerTx)
	g, err := s.Gate(wtx.Surface)
	if err != nil {
		return nil, err
	}
	var event *types.EventCallerAuthorized
	if wtx.Authorized {
		event, err = g.AuthorizeCaller(btx.Sender, wtx.Caller)
	} else {
		event, err = g.DeauthorizeCaller(btx.Sender, wtx.Caller)
	}
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventCallerAuthorized(event)},
	}
	return
}
