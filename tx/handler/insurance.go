package handler

import (
	"context"

	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type BuyTxHandler struct {
	logger cmtlog.Logger
}

func NewBuyTxHandler(logger cmtlog.Logger) (h *BuyTxHandler) {
	logger = logger.With("module", "buyTx")
	h = &BuyTxHandler{
		logger: logger,
	}
	return
}

func (h *BuyTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "BuyTx", err1), nil
}

func (h *BuyTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	wtx := btx.Tx.(*tx.BuyTx)
	event, err := s.Buy(btx.Sender, wtx.Airline, wtx.Code, wtx.Timestamp, btx.Amount())
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventPolicy(types.EventPolicyPurchasedType, event)},
	}
	return
}

type WithdrawTxHandler struct {
	logger cmtlog.Logger
}

func NewWithdrawTxHandler(logger cmtlog.Logger) (h *WithdrawTxHandler) {
	logger = logger.With("module", "withdrawTx")
	h = &WithdrawTxHandler{
		logger: logger,
	}
	return
}

func (h *WithdrawTxHandler) Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error) {
	_, err1 := h.Process(ctx, s, btx)
	return checkResult(h.logger, "WithdrawTx", err1), nil
}

func (h *WithdrawTxHandler) Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error) {
	err = requireNoValue(btx)
	if err != nil {
		return
	}
	event, err := s.Withdraw(btx.Sender)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{types.EncodeEventPolicy(types.EventWithdrawalType, event)},
	}
	return
}
