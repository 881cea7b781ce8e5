package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/surety-app/state"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnsupportedTx  = errors.New("unsupported tx")
	ErrNoPendingState = errors.New("no finalized block to commit")
)

func (app *SuretyApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.SuretyTx, err error) {
	btx, err = tx.UnmarshalSuretyTx(txDat)
	if err != nil {
		return
	}
	if _, ok := app.txHdlrs[btx.Type]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTx, btx.Type)
	}
	err = st.Verify(btx, allowNonceGap)
	return
}

func invalidTx(err error) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{
		Code:      types.CodeInvalidTx,
		Codespace: types.Codespace,
		Log:       err.Error(),
	}
}

func (app *SuretyApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: types.CodeOK}
	st := app.db.State().Clone()
	btx, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Info("parse tx fail", "err", err)
		res.Code = types.CodeInvalidTx
		res.Codespace = types.Codespace
		res.Log = err.Error()
		app.metrics.checkTotal.WithLabelValues("unknown", fmt.Sprint(res.Code)).Inc()
		return res, nil
	}
	app.logger.Debug("check tx", "type", btx.Type, "sender", btx.Sender.Hex(), "nonce", btx.Nonce)
	// a future nonce is only checked for format; its effects depend on the
	// transactions before it
	if check.Type == abcitypes.CheckTxType_New {
		acnt, err1 := st.Account(btx.Sender)
		if err1 == nil && acnt.Nonce == btx.Nonce {
			err = st.IncNonce(btx.Sender)
			if err != nil {
				return nil, err
			}
			res, err = app.txHdlrs[btx.Type].Check(ctx, app.rules(st, app.lastBlk.Time), btx)
			if err != nil {
				app.logger.Error("check tx fail", "err", err)
				res = &abcitypes.ResponseCheckTx{Code: types.CodeInternal, Codespace: types.Codespace, Log: err.Error()}
				err = nil
			}
		}
	}
	app.metrics.checkTotal.WithLabelValues(btx.Type.String(), fmt.Sprint(res.Code)).Inc()
	return
}

// selectTxs keeps, in order, the transactions that decode, carry a valid
// signature and follow their sender's nonce sequence.
func (app *SuretyApp) selectTxs(txs [][]byte, maxBytes int64) (selected [][]byte, rejected int) {
	st := app.db.NewState()
	var size int64
	for _, stx := range txs {
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Debug("drop tx", "err", err)
			rejected += 1
			continue
		}
		if maxBytes > 0 && size+int64(len(stx)) > maxBytes {
			break
		}
		err = st.IncNonce(btx.Sender)
		if err != nil {
			rejected += 1
			continue
		}
		size += int64(len(stx))
		selected = append(selected, stx)
	}
	return
}

func (app *SuretyApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	txs, rejected := app.selectTxs(proposal.Txs, proposal.MaxTxBytes)
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(txs), "dropped", rejected)
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *SuretyApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	txs, rejected := app.selectTxs(proposal.Txs, 0)
	if rejected != 0 || len(txs) != len(proposal.Txs) {
		app.logger.Error("proposal rejected", "height", proposal.Height, "invalid", rejected)
		return res, nil
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	app.logger.Debug("proposal accepted", "height", proposal.Height)
	return res, nil
}

// deliverTx applies one transaction. The nonce is consumed by every
// well-formed transaction; its other effects are kept only on success.
func (app *SuretyApp) deliverTx(ctx context.Context, st *state.State, stx []byte, now time.Time) (res *abcitypes.ExecTxResult, next *state.State) {
	next = st
	btx, err := app.parseTx(st, stx, false)
	if err != nil {
		app.logger.Error("unexpected tx, parse fail", "err", err)
		res = invalidTx(err)
		app.metrics.txsTotal.WithLabelValues("unknown", fmt.Sprint(res.Code)).Inc()
		return
	}
	err = st.IncNonce(btx.Sender)
	if err != nil {
		app.logger.Error("increase nonce fail", "err", err)
		res = invalidTx(err)
		return
	}
	txSt := st.Clone()
	res, err = app.txHdlrs[btx.Type].Process(ctx, app.rules(txSt, now), btx)
	if err != nil {
		app.logger.Info("process tx fail", "type", btx.Type, "sender", btx.Sender.Hex(), "err", err)
		res = &abcitypes.ExecTxResult{
			Code:      types.ErrorCode(err),
			Codespace: types.Codespace,
			Log:       err.Error(),
		}
	} else {
		next = txSt
	}
	app.metrics.txsTotal.WithLabelValues(btx.Type.String(), fmt.Sprint(res.Code)).Inc()
	return
}

func (app *SuretyApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.db.NewState()
	st.SetTime(req.Time.Unix())
	res := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		res[i], st = app.deliverTx(ctx, st, stx, req.Time)
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	app.metrics.blockHeight.Set(float64(req.Height))
	app.metrics.blockTxs.Observe(float64(len(req.Txs)))
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *SuretyApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.metrics.commitsTotal.Inc()
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
