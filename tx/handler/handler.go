package handler

import (
	"context"
	"fmt"

	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type TxHandler interface {
	Check(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, s *surety.Surety, btx *tx.SuretyTx) (res *abcitypes.ExecTxResult, err error)
}

// Handlers builds the handler set keyed by transaction type.
func Handlers(logger cmtlog.Logger) map[tx.SuretyTxType]TxHandler {
	return map[tx.SuretyTxType]TxHandler{
		tx.SuretyTxTypeRegisterAirline:    NewRegisterAirlineTxHandler(logger),
		tx.SuretyTxTypeFundAirline:        NewFundAirlineTxHandler(logger),
		tx.SuretyTxTypeRegisterFlight:     NewRegisterFlightTxHandler(logger),
		tx.SuretyTxTypeFetchFlightStatus:  NewFetchFlightStatusTxHandler(logger),
		tx.SuretyTxTypeUpdateFlightStatus: NewUpdateFlightStatusTxHandler(logger),
		tx.SuretyTxTypeBuy:                NewBuyTxHandler(logger),
		tx.SuretyTxTypeWithdraw:           NewWithdrawTxHandler(logger),
		tx.SuretyTxTypeSetPaused:          NewSetPausedTxHandler(logger),
		tx.SuretyTxTypeAuthorizeCaller:    NewAuthorizeCallerTxHandler(logger),
		tx.SuretyTxTypeResetAirlineVotes:  NewResetAirlineVotesTxHandler(logger),
	}
}

func checkResult(logger cmtlog.Logger, name string, err error) *abcitypes.ResponseCheckTx {
	res := &abcitypes.ResponseCheckTx{Code: types.CodeOK}
	if err != nil {
		logger.Info("CheckTx "+name+" fail", "err", err)
		res.Code = types.ErrorCode(err)
		res.Codespace = types.Codespace
		res.Log = err.Error()
	}
	return res
}

func requireNoValue(btx *tx.SuretyTx) error {
	if btx.Amount().Sign() != 0 {
		return fmt.Errorf("%v with value %v: %w", btx.Type, btx.Amount(), types.ErrValueOutOfBounds)
	}
	return nil
}
