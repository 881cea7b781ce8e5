package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/calehh/surety-app/config"
	"github.com/calehh/surety-app/state"
	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/tx/handler"
	"github.com/calehh/surety-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
	Time   time.Time
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
	b.Time = blk.Time
}

var _ abcitypes.Application = &SuretyApp{}

type SuretyApp struct {
	cfg    surety.Config
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.SuretyTxType]handler.TxHandler
	queriers map[string]Querier
	metrics  appMetrics

	st *state.State
}

func NewSuretyApp(cfg *config.SuretyAppConfig, promRegistry prometheus.Registerer, logger cmtlog.Logger) (app *SuretyApp, err error) {
	sc, err := cfg.Surety()
	if err != nil {
		return nil, err
	}
	db, err := state.NewStateDB(filepath.Join(cfg.Home, "data"), logger)
	if err != nil {
		return nil, err
	}
	return NewSuretyAppWithDB(db, sc, promRegistry, logger), nil
}

func NewSuretyAppWithDB(db *state.StateDB, cfg surety.Config, promRegistry prometheus.Registerer, logger cmtlog.Logger) (app *SuretyApp) {
	logger = logger.With("module", "app")
	app = &SuretyApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		queriers: make(map[string]Querier),
	}
	app.metrics.init(promRegistry)
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *SuretyApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
		app.lastBlk.Time = blk.Time
	}
}

func (app *SuretyApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("surety app stopped")
}

func (app *SuretyApp) registerTxHandler() {
	app.txHdlrs = handler.Handlers(app.logger)
}

func (app *SuretyApp) registerQuerier() {
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
	app.queriers["/airlines/"] = NewAirlineQuerier(app.db, app.cfg, app.logger)
	app.queriers["/flights/"] = NewFlightQuerier(app.db, app.logger)
	app.queriers["/policies/"] = NewPolicyQuerier(app.db, app.logger)
	app.queriers["/paused/"] = NewPausedQuerier(app.db, app.logger)
	app.queriers["/votes/"] = NewVoteQuerier(app.db, app.logger)
}

// rules binds the business rules to st with t as the current time.
func (app *SuretyApp) rules(st *state.State, t time.Time) *surety.Surety {
	return surety.New(st, app.cfg, func() time.Time { return t }, app.logger)
}

func (app *SuretyApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	g, err := types.ParseAppGenesis(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse genesis fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetTime(chain.Time.Unix())
	err = app.rules(st, chain.Time).InitGenesis(g)
	if err != nil {
		app.logger.Error("InitChain load genesis fail", "err", err)
		return nil, err
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *SuretyApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		Data:             types.SuretyModuleName,
		AppVersion:       1,
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *SuretyApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *SuretyApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *SuretyApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{Result: abcitypes.ResponseApplySnapshotChunk_ABORT}, nil
}

func (app *SuretyApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *SuretyApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *SuretyApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{Result: abcitypes.ResponseOfferSnapshot_REJECT}, nil
}
