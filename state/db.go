package state

import (
	"fmt"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

const treeCacheSize = 128

// StateDB owns the iavl tree and the last committed State. Blocks are built
// on a State returned by NewState and become visible through SetState.
type StateDB struct {
	mtx sync.RWMutex

	logger cmtlog.Logger
	tree   *iavl.MutableTree

	committed *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (*StateDB, error) {
	ldb, err := dbm.NewDB("surety", "goleveldb", dir)
	if err != nil {
		return nil, fmt.Errorf("open state db %v: %w", dir, err)
	}
	return openStateDB(ldb, logger)
}

// NewMemStateDB keeps the tree in memory.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return openStateDB(dbm.NewMemDB(), logger)
}

func openStateDB(ldb dbm.DB, logger cmtlog.Logger) (*StateDB, error) {
	logger = logger.With("module", "suretydb")
	tree := iavl.NewMutableTree(ldb, treeCacheSize, true, newTreeLogger(logger))
	version, err := tree.Load()
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	st := newState(tree, logger)
	if err = st.load(); err != nil {
		logger.Error("load committed state fail", "version", version, "err", err)
		return nil, err
	}
	logger.Info("state db loaded", "version", version, "height", st.header.Height)
	return &StateDB{
		logger:    logger,
		tree:      tree,
		committed: st,
	}, nil
}

func (db *StateDB) Close() error {
	return db.tree.Close()
}

func (db *StateDB) Version() int64 {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.committed.dbVer
}

// Header returns a copy of the last committed header.
func (db *StateDB) Header() *StateHeader {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.committed.Header().Clone()
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.committed
}

// NewState starts the state of the next block.
func (db *StateDB) NewState() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.committed.nextState()
}

// SetState writes st as a new tree version and makes it the committed state.
func (db *StateDB) SetState(st *State) (common.Hash, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err := st.save()
	if err != nil {
		return common.Hash{}, err
	}
	db.committed = st
	return hash, nil
}

// GetAccount returns a copy of the committed account, nil when absent.
func (db *StateDB) GetAccount(addr common.Address) (*Account, uint64, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	acnt, err := db.committed.GetAccount(addr)
	if err != nil || acnt == nil {
		return acnt, db.committed.header.Height, err
	}
	return acnt.Clone(), db.committed.header.Height, nil
}

// Ledger is a read view of the committed state.
func (db *StateDB) Ledger() (l *Ledger, height uint64) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return NewLedger(db.committed.Clone()), db.committed.header.Height
}
