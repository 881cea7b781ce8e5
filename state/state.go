package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/calehh/surety-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState   = "s"
	KeyAccount = "a%x"
)

var (
	ErrTxNonceInvalid = errors.New("nonce invalid")
	ErrTxSigInvalid   = errors.New("signature invalid")
	errInvalidBalance = errors.New("invalid balance")
)

type entry struct {
	val     []byte
	deleted bool
}

// State is a write-back cache over the iavl tree. Nothing reaches the tree
// before Update.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *StateHeader
	cache  map[string]entry
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		header: new(StateHeader),
		cache:  make(map[string]entry),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		dbVer:  s.dbVer,
		header: s.header.Clone(),
		cache:  make(map[string]entry),
	}
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

// Clone copies the pending writes so a transaction can be applied and
// discarded on failure.
func (s *State) Clone() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		dbVer:  s.dbVer,
		header: s.header.Clone(),
		cache:  make(map[string]entry, len(s.cache)),
	}
	for k, v := range s.cache {
		n.cache[k] = v
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) Get(key []byte) (val []byte, err error) {
	if e, ok := s.cache[string(key)]; ok {
		if e.deleted {
			return nil, nil
		}
		return e.val, nil
	}
	val, err = s.db.Get(key)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return
}

func (s *State) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	s.cache[string(key)] = entry{val: append([]byte(nil), value...)}
	return nil
}

func (s *State) Delete(key []byte) error {
	s.cache[string(key)] = entry{deleted: true}
	return nil
}

func (s *State) getJSON(key string, v any) (found bool, err error) {
	val, err := s.Get([]byte(key))
	if err != nil || val == nil {
		return
	}
	err = json.Unmarshal(val, v)
	found = err == nil
	return
}

func (s *State) setJSON(key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set([]byte(key), val)
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

// Update flushes the cache into the working tree in key order and returns the
// resulting hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	val, err := json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	keys := make([]string, 0, len(s.cache))
	for k := range s.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := s.cache[k]
		if e.deleted {
			_, _, err = s.db.Remove([]byte(k))
		} else {
			_, err = s.db.Set([]byte(k), e.val)
		}
		if err != nil {
			return
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.cache = make(map[string]entry)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) SetTime(unix int64) {
	s.header.Time = unix
}

func (s *State) GetAccount(addr common.Address) (acnt *Account, err error) {
	acnt = new(Account)
	found, err := s.getJSON(fmt.Sprintf(KeyAccount, addr.Bytes()), acnt)
	if err != nil || !found {
		return nil, err
	}
	return
}

// Account returns the stored account or a fresh zero account.
func (s *State) Account(addr common.Address) (acnt *Account, err error) {
	acnt, err = s.GetAccount(addr)
	if err != nil {
		return
	}
	if acnt == nil {
		acnt = NewAccount(addr)
	}
	return
}

func (s *State) SetAccount(acnt *Account) error {
	return s.setJSON(fmt.Sprintf(KeyAccount, acnt.Address.Bytes()), acnt)
}

func (s *State) AddBalance(addr common.Address, amount *big.Int) (err error) {
	acnt, err := s.Account(addr)
	if err != nil {
		return
	}
	acnt.Balance = new(big.Int).Add(acnt.balance(), amount)
	return s.SetAccount(acnt)
}

// Verify checks the sender's nonce and signature. allowNonceGap admits
// future nonces for the mempool.
func (s *State) Verify(btx *tx.SuretyTx, allowNonceGap bool) (err error) {
	a, err := s.Account(btx.Sender)
	if err != nil {
		return
	}
	if !(a.Nonce == btx.Nonce || (allowNonceGap && a.Nonce < btx.Nonce)) {
		return fmt.Errorf("%w: want %v got %v", ErrTxNonceInvalid, a.Nonce, btx.Nonce)
	}
	err = btx.Verify([]byte(s.header.ChainId))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTxSigInvalid, err)
	}
	return
}

func (s *State) IncNonce(addr common.Address) (err error) {
	a, err := s.Account(addr)
	if err != nil {
		return
	}
	a.Nonce += 1
	return s.SetAccount(a)
}
