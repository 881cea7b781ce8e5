package state

import (
	"bytes"
)

// StateHeader is stored under KeyState and carries the committed app hash.
type StateHeader struct {
	ChainId  string `json:"chain_id"`
	Height   uint64 `json:"height"`
	Time     int64  `json:"time"`
	RootHash []byte `json:"root_hash"`
	Hash     []byte `json:"hash"`
}

func (h *StateHeader) Clone() *StateHeader {
	return &StateHeader{
		ChainId:  h.ChainId,
		Height:   h.Height,
		Time:     h.Time,
		RootHash: bytes.Clone(h.RootHash),
		Hash:     bytes.Clone(h.Hash),
	}
}
