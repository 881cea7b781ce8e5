// Package consensus is a generic M-of-N vote primitive. A subject collects
// votes under an action until the configured minimum is reached. It knows
// nothing about what the action does.
package consensus

import (
	"errors"
	"fmt"

	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

type Action uint8

const (
	ActionUnknown         Action = 0
	ActionRegisterAirline Action = 1
)

func (a Action) String() string {
	switch a {
	case ActionRegisterAirline:
		return "register_airline"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

var ErrMinimumNotSet = errors.New("minimum votes not set")

type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

var (
	KeyMinimum = "c/m/%d"
	KeyTally   = "c/t/%d/%x"
	KeyVoter   = "c/v/%d/%x/%d"
	KeyRecord  = "c/r/%d/%x/%x"
)

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) getUint(key string) (n uint64, err error) {
	val, err := e.store.Get([]byte(key))
	if err != nil || val == nil {
		return
	}
	err = rlp.DecodeBytes(val, &n)
	return
}

func (e *Engine) setUint(key string, n uint64) error {
	val, err := rlp.EncodeToBytes(n)
	if err != nil {
		return err
	}
	return e.store.Set([]byte(key), val)
}

func (e *Engine) SetMinimumVotes(action Action, m uint64) error {
	if m == 0 {
		return fmt.Errorf("minimum votes for %v must be positive: %w", action, types.ErrValueOutOfBounds)
	}
	return e.setUint(fmt.Sprintf(KeyMinimum, action), m)
}

func (e *Engine) MinimumVotes(action Action) (uint64, error) {
	return e.getUint(fmt.Sprintf(KeyMinimum, action))
}

func (e *Engine) VoteCount(action Action, subject common.Address) (uint64, error) {
	return e.getUint(fmt.Sprintf(KeyTally, action, subject.Bytes()))
}

func (e *Engine) HasVoted(action Action, subject, voter common.Address) (bool, error) {
	val, err := e.store.Get([]byte(fmt.Sprintf(KeyRecord, action, subject.Bytes(), voter.Bytes())))
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

// Voters lists the voters for subject in the order their votes arrived.
func (e *Engine) Voters(action Action, subject common.Address) (voters []common.Address, err error) {
	n, err := e.VoteCount(action, subject)
	if err != nil {
		return
	}
	voters = make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		val, err := e.store.Get([]byte(fmt.Sprintf(KeyVoter, action, subject.Bytes(), i)))
		if err != nil {
			return nil, err
		}
		voters = append(voters, common.BytesToAddress(val))
	}
	return
}

// RegisterVote records voter's vote for subject. reached reports whether the
// tally satisfies the minimum after this vote.
func (e *Engine) RegisterVote(action Action, subject, voter common.Address) (reached bool, count uint64, err error) {
	m, err := e.MinimumVotes(action)
	if err != nil {
		return
	}
	if m == 0 {
		err = fmt.Errorf("%v: %w", action, ErrMinimumNotSet)
		return
	}
	voted, err := e.HasVoted(action, subject, voter)
	if err != nil {
		return
	}
	if voted {
		err = fmt.Errorf("%v already voted for %v under %v: %w", voter.Hex(), subject.Hex(), action, types.ErrAlreadyVoted)
		return
	}
	count, err = e.VoteCount(action, subject)
	if err != nil {
		return
	}
	err = e.store.Set([]byte(fmt.Sprintf(KeyRecord, action, subject.Bytes(), voter.Bytes())), []byte{1})
	if err != nil {
		return
	}
	err = e.store.Set([]byte(fmt.Sprintf(KeyVoter, action, subject.Bytes(), count)), voter.Bytes())
	if err != nil {
		return
	}
	count += 1
	err = e.setUint(fmt.Sprintf(KeyTally, action, subject.Bytes()), count)
	if err != nil {
		return
	}
	reached = count >= m
	return
}

func (e *Engine) IsConsensusAchieved(action Action, subject common.Address) (bool, error) {
	m, err := e.MinimumVotes(action)
	if err != nil {
		return false, err
	}
	if m == 0 {
		return false, nil
	}
	count, err := e.VoteCount(action, subject)
	if err != nil {
		return false, err
	}
	return count >= m, nil
}

// ResetConsensus clears the tally and every vote record for subject.
func (e *Engine) ResetConsensus(action Action, subject common.Address) error {
	voters, err := e.Voters(action, subject)
	if err != nil {
		return err
	}
	for i, voter := range voters {
		err = e.store.Delete([]byte(fmt.Sprintf(KeyRecord, action, subject.Bytes(), voter.Bytes())))
		if err != nil {
			return err
		}
		err = e.store.Delete([]byte(fmt.Sprintf(KeyVoter, action, subject.Bytes(), uint64(i))))
		if err != nil {
			return err
		}
	}
	return e.store.Delete([]byte(fmt.Sprintf(KeyTally, action, subject.Bytes())))
}
