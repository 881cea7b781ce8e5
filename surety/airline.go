package surety

import (
	"fmt"
	"math/big"

	"github.com/calehh/surety-app/consensus"
	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// RegisterResult carries the vote event when the call went through the
// consensus path and the registration event once the candidate is in.
type RegisterResult struct {
	Vote       *types.EventAirlineVote
	Registered *types.EventAirlineRegistered
}

func (s *Surety) RegisterAirline(caller, candidate common.Address) (res *RegisterResult, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	registered, err := s.ledger.IsAirlineRegistered(candidate)
	if err != nil {
		return
	}
	if registered {
		return nil, fmt.Errorf("airline %v: %w", candidate.Hex(), types.ErrAlreadyRegistered)
	}
	count, err := s.ledger.RegisteredAirlineCount()
	if err != nil {
		return
	}
	if count == 0 {
		err = s.gate.RequireOwner(caller)
		if err != nil {
			return
		}
	} else {
		err = s.requireOperationalAirline(caller)
		if err != nil {
			return
		}
	}

	res = new(RegisterResult)
	if count <= s.cfg.BootstrapAirlines {
		res.Registered, err = s.addAirline(caller, candidate, 0)
		if err != nil {
			return nil, err
		}
		return
	}

	voted, err := s.votes.HasVoted(consensus.ActionRegisterAirline, candidate, caller)
	if err != nil {
		return
	}
	if voted {
		return nil, fmt.Errorf("%v already voted for %v: %w", caller.Hex(), candidate.Hex(), types.ErrAlreadyVoted)
	}
	op, err := s.ledger.OperationalAirlineCount()
	if err != nil {
		return
	}
	m := (op + 1) / 2
	err = s.votes.SetMinimumVotes(consensus.ActionRegisterAirline, m)
	if err != nil {
		return nil, err
	}
	reached, votes, err := s.votes.RegisterVote(consensus.ActionRegisterAirline, candidate, caller)
	if err != nil {
		return nil, err
	}
	res.Vote = &types.EventAirlineVote{
		Candidate: candidate,
		Voter:     caller,
		Votes:     votes,
		Required:  m,
	}
	s.logger.Debug("airline vote", "candidate", candidate.Hex(), "voter", caller.Hex(), "votes", votes, "required", m)
	if !reached {
		return
	}
	res.Registered, err = s.addAirline(caller, candidate, votes)
	if err != nil {
		return nil, err
	}
	err = s.votes.ResetConsensus(consensus.ActionRegisterAirline, candidate)
	if err != nil {
		return nil, err
	}
	return
}

// ResetAirlineVotes lets the owner abandon a stalled registration vote.
func (s *Surety) ResetAirlineVotes(caller, candidate common.Address) (event *types.EventVotesReset, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	err = s.gate.RequireOwner(caller)
	if err != nil {
		return
	}
	votes, err := s.votes.VoteCount(consensus.ActionRegisterAirline, candidate)
	if err != nil {
		return
	}
	if votes == 0 {
		return nil, fmt.Errorf("no registration votes for %v: %w", candidate.Hex(), types.ErrNotFound)
	}
	err = s.votes.ResetConsensus(consensus.ActionRegisterAirline, candidate)
	if err != nil {
		return
	}
	s.logger.Info("airline votes reset", "candidate", candidate.Hex(), "votes", votes)
	return &types.EventVotesReset{
		Candidate: candidate,
		Account:   caller,
		Votes:     votes,
	}, nil
}

func (s *Surety) addAirline(registrar, candidate common.Address, votes uint64) (*types.EventAirlineRegistered, error) {
	a, err := s.ledger.RegisterAirline(AppAddress, candidate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("airline registered", "airline", candidate.Hex(), "index", a.Index, "votes", votes)
	return &types.EventAirlineRegistered{
		Airline:   candidate,
		Index:     a.Index,
		Registrar: registrar,
		Votes:     votes,
	}, nil
}

func (s *Surety) requireOperationalAirline(id common.Address) error {
	a, err := s.ledger.GetAirline(id)
	if err != nil {
		return err
	}
	if a == nil || !a.Registered {
		return fmt.Errorf("%v is not a registered airline: %w", id.Hex(), types.ErrNotAuthorized)
	}
	if !a.Operational(s.cfg.FundingThreshold) {
		return fmt.Errorf("airline %v funded %v of %v: %w", id.Hex(), a.FundedAmount, s.cfg.FundingThreshold, types.ErrNotOperational)
	}
	return nil
}

// FundAirline moves value from the caller's balance into the pooled treasury
// and credits it to the caller's funding. Funding below the threshold is
// accepted; the airline just stays non-operational.
func (s *Surety) FundAirline(caller common.Address, value *big.Int) (event *types.EventAirlineFunded, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	if value == nil || value.Sign() <= 0 {
		return nil, fmt.Errorf("funding %v: %w", value, types.ErrValueOutOfBounds)
	}
	registered, err := s.ledger.IsAirlineRegistered(caller)
	if err != nil {
		return
	}
	if !registered {
		return nil, fmt.Errorf("%v is not a registered airline: %w", caller.Hex(), types.ErrNotAuthorized)
	}
	err = s.ledger.Debit(AppAddress, caller, value)
	if err != nil {
		return
	}
	_, err = s.ledger.AddTreasury(AppAddress, value)
	if err != nil {
		return
	}
	a, err := s.ledger.AddAirlineFunding(AppAddress, caller, value, s.cfg.FundingThreshold)
	if err != nil {
		return
	}
	event = &types.EventAirlineFunded{
		Airline:     caller,
		Amount:      new(big.Int).Set(value),
		Funded:      new(big.Int).Set(a.FundedAmount),
		Operational: a.Operational(s.cfg.FundingThreshold),
	}
	s.logger.Info("airline funded", "airline", caller.Hex(), "amount", value, "funded", a.FundedAmount, "operational", event.Operational)
	return
}

type AirlineStatus struct {
	Address     common.Address `json:"address"`
	Registered  bool           `json:"registered"`
	Operational bool           `json:"operational"`
	Funded      *big.Int       `json:"funded"`
	Index       uint64         `json:"index"`
}

func (s *Surety) AirlineStatus(id common.Address) (status *AirlineStatus, err error) {
	a, err := s.ledger.GetAirline(id)
	if err != nil {
		return
	}
	status = &AirlineStatus{Address: id, Funded: new(big.Int)}
	if a == nil {
		return
	}
	status.Registered = a.Registered
	status.Operational = a.Operational(s.cfg.FundingThreshold)
	status.Funded.Set(a.FundedAmount)
	status.Index = a.Index
	return
}
