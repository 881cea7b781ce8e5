package surety

import (
	"fmt"
	"math/big"

	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// Buy purchases a policy on a registered, unsettled future flight. The
// premium moves from the caller's balance into the treasury.
func (s *Surety) Buy(caller, airline common.Address, code string, timestamp uint64, premium *big.Int) (event *types.EventPolicy, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	f, err := s.GetFlight(airline, code, timestamp)
	if err != nil {
		return
	}
	if premium == nil || premium.Sign() <= 0 || premium.Cmp(s.cfg.MaxPremium) > 0 {
		return nil, fmt.Errorf("premium %v outside (0, %v]: %w", premium, s.cfg.MaxPremium, types.ErrValueOutOfBounds)
	}
	now := s.nowUnix()
	if f.Status != types.FlightStatusUnknown || f.Timestamp <= now {
		return nil, fmt.Errorf("flight %v is %v at %v: %w", f.Key.Hex(), f.Status, now, types.ErrInvalidTiming)
	}
	p, err := s.ledger.GetPolicy(f.Key, caller)
	if err != nil {
		return
	}
	if p != nil {
		return nil, fmt.Errorf("policy for %v on %v: %w", caller.Hex(), f.Key.Hex(), types.ErrAlreadyPurchased)
	}
	err = s.ledger.Debit(AppAddress, caller, premium)
	if err != nil {
		return
	}
	_, err = s.ledger.AddTreasury(AppAddress, premium)
	if err != nil {
		return
	}
	_, err = s.ledger.AddPolicy(AppAddress, caller, f.Key, premium)
	if err != nil {
		return
	}
	s.logger.Info("policy purchased", "insuree", caller.Hex(), "flight", f.Key.Hex(), "premium", premium)
	return &types.EventPolicy{
		Insuree:   caller,
		FlightKey: f.Key,
		Amount:    new(big.Int).Set(premium),
	}, nil
}

func (s *Surety) GetPolicy(insuree, airline common.Address, code string, timestamp uint64) (p *types.Policy, err error) {
	key := types.FlightKey(airline, code, timestamp)
	p, err = s.ledger.GetPolicy(key, insuree)
	if err != nil {
		return
	}
	if p == nil {
		return nil, fmt.Errorf("policy for %v on %v: %w", insuree.Hex(), key.Hex(), types.ErrNotFound)
	}
	return
}

// Withdraw pays out the caller's whole credit from the treasury.
func (s *Surety) Withdraw(caller common.Address) (event *types.EventPolicy, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	credit, err := s.ledger.Credit(caller)
	if err != nil {
		return
	}
	if credit.Sign() == 0 {
		return nil, fmt.Errorf("%v has no credit: %w", caller.Hex(), types.ErrValueOutOfBounds)
	}
	_, err = s.ledger.SubTreasury(AppAddress, credit)
	if err != nil {
		return
	}
	_, err = s.ledger.TakeCredit(AppAddress, caller)
	if err != nil {
		return
	}
	err = s.ledger.CreditAccount(AppAddress, caller, credit)
	if err != nil {
		return
	}
	s.logger.Info("withdrawal", "insuree", caller.Hex(), "amount", credit)
	return &types.EventPolicy{
		Insuree: caller,
		Amount:  credit,
	}, nil
}
