package surety

import (
	"fmt"
	"math/big"

	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
)

func flightEvent(f *types.Flight) *types.EventFlight {
	return &types.EventFlight{
		Key:       f.Key,
		Airline:   f.Airline,
		Code:      f.Code,
		Timestamp: f.Timestamp,
		Status:    f.Status,
		Index:     f.Index,
	}
}

// RegisterFlight is only accepted from the operating airline itself, for a
// departure strictly in the future.
func (s *Surety) RegisterFlight(caller, airline common.Address, code string, timestamp uint64) (event *types.EventFlight, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	if caller != airline {
		return nil, fmt.Errorf("%v cannot register flights for %v: %w", caller.Hex(), airline.Hex(), types.ErrNotAuthorized)
	}
	if code == "" {
		return nil, fmt.Errorf("empty flight code: %w", types.ErrValueOutOfBounds)
	}
	err = s.requireOperationalAirline(airline)
	if err != nil {
		return
	}
	now := s.nowUnix()
	if timestamp <= now {
		return nil, fmt.Errorf("flight time %v not after %v: %w", timestamp, now, types.ErrInvalidTiming)
	}
	f, err := s.ledger.RegisterFlight(AppAddress, airline, code, timestamp)
	if err != nil {
		return
	}
	s.logger.Info("flight registered", "key", f.Key.Hex(), "airline", airline.Hex(), "code", code, "timestamp", timestamp)
	return flightEvent(f), nil
}

func (s *Surety) AvailableFlights() ([]*types.Flight, error) {
	return s.ledger.AvailableFlights()
}

func (s *Surety) GetFlight(airline common.Address, code string, timestamp uint64) (f *types.Flight, err error) {
	key := types.FlightKey(airline, code, timestamp)
	f, err = s.ledger.GetFlight(key)
	if err != nil {
		return
	}
	if f == nil {
		return nil, fmt.Errorf("flight %v: %w", key.Hex(), types.ErrNotFound)
	}
	return
}

// FetchFlightStatus asks the oracle relays for the status of a flight. Any
// caller may ask; each request gets the next request index.
func (s *Surety) FetchFlightStatus(caller, airline common.Address, code string, timestamp uint64) (event *types.EventFlight, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	f, err := s.GetFlight(airline, code, timestamp)
	if err != nil {
		return
	}
	idx, err := s.ledger.NextOracleRequest(AppAddress)
	if err != nil {
		return
	}
	event = flightEvent(f)
	event.Index = idx
	event.Requester = caller
	s.logger.Debug("oracle request", "key", f.Key.Hex(), "index", idx, "requester", caller.Hex())
	return
}

type StatusResult struct {
	Status   *types.EventFlight
	Credited []*types.EventPolicy
}

// UpdateFlightStatus settles a flight. Only oracle relays authorized on the
// app surface may call it, and a flight settles exactly once. A late_airline
// status credits every unclaimed policy on the flight.
func (s *Surety) UpdateFlightStatus(caller, airline common.Address, code string, timestamp uint64, status types.FlightStatus) (res *StatusResult, err error) {
	err = s.gate.RequireNotPaused()
	if err != nil {
		return
	}
	err = s.gate.RequireAuthorized(caller)
	if err != nil {
		return
	}
	if !status.Valid() || status == types.FlightStatusUnknown {
		return nil, fmt.Errorf("flight status %v: %w", status, types.ErrValueOutOfBounds)
	}
	f, err := s.GetFlight(airline, code, timestamp)
	if err != nil {
		return
	}
	if f.Status != types.FlightStatusUnknown {
		return nil, fmt.Errorf("flight %v is %v: %w", f.Key.Hex(), f.Status, types.ErrFlightSettled)
	}
	f, err = s.ledger.SetFlightStatus(AppAddress, f.Key, status)
	if err != nil {
		return
	}
	res = &StatusResult{Status: flightEvent(f)}
	s.logger.Info("flight settled", "key", f.Key.Hex(), "status", status)
	if status != types.FlightStatusLateAirline {
		return
	}
	res.Credited, err = s.creditInsurees(f.Key)
	if err != nil {
		return nil, err
	}
	return
}

func (s *Surety) creditInsurees(flight common.Hash) (events []*types.EventPolicy, err error) {
	policies, err := s.ledger.FlightPolicies(flight)
	if err != nil {
		return
	}
	for _, p := range policies {
		if p.Claimed {
			continue
		}
		payout := s.Payout(p.Premium)
		_, err = s.ledger.SetPolicyClaimed(AppAddress, p.Insuree, flight, payout)
		if err != nil {
			return nil, err
		}
		_, err = s.ledger.AddCredit(AppAddress, p.Insuree, payout)
		if err != nil {
			return nil, err
		}
		events = append(events, &types.EventPolicy{
			Insuree:   p.Insuree,
			FlightKey: flight,
			Amount:    payout,
		})
	}
	return
}

// Payout is premium * numerator / denominator, rounded down.
func (s *Surety) Payout(premium *big.Int) *big.Int {
	payout := new(big.Int).Mul(premium, big.NewInt(s.cfg.PayoutNumerator))
	return payout.Quo(payout, big.NewInt(s.cfg.PayoutDenominator))
}
