package state

import (
	"fmt"
	"math/big"

	"github.com/calehh/surety-app/consensus"
	"github.com/calehh/surety-app/gate"
	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	KeyAirline       = "l/airline/%x"
	KeyAirlineIndex  = "l/airline_idx/%d"
	KeyAirlineCount  = "l/airline_count"
	KeyFlight        = "l/flight/%x"
	KeyFlightIndex   = "l/flight_idx/%d"
	KeyFlightCount   = "l/flight_count"
	KeyPolicy        = "l/policy/%x/%x"
	KeyPolicyIndex   = "l/policy_idx/%x/%d"
	KeyPolicyCount   = "l/policy_count/%x"
	KeyInsureeIndex  = "l/insuree_idx/%x/%d"
	KeyInsureeCount  = "l/insuree_count/%x"
	KeyCredit        = "l/credit/%x"
	KeyTreasury      = "l/treasury"
	KeyOperational   = "l/operational_count"
	KeyOracleCount   = "l/oracle_count"
	KeyConsensusRoot = "l/"
)

// Ledger is the authoritative store of airlines, flights, policies, credits
// and the pooled treasury. Every write goes through the data gate: the
// surface must be unpaused and the caller authorized.
type Ledger struct {
	st   *State
	gate *gate.Gate
}

func NewLedger(st *State) *Ledger {
	return &Ledger{
		st:   st,
		gate: gate.New(st, types.SurfaceData),
	}
}

func (l *Ledger) Gate() *gate.Gate {
	return l.gate
}

func (l *Ledger) State() *State {
	return l.st
}

func (l *Ledger) authorize(caller common.Address) error {
	err := l.gate.RequireNotPaused()
	if err != nil {
		return err
	}
	return l.gate.RequireAuthorized(caller)
}

func (l *Ledger) getUint(key string) (n uint64, err error) {
	val, err := l.st.Get([]byte(key))
	if err != nil || val == nil {
		return
	}
	err = rlp.DecodeBytes(val, &n)
	return
}

func (l *Ledger) setUint(key string, n uint64) error {
	val, err := rlp.EncodeToBytes(n)
	if err != nil {
		return err
	}
	return l.st.Set([]byte(key), val)
}

func (l *Ledger) getAmount(key string) (amount *big.Int, err error) {
	val, err := l.st.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(val), nil
}

func (l *Ledger) setAmount(key string, amount *big.Int) error {
	if amount.Sign() == 0 {
		return l.st.Delete([]byte(key))
	}
	return l.st.Set([]byte(key), amount.Bytes())
}

// Airlines

func (l *Ledger) RegisteredAirlineCount() (uint64, error) {
	return l.getUint(KeyAirlineCount)
}

func (l *Ledger) GetAirline(addr common.Address) (a *types.Airline, err error) {
	a = new(types.Airline)
	found, err := l.st.getJSON(fmt.Sprintf(KeyAirline, addr.Bytes()), a)
	if err != nil || !found {
		return nil, err
	}
	return
}

func (l *Ledger) IsAirlineRegistered(addr common.Address) (bool, error) {
	a, err := l.GetAirline(addr)
	if err != nil {
		return false, err
	}
	return a != nil && a.Registered, nil
}

func (l *Ledger) AirlineByIndex(idx uint64) (*types.Airline, error) {
	val, err := l.st.Get([]byte(fmt.Sprintf(KeyAirlineIndex, idx)))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, fmt.Errorf("airline %v: %w", idx, types.ErrNotFound)
	}
	return l.GetAirline(common.BytesToAddress(val))
}

func (l *Ledger) Airlines() (airlines []*types.Airline, err error) {
	n, err := l.RegisteredAirlineCount()
	if err != nil {
		return
	}
	airlines = make([]*types.Airline, 0, n)
	for i := uint64(0); i < n; i++ {
		a, err := l.AirlineByIndex(i)
		if err != nil {
			return nil, err
		}
		airlines = append(airlines, a)
	}
	return
}

func (l *Ledger) IsAirlineOperational(addr common.Address, threshold *big.Int) (bool, error) {
	a, err := l.GetAirline(addr)
	if err != nil {
		return false, err
	}
	return a.Operational(threshold), nil
}

func (l *Ledger) OperationalAirlines(threshold *big.Int) (airlines []*types.Airline, err error) {
	all, err := l.Airlines()
	if err != nil {
		return
	}
	for _, a := range all {
		if a.Operational(threshold) {
			airlines = append(airlines, a)
		}
	}
	return
}

// OperationalAirlineCount is maintained on funding so voting quorums need no scan.
func (l *Ledger) OperationalAirlineCount() (uint64, error) {
	return l.getUint(KeyOperational)
}

func (l *Ledger) RegisterAirline(caller, addr common.Address) (a *types.Airline, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	ok, err := l.IsAirlineRegistered(addr)
	if err != nil {
		return
	}
	if ok {
		return nil, fmt.Errorf("airline %v: %w", addr.Hex(), types.ErrAlreadyRegistered)
	}
	n, err := l.RegisteredAirlineCount()
	if err != nil {
		return
	}
	a = &types.Airline{
		Address:      addr,
		Index:        n,
		Registered:   true,
		FundedAmount: new(big.Int),
	}
	err = l.st.setJSON(fmt.Sprintf(KeyAirline, addr.Bytes()), a)
	if err != nil {
		return nil, err
	}
	err = l.st.Set([]byte(fmt.Sprintf(KeyAirlineIndex, n)), addr.Bytes())
	if err != nil {
		return nil, err
	}
	err = l.setUint(KeyAirlineCount, n+1)
	if err != nil {
		return nil, err
	}
	return
}

// AddAirlineFunding increases the airline's funded amount. threshold is only used to
// keep the operational count current.
func (l *Ledger) AddAirlineFunding(caller, addr common.Address, amount, threshold *big.Int) (a *types.Airline, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("funding %v: %w", amount, types.ErrValueOutOfBounds)
	}
	a, err = l.GetAirline(addr)
	if err != nil {
		return
	}
	if a == nil || !a.Registered {
		return nil, fmt.Errorf("airline %v: %w", addr.Hex(), types.ErrNotFound)
	}
	before := a.Operational(threshold)
	a.FundedAmount = new(big.Int).Add(a.FundedAmount, amount)
	err = l.st.setJSON(fmt.Sprintf(KeyAirline, addr.Bytes()), a)
	if err != nil {
		return nil, err
	}
	if !before && a.Operational(threshold) {
		n, err := l.OperationalAirlineCount()
		if err != nil {
			return nil, err
		}
		err = l.setUint(KeyOperational, n+1)
		if err != nil {
			return nil, err
		}
	}
	return
}

// Flights

func (l *Ledger) FlightCount() (uint64, error) {
	return l.getUint(KeyFlightCount)
}

func (l *Ledger) GetFlight(key common.Hash) (f *types.Flight, err error) {
	f = new(types.Flight)
	found, err := l.st.getJSON(fmt.Sprintf(KeyFlight, key.Bytes()), f)
	if err != nil || !found {
		return nil, err
	}
	return
}

func (l *Ledger) FlightByIndex(idx uint64) (*types.Flight, error) {
	val, err := l.st.Get([]byte(fmt.Sprintf(KeyFlightIndex, idx)))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, fmt.Errorf("flight %v: %w", idx, types.ErrNotFound)
	}
	return l.GetFlight(common.BytesToHash(val))
}

func (l *Ledger) AvailableFlights() (flights []*types.Flight, err error) {
	n, err := l.FlightCount()
	if err != nil {
		return
	}
	flights = make([]*types.Flight, 0, n)
	for i := uint64(0); i < n; i++ {
		f, err := l.FlightByIndex(i)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return
}

func (l *Ledger) RegisterFlight(caller, airline common.Address, code string, timestamp uint64) (f *types.Flight, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	key := types.FlightKey(airline, code, timestamp)
	f, err = l.GetFlight(key)
	if err != nil {
		return
	}
	if f != nil {
		return nil, fmt.Errorf("flight %v: %w", key.Hex(), types.ErrAlreadyRegistered)
	}
	n, err := l.FlightCount()
	if err != nil {
		return
	}
	f = &types.Flight{
		Key:       key,
		Airline:   airline,
		Code:      code,
		Timestamp: timestamp,
		Status:    types.FlightStatusUnknown,
		Index:     n,
	}
	err = l.st.setJSON(fmt.Sprintf(KeyFlight, key.Bytes()), f)
	if err != nil {
		return nil, err
	}
	err = l.st.Set([]byte(fmt.Sprintf(KeyFlightIndex, n)), key.Bytes())
	if err != nil {
		return nil, err
	}
	err = l.setUint(KeyFlightCount, n+1)
	if err != nil {
		return nil, err
	}
	return
}

func (l *Ledger) SetFlightStatus(caller common.Address, key common.Hash, status types.FlightStatus) (f *types.Flight, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	f, err = l.GetFlight(key)
	if err != nil {
		return
	}
	if f == nil {
		return nil, fmt.Errorf("flight %v: %w", key.Hex(), types.ErrNotFound)
	}
	f.Status = status
	err = l.st.setJSON(fmt.Sprintf(KeyFlight, key.Bytes()), f)
	if err != nil {
		return nil, err
	}
	return
}

func (l *Ledger) OracleRequestCount() (uint64, error) {
	return l.getUint(KeyOracleCount)
}

// NextOracleRequest allocates the index of a new status request.
func (l *Ledger) NextOracleRequest(caller common.Address) (idx uint64, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	idx, err = l.OracleRequestCount()
	if err != nil {
		return
	}
	err = l.setUint(KeyOracleCount, idx+1)
	return
}

// Policies

func (l *Ledger) GetPolicy(flight common.Hash, insuree common.Address) (p *types.Policy, err error) {
	p = new(types.Policy)
	found, err := l.st.getJSON(fmt.Sprintf(KeyPolicy, flight.Bytes(), insuree.Bytes()), p)
	if err != nil || !found {
		return nil, err
	}
	return
}

func (l *Ledger) putPolicy(p *types.Policy) error {
	return l.st.setJSON(fmt.Sprintf(KeyPolicy, p.FlightKey.Bytes(), p.Insuree.Bytes()), p)
}

// FlightInsurees lists the insurees of a flight in purchase order.
func (l *Ledger) FlightInsurees(flight common.Hash) (insurees []common.Address, err error) {
	n, err := l.getUint(fmt.Sprintf(KeyPolicyCount, flight.Bytes()))
	if err != nil {
		return
	}
	insurees = make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		val, err := l.st.Get([]byte(fmt.Sprintf(KeyPolicyIndex, flight.Bytes(), i)))
		if err != nil {
			return nil, err
		}
		insurees = append(insurees, common.BytesToAddress(val))
	}
	return
}

func (l *Ledger) FlightPolicies(flight common.Hash) (policies []*types.Policy, err error) {
	insurees, err := l.FlightInsurees(flight)
	if err != nil {
		return
	}
	policies = make([]*types.Policy, 0, len(insurees))
	for _, insuree := range insurees {
		p, err := l.GetPolicy(flight, insuree)
		if err != nil {
			return nil, err
		}
		if p != nil {
			policies = append(policies, p)
		}
	}
	return
}

func (l *Ledger) InsureePolicies(insuree common.Address) (policies []*types.Policy, err error) {
	n, err := l.getUint(fmt.Sprintf(KeyInsureeCount, insuree.Bytes()))
	if err != nil {
		return
	}
	policies = make([]*types.Policy, 0, n)
	for i := uint64(0); i < n; i++ {
		val, err := l.st.Get([]byte(fmt.Sprintf(KeyInsureeIndex, insuree.Bytes(), i)))
		if err != nil {
			return nil, err
		}
		p, err := l.GetPolicy(common.BytesToHash(val), insuree)
		if err != nil {
			return nil, err
		}
		if p != nil {
			policies = append(policies, p)
		}
	}
	return
}

func (l *Ledger) AddPolicy(caller, insuree common.Address, flight common.Hash, premium *big.Int) (p *types.Policy, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	p, err = l.GetPolicy(flight, insuree)
	if err != nil {
		return
	}
	if p != nil {
		return nil, fmt.Errorf("policy for %v on %v: %w", insuree.Hex(), flight.Hex(), types.ErrAlreadyPurchased)
	}
	p = &types.Policy{
		Insuree:   insuree,
		FlightKey: flight,
		Premium:   new(big.Int).Set(premium),
		Payout:    new(big.Int),
	}
	err = l.putPolicy(p)
	if err != nil {
		return nil, err
	}
	countKey := fmt.Sprintf(KeyPolicyCount, flight.Bytes())
	n, err := l.getUint(countKey)
	if err != nil {
		return nil, err
	}
	err = l.st.Set([]byte(fmt.Sprintf(KeyPolicyIndex, flight.Bytes(), n)), insuree.Bytes())
	if err != nil {
		return nil, err
	}
	err = l.setUint(countKey, n+1)
	if err != nil {
		return nil, err
	}
	countKey = fmt.Sprintf(KeyInsureeCount, insuree.Bytes())
	n, err = l.getUint(countKey)
	if err != nil {
		return nil, err
	}
	err = l.st.Set([]byte(fmt.Sprintf(KeyInsureeIndex, insuree.Bytes(), n)), flight.Bytes())
	if err != nil {
		return nil, err
	}
	err = l.setUint(countKey, n+1)
	if err != nil {
		return nil, err
	}
	return
}

// SetPolicyClaimed marks the policy claimed and records its payout. A policy is
// claimed at most once.
func (l *Ledger) SetPolicyClaimed(caller, insuree common.Address, flight common.Hash, payout *big.Int) (p *types.Policy, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	p, err = l.GetPolicy(flight, insuree)
	if err != nil {
		return
	}
	if p == nil {
		return nil, fmt.Errorf("policy for %v on %v: %w", insuree.Hex(), flight.Hex(), types.ErrNotFound)
	}
	if p.Claimed {
		return nil, fmt.Errorf("policy for %v on %v: %w", insuree.Hex(), flight.Hex(), types.ErrAlreadyRegistered)
	}
	p.Claimed = true
	p.Payout = new(big.Int).Set(payout)
	err = l.putPolicy(p)
	if err != nil {
		return nil, err
	}
	return
}

// Credits and treasury

func (l *Ledger) Credit(insuree common.Address) (*big.Int, error) {
	return l.getAmount(fmt.Sprintf(KeyCredit, insuree.Bytes()))
}

func (l *Ledger) AddCredit(caller, insuree common.Address, amount *big.Int) (credit *big.Int, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	credit, err = l.Credit(insuree)
	if err != nil {
		return
	}
	credit.Add(credit, amount)
	err = l.setAmount(fmt.Sprintf(KeyCredit, insuree.Bytes()), credit)
	return
}

// TakeCredit zeroes the insuree's credit and returns what it held.
func (l *Ledger) TakeCredit(caller, insuree common.Address) (credit *big.Int, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	credit, err = l.Credit(insuree)
	if err != nil {
		return
	}
	err = l.setAmount(fmt.Sprintf(KeyCredit, insuree.Bytes()), new(big.Int))
	return
}

func (l *Ledger) Treasury() (*big.Int, error) {
	return l.getAmount(KeyTreasury)
}

func (l *Ledger) AddTreasury(caller common.Address, amount *big.Int) (total *big.Int, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	total, err = l.Treasury()
	if err != nil {
		return
	}
	total.Add(total, amount)
	err = l.setAmount(KeyTreasury, total)
	return
}

func (l *Ledger) SubTreasury(caller common.Address, amount *big.Int) (total *big.Int, err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	total, err = l.Treasury()
	if err != nil {
		return
	}
	if total.Cmp(amount) < 0 {
		return nil, fmt.Errorf("treasury %v below %v: %w", total, amount, types.ErrInsufficientBalance)
	}
	total.Sub(total, amount)
	err = l.setAmount(KeyTreasury, total)
	return
}

// Accounts

func (l *Ledger) GetAccount(addr common.Address) (*Account, error) {
	return l.st.GetAccount(addr)
}

func (l *Ledger) Balance(addr common.Address) (*big.Int, error) {
	a, err := l.st.Account(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(a.balance()), nil
}

func (l *Ledger) Debit(caller, addr common.Address, amount *big.Int) (err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	a, err := l.st.Account(addr)
	if err != nil {
		return
	}
	if a.balance().Cmp(amount) < 0 {
		return fmt.Errorf("balance of %v below %v: %w", addr.Hex(), amount, types.ErrInsufficientBalance)
	}
	a.Balance = new(big.Int).Sub(a.balance(), amount)
	return l.st.SetAccount(a)
}

func (l *Ledger) CreditAccount(caller, addr common.Address, amount *big.Int) (err error) {
	err = l.authorize(caller)
	if err != nil {
		return
	}
	return l.st.AddBalance(addr, amount)
}

// VoteStore returns the ledger's storage for consensus tallies. Writes carry
// the same gate checks as every other ledger mutation.
func (l *Ledger) VoteStore(caller common.Address) consensus.Store {
	return &voteStore{l: l, caller: caller}
}

type voteStore struct {
	l      *Ledger
	caller common.Address
}

func (v *voteStore) key(key []byte) []byte {
	return append([]byte(KeyConsensusRoot), key...)
}

func (v *voteStore) Get(key []byte) ([]byte, error) {
	return v.l.st.Get(v.key(key))
}

func (v *voteStore) Set(key, value []byte) error {
	err := v.l.authorize(v.caller)
	if err != nil {
		return err
	}
	return v.l.st.Set(v.key(key), value)
}

func (v *voteStore) Delete(key []byte) error {
	err := v.l.authorize(v.caller)
	if err != nil {
		return err
	}
	return v.l.st.Delete(v.key(key))
}
