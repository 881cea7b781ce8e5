// Package surety holds the business rules: airline membership and funding,
// the flight registry and the insurance escrow. It owns no storage; every
// write goes through the ledger under the rules identity AppAddress.
package surety

import (
	"fmt"
	"math/big"
	"time"

	"github.com/calehh/surety-app/consensus"
	"github.com/calehh/surety-app/gate"
	"github.com/calehh/surety-app/state"
	"github.com/calehh/surety-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// AppAddress is the identity the rules layer presents to the data gate.
var AppAddress = common.BytesToAddress(crypto.Keccak256([]byte("surety/app"))[12:])

type Config struct {
	FundingThreshold  *big.Int
	MaxPremium        *big.Int
	PayoutNumerator   int64
	PayoutDenominator int64
	BootstrapAirlines uint64
}

func DefaultConfig() Config {
	return Config{
		FundingThreshold:  new(big.Int).Mul(big.NewInt(10), big.NewInt(params.Ether)),
		MaxPremium:        big.NewInt(params.Ether),
		PayoutNumerator:   3,
		PayoutDenominator: 2,
		BootstrapAirlines: 4,
	}
}

func (c Config) Validate() error {
	if c.FundingThreshold == nil || c.FundingThreshold.Sign() <= 0 {
		return fmt.Errorf("funding threshold must be positive: %w", types.ErrValueOutOfBounds)
	}
	if c.MaxPremium == nil || c.MaxPremium.Sign() <= 0 {
		return fmt.Errorf("max premium must be positive: %w", types.ErrValueOutOfBounds)
	}
	if c.PayoutNumerator <= 0 || c.PayoutDenominator <= 0 {
		return fmt.Errorf("payout ratio %v/%v: %w", c.PayoutNumerator, c.PayoutDenominator, types.ErrValueOutOfBounds)
	}
	return nil
}

type Surety struct {
	logger cmtlog.Logger
	cfg    Config
	ledger *state.Ledger
	gate   *gate.Gate
	votes  *consensus.Engine
	now    func() time.Time
}

// New binds the rules to st. now supplies the current time; in the
// application it is the block time.
func New(st *state.State, cfg Config, now func() time.Time, logger cmtlog.Logger) *Surety {
	l := state.NewLedger(st)
	return &Surety{
		logger: logger.With("module", "surety"),
		cfg:    cfg,
		ledger: l,
		gate:   gate.New(st, types.SurfaceApp),
		votes:  consensus.NewEngine(l.VoteStore(AppAddress)),
		now:    now,
	}
}

func (s *Surety) Ledger() *state.Ledger {
	return s.ledger
}

func (s *Surety) Config() Config {
	return s.cfg
}

func (s *Surety) Votes() *consensus.Engine {
	return s.votes
}

// Gate returns the gate guarding surface.
func (s *Surety) Gate(surface types.Surface) (*gate.Gate, error) {
	switch surface {
	case types.SurfaceApp:
		return s.gate, nil
	case types.SurfaceData:
		return s.ledger.Gate(), nil
	}
	return nil, fmt.Errorf("surface %v: %w", surface, types.ErrNotFound)
}

func (s *Surety) nowUnix() uint64 {
	t := s.now().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

// InitGenesis installs the owner on both gates, authorizes the rules layer on
// the data surface and the oracle relays on the app surface, allocates
// balances and registers the optional first airline.
func (s *Surety) InitGenesis(g *types.AppGenesis) (err error) {
	err = s.ledger.Gate().Init(g.Owner)
	if err != nil {
		return
	}
	err = s.gate.Init(g.Owner)
	if err != nil {
		return
	}
	_, err = s.ledger.Gate().AuthorizeCaller(g.Owner, AppAddress)
	if err != nil {
		return
	}
	for _, oracle := range g.Oracles {
		_, err = s.gate.AuthorizeCaller(g.Owner, oracle)
		if err != nil {
			return
		}
	}
	for _, a := range g.Accounts {
		err = s.ledger.CreditAccount(AppAddress, a.Address, a.Balance)
		if err != nil {
			return
		}
	}
	if g.FirstAirline != nil {
		_, err = s.ledger.RegisterAirline(AppAddress, *g.FirstAirline)
		if err != nil {
			return
		}
	}
	s.logger.Info("genesis loaded", "owner", g.Owner.Hex(), "accounts", len(g.Accounts), "oracles", len(g.Oracles))
	return
}
