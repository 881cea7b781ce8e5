package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
)

type GenesisAccount struct {
	Address common.Address `json:"address"`
	Balance *big.Int       `json:"balance"`
}

// AppGenesis is the app_state section of the genesis file.
type AppGenesis struct {
	Owner        common.Address   `json:"owner"`
	Accounts     []GenesisAccount `json:"accounts"`
	Oracles      []common.Address `json:"oracles"`
	FirstAirline *common.Address  `json:"first_airline,omitempty"`
}

func (g *AppGenesis) Validate() error {
	if g.Owner == (common.Address{}) {
		return errors.New("genesis app state must include owner")
	}
	seen := make(map[common.Address]bool, len(g.Accounts))
	for _, a := range g.Accounts {
		if seen[a.Address] {
			return fmt.Errorf("duplicate genesis account %v", a.Address.Hex())
		}
		seen[a.Address] = true
		if a.Balance == nil || a.Balance.Sign() < 0 {
			return fmt.Errorf("invalid balance for genesis account %v", a.Address.Hex())
		}
	}
	return nil
}

func ParseAppGenesis(dat []byte) (g *AppGenesis, err error) {
	g = new(AppGenesis)
	if len(dat) == 0 {
		return nil, errors.New("empty genesis app state")
	}
	err = json.Unmarshal(dat, g)
	if err != nil {
		return nil, err
	}
	err = g.Validate()
	if err != nil {
		return nil, err
	}
	return
}

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc is the genesis file written by init. AppState holds an
// AppGenesis.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// Complete fills the optional fields and checks the rest, including the
// surety app state.
func (g *GenesisDoc) Complete() error {
	switch {
	case g.ChainID == "":
		return errors.New("genesis chain_id is empty")
	case g.InitialHeight < 0:
		return fmt.Errorf("negative genesis initial_height %v", g.InitialHeight)
	case len(g.Validators) == 0:
		return errors.New("genesis has no validators")
	}
	for i, v := range g.Validators {
		if v.Power <= 0 {
			return fmt.Errorf("genesis validator %d has power %v", i, v.Power)
		}
	}
	if g.InitialHeight == 0 {
		g.InitialHeight = 1
	}
	if g.GenesisTime.IsZero() {
		g.GenesisTime = time.Now().Round(0).UTC()
	}
	_, err := ParseAppGenesis(g.AppState)
	return err
}

func ExportGenesisFile(g *GenesisDoc, file string) error {
	if err := g.Complete(); err != nil {
		return err
	}
	dat, err := cmtjson.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, dat, 0o600)
}

const (
	SuretyModuleName = "surety"
	DefaultPower     = 1000
)
