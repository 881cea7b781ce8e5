package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeWrapped(t *testing.T) {
	err := fmt.Errorf("buy: %w", ErrAlreadyPurchased)
	require.Equal(t, CodeAlreadyPurchased, ErrorCode(err))
	require.Equal(t, CodeOK, ErrorCode(nil))
	require.Equal(t, CodeInternal, ErrorCode(errors.New("disk")))
	require.ErrorIs(t, CodeError(CodePaused), ErrPaused)
	require.Nil(t, CodeError(CodeInvalidTx))
}

func TestParseNames(t *testing.T) {
	st, err := ParseFlightStatus("LATE_AIRLINE")
	require.NoError(t, err)
	require.Equal(t, FlightStatusLateAirline, st)
	require.Equal(t, "late_airline", st.String())
	_, err = ParseFlightStatus("cancelled")
	require.Error(t, err)
	require.False(t, FlightStatus(21).Valid())

	s, err := ParseSurface("data")
	require.NoError(t, err)
	require.Equal(t, SurfaceData, s)
	_, err = ParseSurface("ui")
	require.Error(t, err)
}

func TestFlightKey(t *testing.T) {
	a := common.HexToAddress("0x01")
	k := FlightKey(a, "ND1309", 100)
	require.Equal(t, k, FlightKey(a, "ND1309", 100))
	require.NotEqual(t, k, FlightKey(a, "ND1309", 101))
	require.NotEqual(t, k, FlightKey(common.HexToAddress("0x02"), "ND1309", 100))
}

func TestAirlineOperational(t *testing.T) {
	threshold := big.NewInt(10)
	a := &Airline{Registered: true, FundedAmount: big.NewInt(9)}
	require.False(t, a.Operational(threshold))
	a.FundedAmount = big.NewInt(10)
	require.True(t, a.Operational(threshold))
	a.Registered = false
	require.False(t, a.Operational(threshold))
	require.False(t, (*Airline)(nil).Operational(threshold))
}

func TestAppGenesisValidate(t *testing.T) {
	owner := common.HexToAddress("0x01")
	_, err := ParseAppGenesis(nil)
	require.Error(t, err)

	g := &AppGenesis{Accounts: []GenesisAccount{{Address: owner, Balance: big.NewInt(1)}}}
	require.Error(t, g.Validate())
	g.Owner = owner
	require.NoError(t, g.Validate())
	g.Accounts = append(g.Accounts, GenesisAccount{Address: owner, Balance: big.NewInt(2)})
	require.Error(t, g.Validate())
	g.Accounts = []GenesisAccount{{Address: owner}}
	require.Error(t, g.Validate())
}

func TestExportGenesisFile(t *testing.T) {
	owner := common.HexToAddress("0x01")
	appState, err := json.Marshal(&AppGenesis{
		Owner:    owner,
		Accounts: []GenesisAccount{{Address: owner, Balance: big.NewInt(1000)}},
	})
	require.NoError(t, err)
	pk := ed25519.GenPrivKey().PubKey()
	doc := &GenesisDoc{
		ChainID:         "surety-test",
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		Validators:      []GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: DefaultPower}},
		AppState:        appState,
	}
	file := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, ExportGenesisFile(doc, file))
	require.Equal(t, int64(1), doc.InitialHeight)
	require.False(t, doc.GenesisTime.IsZero())

	loaded, err := cmttypes.GenesisDocFromFile(file)
	require.NoError(t, err)
	require.Equal(t, "surety-test", loaded.ChainID)
	g, err := ParseAppGenesis(loaded.AppState)
	require.NoError(t, err)
	require.Equal(t, owner, g.Owner)

	doc.AppState = []byte(`{}`)
	require.Error(t, ExportGenesisFile(doc, file))
	doc.AppState = appState
	doc.Validators = nil
	require.Error(t, ExportGenesisFile(doc, file))
	_, err = os.Stat(file)
	require.NoError(t, err)
}
