package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/surety-app/config"
	"github.com/calehh/surety-app/crypto"
	"github.com/calehh/surety-app/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type printInfo struct {
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Owner      string          `json:"owner" yaml:"owner"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, owner key, p2p, genesis, and application configuration files",
	Long: `Initialize the node's configuration files. The generated owner key
controls both gates and is funded with the initial balance.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(FlagHome, "", "home directory")
	initCmd.Flags().StringSlice(FlagOracle, nil, "oracle relay addresses authorized on the app gate")
	initCmd.Flags().String(FlagFirstAirline, "", "airline registered at genesis")
	initCmd.Flags().String(FlagBalance, "1000ether", "genesis balance of the owner")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(FlagHome)
	chainID, _ := cmd.Flags().GetString(FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(FlagOverwrite)
	oracles, _ := cmd.Flags().GetStringSlice(FlagOracle)
	firstAirline, _ := cmd.Flags().GetString(FlagFirstAirline)
	balanceStr, _ := cmd.Flags().GetString(FlagBalance)

	if chainID == "" {
		chainID = fmt.Sprintf("surety-chain-%v", rand.Uint64())
	}
	balance, err := parseAmount(balanceStr)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig(home)

	genFile := cfg.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !overwrite {
		return fmt.Errorf("genesis file %v already exists, use --%v", genFile, FlagOverwrite)
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(cfg, nil)
	if err != nil {
		return err
	}
	var owner string
	ownerFile := filepath.Join(cfg.RootDir, "config", config.OwnerKeyFile)
	if _, err := os.Stat(ownerFile); err == nil {
		key, err := crypto.LoadKeyFile(ownerFile)
		if err != nil {
			return err
		}
		owner = key.Address.Hex()
	} else {
		owner, err = config.InitializeOwner(cfg.RootDir)
		if err != nil {
			return err
		}
	}

	appState := &types.AppGenesis{
		Owner: common.HexToAddress(owner),
		Accounts: []types.GenesisAccount{
			{Address: common.HexToAddress(owner), Balance: balance},
		},
	}
	for _, o := range oracles {
		if !common.IsHexAddress(o) {
			return fmt.Errorf("invalid oracle address %q", o)
		}
		appState.Oracles = append(appState.Oracles, common.HexToAddress(o))
	}
	if firstAirline != "" {
		if !common.IsHexAddress(firstAirline) {
			return fmt.Errorf("invalid airline address %q", firstAirline)
		}
		a := common.HexToAddress(firstAirline)
		appState.FirstAirline = &a
	}
	if err := appState.Validate(); err != nil {
		return err
	}
	appStateBytes, err := json.Marshal(appState)
	if err != nil {
		return err
	}

	vals := []types.GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower}}
	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appStateBytes,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	if err = config.WriteConfigFiles(cfg); err != nil {
		return fmt.Errorf("failed to write config files: %w", err)
	}
	return displayInfo(printInfo{
		ChainID:    chainID,
		NodeID:     nodeID,
		Owner:      owner,
		AppMessage: appStateBytes,
	})
}
