package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calehh/surety-app/crypto"
	"github.com/calehh/surety-app/surety"
	"github.com/cometbft/cometbft/config"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/spf13/viper"
)

const (
	DefaultHomeDir  = "$HOME/.surety"
	OwnerKeyFile    = "owner_key.json"
	AppConfigFile   = "app.toml"
	CometConfigFile = "config.toml"
)

type IndexerConfig struct {
	Enable        bool          `mapstructure:"enable"`
	DBPath        string        `mapstructure:"db_path"`
	ListenAddress string        `mapstructure:"listen_address"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

type SuretyAppConfig struct {
	Home string `mapstructure:"-"`

	// amounts are in wei
	FundingThreshold  string `mapstructure:"funding_threshold"`
	MaxPremium        string `mapstructure:"max_premium"`
	PayoutNumerator   int64  `mapstructure:"payout_numerator"`
	PayoutDenominator int64  `mapstructure:"payout_denominator"`
	BootstrapAirlines uint64 `mapstructure:"bootstrap_airlines"`

	Indexer *IndexerConfig `mapstructure:"indexer"`
}

func DefaultSuretyAppConfig(home string) *SuretyAppConfig {
	def := surety.DefaultConfig()
	return &SuretyAppConfig{
		Home:              home,
		FundingThreshold:  def.FundingThreshold.String(),
		MaxPremium:        def.MaxPremium.String(),
		PayoutNumerator:   def.PayoutNumerator,
		PayoutDenominator: def.PayoutDenominator,
		BootstrapAirlines: def.BootstrapAirlines,
		Indexer: &IndexerConfig{
			Enable:        true,
			DBPath:        "indexer.db",
			ListenAddress: ":8080",
			PollInterval:  time.Second * 6,
		},
	}
}

// Surety converts the file configuration into rule parameters.
func (c *SuretyAppConfig) Surety() (cfg surety.Config, err error) {
	cfg = surety.DefaultConfig()
	if c.FundingThreshold != "" {
		v, ok := new(big.Int).SetString(c.FundingThreshold, 10)
		if !ok {
			return cfg, fmt.Errorf("invalid funding_threshold %q", c.FundingThreshold)
		}
		cfg.FundingThreshold = v
	}
	if c.MaxPremium != "" {
		v, ok := new(big.Int).SetString(c.MaxPremium, 10)
		if !ok {
			return cfg, fmt.Errorf("invalid max_premium %q", c.MaxPremium)
		}
		cfg.MaxPremium = v
	}
	if c.PayoutNumerator != 0 {
		cfg.PayoutNumerator = c.PayoutNumerator
	}
	if c.PayoutDenominator != 0 {
		cfg.PayoutDenominator = c.PayoutDenominator
	}
	if c.BootstrapAirlines != 0 {
		cfg.BootstrapAirlines = c.BootstrapAirlines
	}
	err = cfg.Validate()
	return
}

func (c *SuretyAppConfig) IndexerDBPath() string {
	if c.Indexer == nil || c.Indexer.DBPath == "" {
		return filepath.Join(c.Home, "indexer.db")
	}
	if filepath.IsAbs(c.Indexer.DBPath) {
		return c.Indexer.DBPath
	}
	return filepath.Join(c.Home, c.Indexer.DBPath)
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *SuretyAppConfig `mapstructure:"app"`
}

func ExpandHome(home string) string {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	return home
}

func DefaultConfig(home string) *Config {
	home = ExpandHome(home)
	cfg := &Config{
		DefaultSuretyCometConfig(),
		DefaultSuretyAppConfig(home),
	}
	cfg.SetRoot(home)
	_ = os.MkdirAll(filepath.Join(home, "config"), 0o755)
	return cfg
}

// EnvPrefix prefixes environment overrides of file keys, e.g.
// SURETY_APP_MAX_PREMIUM.
const EnvPrefix = "SURETY"

// LoadConfig reads config/config.toml and merges config/app.toml over the
// defaults. Keys present in the files may be overridden from the environment.
func LoadConfig(home string) (cfg *Config, err error) {
	home = ExpandHome(home)
	cfg = &Config{
		DefaultSuretyCometConfig(),
		DefaultSuretyAppConfig(home),
	}
	cfg.SetRoot(home)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(filepath.Join(home, "config", CometConfigFile))
	err = v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	appFile := filepath.Join(home, "config", AppConfigFile)
	if _, statErr := os.Stat(appFile); statErr == nil {
		v.SetConfigFile(appFile)
		err = v.MergeInConfig()
		if err != nil {
			return nil, fmt.Errorf("reading app config: %w", err)
		}
	}
	err = v.Unmarshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.App.Home = home
	err = cfg.ValidateBasic()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	if _, err = cfg.App.Surety(); err != nil {
		return nil, err
	}
	return
}

// InitializeOwner writes a fresh owner key into the config directory and
// returns its address.
func InitializeOwner(home string) (owner string, err error) {
	file := filepath.Join(home, "config", OwnerKeyFile)
	if _, statErr := os.Stat(file); statErr == nil {
		return "", errors.New("owner key already exists: " + file)
	}
	key, err := crypto.GenKeyFile(file)
	if err != nil {
		return
	}
	owner = key.Address.Hex()
	return
}

func InitializeNodeValidatorFiles(config *Config, privKey cmtcrypto.PrivKey) (nodeID string, pk cmtcrypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultSuretyCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
