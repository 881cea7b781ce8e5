package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/cobra"
)

const (
	FlagHome         = "home"
	FlagChainID      = "chain-id"
	FlagOverwrite    = "overwrite"
	FlagOracle       = "oracle"
	FlagFirstAirline = "first-airline"
	FlagBalance      = "balance"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.PersistentFlags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "surety node rpc url")
}

func keyFlag(cmd *cobra.Command, key *string) {
	cmd.PersistentFlags().StringVarP(key, "key", "k", "./config/owner_key.json", "signing key file")
}

// parseAmount reads a wei amount; an "ether" suffix scales a whole number of
// ether.
func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	mul := big.NewInt(1)
	if v, ok := strings.CutSuffix(s, "ether"); ok {
		s = strings.TrimSpace(v)
		mul = big.NewInt(params.Ether)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v.Mul(v, mul), nil
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	keyFlag(cmd, &args.Key)
	cmd.PersistentFlags().Int64VarP(&args.Nonce, "nonce", "n", -1, "account nonce, queried when negative")
}
