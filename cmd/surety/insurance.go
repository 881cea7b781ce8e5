package main

import (
	"context"

	"github.com/calehh/surety-app/crypto"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var insuranceArgs flightArguments

var insuranceCmd = &cobra.Command{
	Use:   "insurance",
	Short: "Buy flight delay policies and withdraw credit",
}

var buyCmd = &cobra.Command{
	Use:   "buy <premium>",
	Short: "Buy a policy for a flight, premium in wei or with an ether suffix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		premium, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		f, err := insuranceArgs.flight()
		if err != nil {
			return err
		}
		return sendTx(&insuranceArgs.txArguments, tx.SuretyTxTypeBuy, premium, &tx.BuyTx{FlightTx: f})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw all credited payouts to the signer's balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&insuranceArgs.txArguments, tx.SuretyTxTypeWithdraw, nil, &tx.WithdrawTx{})
	},
}

var policyCmd = &cobra.Command{
	Use:   "policy [insuree]",
	Short: "Show an insuree's policies, or one policy when a flight is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var insuree common.Address
		if len(args) == 1 {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			insuree = addr
		} else {
			key, err := crypto.LoadKeyFile(insuranceArgs.Key)
			if err != nil {
				return err
			}
			insuree = key.Address
		}
		ctx := context.Background()
		if insuranceArgs.Code == "" {
			var policies []*types.Policy
			if err := abciQuery(ctx, insuranceArgs.Url, "/policies/", insuree.Bytes(), &policies); err != nil {
				return err
			}
			printJSON(policies)
			return nil
		}
		f, err := insuranceArgs.flight()
		if err != nil {
			return err
		}
		key := types.FlightKey(f.Airline, f.Code, f.Timestamp)
		var p types.Policy
		if err := abciQuery(ctx, insuranceArgs.Url, "/policies/", append(key.Bytes(), insuree.Bytes()...), &p); err != nil {
			return err
		}
		printJSON(p)
		return nil
	},
}

func init() {
	txFlags(insuranceCmd, &insuranceArgs.txArguments)
	for _, c := range []*cobra.Command{buyCmd, policyCmd} {
		c.Flags().StringVarP(&insuranceArgs.Airline, "airline", "a", "", "airline address")
		c.Flags().StringVarP(&insuranceArgs.Code, "code", "c", "", "flight code")
		c.Flags().Uint64VarP(&insuranceArgs.Timestamp, "timestamp", "t", 0, "scheduled departure, unix seconds")
	}
	insuranceCmd.AddCommand(buyCmd, withdrawCmd, policyCmd)
}
