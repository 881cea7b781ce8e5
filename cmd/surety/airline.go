package main

import (
	"context"

	"github.com/calehh/surety-app/app"
	"github.com/calehh/surety-app/surety"
	"github.com/calehh/surety-app/tx"
	"github.com/spf13/cobra"
)

var airlineArgs txArguments

var airlineCmd = &cobra.Command{
	Use:   "airline",
	Short: "Register, fund and inspect airlines",
}

var registerAirlineCmd = &cobra.Command{
	Use:   "register <address>",
	Short: "Register an airline or vote for its registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return sendTx(&airlineArgs, tx.SuretyTxTypeRegisterAirline, nil, &tx.RegisterAirlineTx{Airline: addr})
	},
}

var fundAirlineCmd = &cobra.Command{
	Use:   "fund <amount>",
	Short: "Fund the signing airline, in wei or with an ether suffix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return sendTx(&airlineArgs, tx.SuretyTxTypeFundAirline, value, &tx.FundAirlineTx{})
	},
}

var resetVotesCmd = &cobra.Command{
	Use:   "reset <candidate>",
	Short: "Abandon the registration votes collected by a candidate, owner only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return sendTx(&airlineArgs, tx.SuretyTxTypeResetAirlineVotes, nil, &tx.ResetAirlineVotesTx{Airline: addr})
	},
}

var airlineStatusCmd = &cobra.Command{
	Use:   "status [address]",
	Short: "Show one airline, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if len(args) == 0 {
			var res app.AirlineResult
			if err := abciQuery(ctx, airlineArgs.Url, "/airlines/", nil, &res); err != nil {
				return err
			}
			printJSON(res)
			return nil
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		var status surety.AirlineStatus
		if err := abciQuery(ctx, airlineArgs.Url, "/airlines/", addr.Bytes(), &status); err != nil {
			return err
		}
		printJSON(status)
		return nil
	},
}

var airlineVotesCmd = &cobra.Command{
	Use:   "votes <candidate>",
	Short: "Show the registration votes collected by a candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		var res app.VoteResult
		if err := abciQuery(context.Background(), airlineArgs.Url, "/votes/", addr.Bytes(), &res); err != nil {
			return err
		}
		printJSON(res)
		return nil
	},
}

func init() {
	txFlags(airlineCmd, &airlineArgs)
	airlineCmd.AddCommand(registerAirlineCmd, fundAirlineCmd, resetVotesCmd, airlineStatusCmd, airlineVotesCmd)
}
