package main

import (
	"context"

	"github.com/calehh/surety-app/app"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	"github.com/spf13/cobra"
)

var (
	gateArgs    txArguments
	gateSurface string
	gateRevoke  bool
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Pause surfaces and manage authorized callers",
}

var pauseCmd = &cobra.Command{
	Use:   "pause <true|false>",
	Short: "Set the paused flag of a surface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		surface, err := types.ParseSurface(gateSurface)
		if err != nil {
			return err
		}
		var paused bool
		switch args[0] {
		case "true", "on":
			paused = true
		case "false", "off":
		default:
			return cmd.Usage()
		}
		return sendTx(&gateArgs, tx.SuretyTxTypeSetPaused, nil, &tx.SetPausedTx{Surface: surface, Paused: paused})
	},
}

var authorizeCmd = &cobra.Command{
	Use:   "authorize <caller>",
	Short: "Authorize a caller on a surface, or revoke it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		surface, err := types.ParseSurface(gateSurface)
		if err != nil {
			return err
		}
		caller, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return sendTx(&gateArgs, tx.SuretyTxTypeAuthorizeCaller, nil, &tx.AuthorizeCallerTx{
			Surface:    surface,
			Caller:     caller,
			Authorized: !gateRevoke,
		})
	},
}

var pausedCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the paused flag of both surfaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var res app.PausedResult
		if err := abciQuery(context.Background(), gateArgs.Url, "/paused/", nil, &res); err != nil {
			return err
		}
		printJSON(res)
		return nil
	},
}

func init() {
	txFlags(gateCmd, &gateArgs)
	gateCmd.PersistentFlags().StringVarP(&gateSurface, "surface", "s", "app", "surface, data or app")
	authorizeCmd.Flags().BoolVar(&gateRevoke, "revoke", false, "revoke instead of authorize")
	gateCmd.AddCommand(pauseCmd, authorizeCmd, pausedCmd)
}
