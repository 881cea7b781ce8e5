package main

import (
	"context"
	"fmt"

	"github.com/calehh/surety-app/crypto"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type flightArguments struct {
	txArguments
	Airline   string
	Code      string
	Timestamp uint64
}

var flightArgs flightArguments

func (a *flightArguments) flight() (f tx.FlightTx, err error) {
	f.Airline, err = parseAddress(a.Airline)
	if err != nil {
		return
	}
	if a.Code == "" {
		return f, fmt.Errorf("flight code is required")
	}
	f.Code = a.Code
	f.Timestamp = a.Timestamp
	return
}

var flightCmd = &cobra.Command{
	Use:   "flight",
	Short: "Register flights, request and report their status",
}

var registerFlightCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a future flight of the signing airline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flightArgs.Airline == "" {
			key, err := crypto.LoadKeyFile(flightArgs.Key)
			if err != nil {
				return err
			}
			flightArgs.Airline = key.Address.Hex()
		}
		f, err := flightArgs.flight()
		if err != nil {
			return err
		}
		return sendTx(&flightArgs.txArguments, tx.SuretyTxTypeRegisterFlight, nil, &tx.RegisterFlightTx{FlightTx: f})
	},
}

var fetchFlightCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Ask the oracles for a flight's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := flightArgs.flight()
		if err != nil {
			return err
		}
		return sendTx(&flightArgs.txArguments, tx.SuretyTxTypeFetchFlightStatus, nil, &tx.FetchFlightStatusTx{FlightTx: f})
	},
}

var reportFlightCmd = &cobra.Command{
	Use:   "report <status>",
	Short: "Report a flight's status as an authorized oracle relay",
	Long:  "status is one of on_time, late_airline, late_weather, late_technical, late_other",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := flightArgs.flight()
		if err != nil {
			return err
		}
		status, err := types.ParseFlightStatus(args[0])
		if err != nil {
			return err
		}
		return sendTx(&flightArgs.txArguments, tx.SuretyTxTypeUpdateFlightStatus, nil, &tx.UpdateFlightStatusTx{FlightTx: f, Status: status})
	},
}

var listFlightsCmd = &cobra.Command{
	Use:   "list [key]",
	Short: "List flights open for purchase, or show one by key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if len(args) == 1 {
			var f types.Flight
			if err := abciQuery(ctx, flightArgs.Url, "/flights/", common.HexToHash(args[0]).Bytes(), &f); err != nil {
				return err
			}
			printJSON(f)
			return nil
		}
		var flights []*types.Flight
		if err := abciQuery(ctx, flightArgs.Url, "/flights/", nil, &flights); err != nil {
			return err
		}
		printJSON(flights)
		return nil
	},
}

func flightFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flightArgs.Airline, "airline", "a", "", "airline address, defaults to the signer on register")
	cmd.Flags().StringVarP(&flightArgs.Code, "code", "c", "", "flight code")
	cmd.Flags().Uint64VarP(&flightArgs.Timestamp, "timestamp", "t", 0, "scheduled departure, unix seconds")
}

func init() {
	txFlags(flightCmd, &flightArgs.txArguments)
	flightFlags(registerFlightCmd)
	flightFlags(fetchFlightCmd)
	flightFlags(reportFlightCmd)
	flightCmd.AddCommand(registerFlightCmd, fetchFlightCmd, reportFlightCmd, listFlightsCmd)
}
