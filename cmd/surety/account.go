package main

import (
	"context"
	"fmt"

	"github.com/calehh/surety-app/app"
	"github.com/calehh/surety-app/crypto"
	"github.com/spf13/cobra"
)

type accountArguments struct {
	Url     string
	Address string
	Out     string
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show an account's nonce, balance and insurance credit",
	RunE:  accountRun,
}

var newAccountCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a key file",
	RunE:  newAccountRun,
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	accountCmd.Flags().StringVarP(&accountArgs.Address, "address", "a", "", "account address")
	newAccountCmd.Flags().StringVarP(&accountArgs.Out, "out", "o", "key.json", "key file to write")
	accountCmd.AddCommand(newAccountCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	addr, err := parseAddress(accountArgs.Address)
	if err != nil {
		return err
	}
	var act app.AccountResult
	err = abciQuery(context.Background(), accountArgs.Url, "/accounts/", addr.Bytes(), &act)
	if err != nil {
		return err
	}
	fmt.Printf("address:%v nonce:%v balance:%v credit:%v\n",
		act.Account.Address.Hex(), act.Account.Nonce, act.Account.Balance, act.Credit)
	return nil
}

func newAccountRun(cmd *cobra.Command, args []string) error {
	key, err := crypto.GenKeyFile(accountArgs.Out)
	if err != nil {
		return err
	}
	fmt.Printf("address:%v key:%v\n", key.Address.Hex(), accountArgs.Out)
	return nil
}
