package main

import (
	"fmt"
	"os"
)

func main() {
	nodeCmd.AddCommand(initCmd)
	nodeCmd.AddCommand(versionCmd)
	nodeCmd.AddCommand(accountCmd)
	nodeCmd.AddCommand(airlineCmd)
	nodeCmd.AddCommand(flightCmd)
	nodeCmd.AddCommand(insuranceCmd)
	nodeCmd.AddCommand(gateCmd)
	if err := nodeCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
