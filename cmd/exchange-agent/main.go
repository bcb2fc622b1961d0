/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package exchange-agent (Credential and Proof Exchange Agent) of aries-framework-go-exchange.
//
//
// Terms Of Service:
//
//
//     Schemes: https
//     Version: 0.1.0
//     License: SPDX-License-Identifier: Apache-2.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go-exchange/cmd/exchange-agent/startcmd"
	"github.com/hyperledger/aries-framework-go-exchange/component/log"
)

// This is an application which starts the exchange agent controller API and DIDComm endpoint on given port.
func main() {
	rootCmd := &cobra.Command{
		Use: "exchange-agent",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("aries-framework/exchange-agent")

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run exchange-agent: %s", err)
	}
}
