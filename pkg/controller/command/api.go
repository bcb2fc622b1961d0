/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"encoding/json"
	"io"

	"github.com/hyperledger/aries-framework-go-exchange/spi/log"
)

// Exec runs a controller command, reading its JSON arguments from req and writing its JSON result to rw.
type Exec func(rw io.Writer, req io.Reader) Error

// Handler for each controller command.
type Handler interface {
	Name() string
	Method() string
	Handle() Exec
}

// Notifier delivers protocol events to the webhooks of the agent.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// WriteResponse writes v to w as JSON, or {} when v is nil. Write failures are only logged since the
// command has already completed.
func WriteResponse(w io.Writer, v interface{}, l log.Logger) {
	if v == nil {
		v = map[string]interface{}{}
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Errorf("unable to write command response: %s", err)
	}
}
