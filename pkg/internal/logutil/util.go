/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logutil formats the log lines of controller commands.
package logutil

import (
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
)

const (
	recordIDKey     = "record_id"
	connectionIDKey = "connection_id"
)

// LogError logs a failed command action.
func LogError(logger *log.Log, command, action, errMsg string, data ...string) {
	logger.Errorf("command=[%s] action=[%s]%s errMsg=[%s]", command, action, fields(data), errMsg)
}

// LogDebug logs a command action.
func LogDebug(logger *log.Log, command, action, msg string, data ...string) {
	logger.Debugf("command=[%s] action=[%s]%s msg=[%s]", command, action, fields(data), msg)
}

// RecordID is the log field of an exchange record.
func RecordID(id string) string {
	return CreateKeyValueString(recordIDKey, id)
}

// ConnectionID is the log field of a connection.
func ConnectionID(id string) string {
	return CreateKeyValueString(connectionIDKey, id)
}

// CreateKeyValueString formats a log field as key=[val].
func CreateKeyValueString(key, val string) string {
	return fmt.Sprintf("%s=[%s]", key, val)
}

func fields(data []string) string {
	if len(data) == 0 {
		return ""
	}

	return " " + strings.Join(data, " ")
}
