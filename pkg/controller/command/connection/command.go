/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/internal/logutil"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/store/connection"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

var logger = log.New("aries-framework/controller/connection")

// Error codes.
const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Connection)
	// SaveConnectionErrorCode is for failures while saving a connection.
	SaveConnectionErrorCode
	// GetConnectionErrorCode is for failures while reading a connection.
	GetConnectionErrorCode
	// QueryConnectionsErrorCode is for failures while listing connections.
	QueryConnectionsErrorCode
	// RemoveConnectionErrorCode is for failures while removing a connection.
	RemoveConnectionErrorCode
)

// constants for connection management commands.
const (
	CommandName = "connection"

	SaveConnectionCommandMethod   = "SaveConnection"
	GetConnectionCommandMethod    = "GetConnection"
	QueryConnectionsCommandMethod = "QueryConnections"
	RemoveConnectionCommandMethod = "RemoveConnection"

	errEmptyConnID = "empty connection ID"
	successString  = "success"
)

type provider interface {
	StorageProvider() storage.Provider
}

// Command is controller command for connection management.
type Command struct {
	recorder *connection.Recorder
}

// New returns new connection management command instance.
func New(p provider) (*Command, error) {
	recorder, err := connection.NewRecorder(p)
	if err != nil {
		return nil, fmt.Errorf("create connection recorder: %w", err)
	}

	return &Command{recorder: recorder}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, SaveConnectionCommandMethod, c.SaveConnection),
		cmdutil.NewCommandHandler(CommandName, GetConnectionCommandMethod, c.GetConnection),
		cmdutil.NewCommandHandler(CommandName, QueryConnectionsCommandMethod, c.QueryConnections),
		cmdutil.NewCommandHandler(CommandName, RemoveConnectionCommandMethod, c.RemoveConnection),
	}
}

// SaveConnection stores a connection the exchanges can be bound to.
func (c *Command) SaveConnection(rw io.Writer, req io.Reader) command.Error {
	var args SaveConnectionArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogError(logger, CommandName, SaveConnectionCommandMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	record := &connection.Record{
		ConnectionID:    args.ConnectionID,
		TheirLabel:      args.TheirLabel,
		TheirDID:        args.TheirDID,
		MyDID:           args.MyDID,
		ServiceEndPoint: args.ServiceEndpoint,
		RecipientKeys:   args.RecipientKeys,
	}

	if err := c.recorder.SaveConnectionRecord(record); err != nil {
		logutil.LogError(logger, CommandName, SaveConnectionCommandMethod, err.Error())

		return command.NewValidationError(SaveConnectionErrorCode, err)
	}

	command.WriteResponse(rw, &ConnectionResponse{Result: record}, logger)

	logutil.LogDebug(logger, CommandName, SaveConnectionCommandMethod, successString,
		logutil.ConnectionID(record.ConnectionID))

	return nil
}

// GetConnection returns a stored connection.
func (c *Command) GetConnection(rw io.Writer, req io.Reader) command.Error {
	id, cmdErr := decodeID(req, GetConnectionCommandMethod)
	if cmdErr != nil {
		return cmdErr
	}

	record, err := c.recorder.GetConnectionRecord(id)
	if err != nil {
		logutil.LogError(logger, CommandName, GetConnectionCommandMethod, err.Error(),
			logutil.ConnectionID(id))

		return toCommandError(GetConnectionErrorCode, err)
	}

	command.WriteResponse(rw, &ConnectionResponse{Result: record}, logger)

	logutil.LogDebug(logger, CommandName, GetConnectionCommandMethod, successString,
		logutil.ConnectionID(id))

	return nil
}

// QueryConnections lists the stored connections.
func (c *Command) QueryConnections(rw io.Writer, _ io.Reader) command.Error {
	records, err := c.recorder.QueryConnectionRecords()
	if err != nil {
		logutil.LogError(logger, CommandName, QueryConnectionsCommandMethod, err.Error())

		return command.NewExecuteError(QueryConnectionsErrorCode, err)
	}

	command.WriteResponse(rw, &QueryConnectionsResponse{Results: records}, logger)

	logutil.LogDebug(logger, CommandName, QueryConnectionsCommandMethod, successString)

	return nil
}

// RemoveConnection removes a stored connection.
func (c *Command) RemoveConnection(rw io.Writer, req io.Reader) command.Error {
	id, cmdErr := decodeID(req, RemoveConnectionCommandMethod)
	if cmdErr != nil {
		return cmdErr
	}

	if err := c.recorder.RemoveConnection(id); err != nil {
		logutil.LogError(logger, CommandName, RemoveConnectionCommandMethod, err.Error(),
			logutil.ConnectionID(id))

		return toCommandError(RemoveConnectionErrorCode, err)
	}

	command.WriteResponse(rw, nil, logger)

	logutil.LogDebug(logger, CommandName, RemoveConnectionCommandMethod, successString,
		logutil.ConnectionID(id))

	return nil
}

func decodeID(req io.Reader, method string) (string, command.Error) {
	var args IDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogError(logger, CommandName, method, err.Error())

		return "", command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ID == "" {
		logutil.LogError(logger, CommandName, method, errEmptyConnID)

		return "", command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnID))
	}

	return args.ID, nil
}

func toCommandError(code command.Code, err error) command.Error {
	if errors.Is(err, connection.ErrConnectionNotFound) {
		return command.NewNotFoundError(code, err)
	}

	return command.NewExecuteError(code, err)
}
