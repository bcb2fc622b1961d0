/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"net/http"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command/connection"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

// constants for connection management endpoints.
const (
	OperationID    = "/connections"
	ConnectionPath = OperationID + "/{" + idVar + "}"

	idVar = "id"
)

type provider interface {
	StorageProvider() storage.Provider
}

// Operation is the REST controller for connection management.
type Operation struct {
	command  *connection.Command
	handlers []rest.Handler
}

// New returns new connection management rest client protocol instance.
func New(p provider) (*Operation, error) {
	cmd, err := connection.New(p)
	if err != nil {
		return nil, err
	}

	op := &Operation{
		command: cmd,
	}

	op.registerHandler()

	return op, nil
}

// GetRESTHandlers get all controller API handlers available for this service.
func (c *Operation) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

// registerHandler register handlers to be exposed from this service as REST API endpoints.
func (c *Operation) registerHandler() {
	c.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(OperationID, http.MethodPost, c.SaveConnection),
		cmdutil.NewHTTPHandler(OperationID, http.MethodGet, c.QueryConnections),
		cmdutil.NewHTTPHandler(ConnectionPath, http.MethodGet, c.GetConnection),
		cmdutil.NewHTTPHandler(ConnectionPath, http.MethodDelete, c.RemoveConnection),
	}
}

// SaveConnection swagger:route POST /connections connections saveConnection
//
// Registers a connection the exchanges can run on.
//
// Responses:
//    default: genericError
//        200: connectionResponse
func (c *Operation) SaveConnection(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SaveConnection, rw, req.Body)
}

// QueryConnections swagger:route GET /connections connections queryConnections
//
// Lists the stored connections.
//
// Responses:
//    default: genericError
//        200: queryConnectionsResponse
func (c *Operation) QueryConnections(rw http.ResponseWriter, _ *http.Request) {
	rest.Execute(c.command.QueryConnections, rw, nil)
}

// GetConnection swagger:route GET /connections/{id} connections getConnection
//
// Returns a stored connection.
//
// Responses:
//    default: genericError
//        200: connectionResponse
func (c *Operation) GetConnection(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.GetConnection, connection.InvalidRequestErrorCode, rw, req, idVar)
}

// RemoveConnection swagger:route DELETE /connections/{id} connections removeConnection
//
// Removes a stored connection.
//
// Responses:
//    default: genericError
func (c *Operation) RemoveConnection(rw http.ResponseWriter, req *http.Request) {
	cmdutil.ExecuteWithVars(c.command.RemoveConnection, connection.InvalidRequestErrorCode, rw, req, idVar)
}
