/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/rest"
)

// HTTPHandler binds a REST route to its handler.
type HTTPHandler struct {
	path   string
	method string
	handle http.HandlerFunc
}

// NewHTTPHandler returns the handler of method requests on path.
func NewHTTPHandler(path, method string, handle http.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{path: path, method: method, handle: handle}
}

// Path of the route.
func (h *HTTPHandler) Path() string { return h.path }

// Method of the route.
func (h *HTTPHandler) Method() string { return h.method }

// Handle returns the route handler.
func (h *HTTPHandler) Handle() http.HandlerFunc { return h.handle }

// ExecuteWithVars runs exec with the named route variables merged into the JSON request body.
// A body that is not a JSON object is answered with 400 and code.
func ExecuteWithVars(exec command.Exec, code command.Code, rw http.ResponseWriter, req *http.Request, vars ...string) {
	routeVars := mux.Vars(req)
	fields := make(map[string]string, len(vars))

	for _, name := range vars {
		fields[name] = routeVars[name]
	}

	body, err := rest.BodyWith(req, fields)
	if err != nil {
		rest.SendHTTPStatusError(rw, http.StatusBadRequest, code, err)

		return
	}

	rest.Execute(exec, rw, body)
}

// CommandHandler binds a controller command name and method to its executor.
type CommandHandler struct {
	name   string
	method string
	handle command.Exec
}

// NewCommandHandler returns the handler of the method command of the named controller.
func NewCommandHandler(name, method string, exec command.Exec) *CommandHandler {
	return &CommandHandler{name: name, method: method, handle: exec}
}

// Name of the controller.
func (c *CommandHandler) Name() string {
	return c.name
}

// Method of the command.
func (c *CommandHandler) Method() string {
	return c.method
}

// Handle returns the command executor.
func (c *CommandHandler) Handle() command.Exec {
	return c.handle
}
