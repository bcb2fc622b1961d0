/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller/command"
)

var logger = log.New("aries-framework/controller/rest")

// Handler http handler for each controller API endpoint.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}

// genericErrorBody is the body of every error response.
type genericErrorBody struct {
	Code    command.Code `json:"code"`
	Message string       `json:"message"`
}

// Execute executes given command with args provided and writes command error to the response writer.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	var buf bytes.Buffer

	if err := exec(&buf, req); err != nil {
		SendError(rw, err)

		return
	}

	rw.Header().Set("Content-Type", "application/json")

	if _, err := buf.WriteTo(rw); err != nil {
		logger.Errorf("Unable to send response, %s", err)
	}
}

// SendError sends command error as http response in generic error format.
func SendError(rw http.ResponseWriter, err command.Error) {
	var status int

	switch err.Type() {
	case command.ValidationError:
		status = http.StatusBadRequest
	case command.NotFoundError:
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
	}

	SendHTTPStatusError(rw, status, err.Code(), err)
}

// SendHTTPStatusError sends given http status code to response with error body.
func SendHTTPStatusError(rw http.ResponseWriter, httpStatus int, code command.Code, err error) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(httpStatus)

	if e := json.NewEncoder(rw).Encode(genericErrorBody{Code: code, Message: err.Error()}); e != nil {
		logger.Errorf("Unable to send error response, %s", e)
	}
}

// BodyWith returns the JSON object of the request body with the fields set. An empty body reads as {}.
func BodyWith(req *http.Request, fields map[string]string) (io.Reader, error) {
	obj := map[string]interface{}{}

	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}

		if len(bytes.TrimSpace(raw)) > 0 {
			if err = json.Unmarshal(raw, &obj); err != nil {
				return nil, fmt.Errorf("request body is not a JSON object: %w", err)
			}
		}
	}

	for k, v := range fields {
		obj[k] = v
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(raw), nil
}
