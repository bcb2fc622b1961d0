/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/store/connection"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const (
	// DefaultMaxRetries is the number of delivery retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultRetryInterval is the wait between delivery attempts.
	DefaultRetryInterval = 500 * time.Millisecond
)

var logger = log.New("aries-framework/didcomm/dispatcher")

// provider interface for outbound ctx.
type provider interface {
	OutboundTransports() []transport.OutboundTransport
	StorageProvider() storage.Provider
}

type connectionLookup interface {
	GetConnectionRecord(string) (*connection.Record, error)
}

// Dispatcher dispatch msgs to destination.
type Dispatcher struct {
	outboundTransports []transport.OutboundTransport
	connections        connectionLookup
	maxRetries         uint64
	retryInterval      time.Duration
}

// Opt configures the Dispatcher.
type Opt func(o *Dispatcher)

// WithRetry sets how often and how far apart a failed delivery is retried.
func WithRetry(maxRetries uint64, interval time.Duration) Opt {
	return func(o *Dispatcher) {
		o.maxRetries = maxRetries
		o.retryInterval = interval
	}
}

// NewOutbound return new dispatcher outbound instance.
func NewOutbound(prov provider, opts ...Opt) (*Dispatcher, error) {
	o := &Dispatcher{
		outboundTransports: prov.OutboundTransports(),
		maxRetries:         DefaultMaxRetries,
		retryInterval:      DefaultRetryInterval,
	}

	for _, opt := range opts {
		opt(o)
	}

	var err error

	o.connections, err = connection.NewLookup(prov)
	if err != nil {
		return nil, fmt.Errorf("failed to init connection lookup: %w", err)
	}

	return o, nil
}

// Send delivers the message to the service endpoint of its connection.
func (o *Dispatcher) Send(ctx context.Context, msg *service.OutboundMessage) error {
	if msg == nil || msg.Message == nil {
		return errors.New("outbound message is empty")
	}

	return o.SendTo(ctx, msg.Message, &service.Destination{ConnectionID: msg.ConnectionID})
}

// SendTo delivers the message to the destination. A service endpoint is used as is, otherwise the
// endpoint of the destination connection is looked up.
func (o *Dispatcher) SendTo(ctx context.Context, msg service.DIDCommMsgMap, dest *service.Destination) error {
	if dest == nil {
		return errors.New("destination is empty")
	}

	endpoint := dest.ServiceEndpoint

	if endpoint == "" {
		rec, err := o.connections.GetConnectionRecord(dest.ConnectionID)
		if err != nil {
			return fmt.Errorf("get connection record: %w", err)
		}

		endpoint = rec.ServiceEndPoint
	}

	outboundTransport := o.transportFor(endpoint)
	if outboundTransport == nil {
		return fmt.Errorf("no outbound transport found for serviceEndpoint: %s", endpoint)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type(), err)
	}

	mediaType := transport.MediaTypeFor(msg.IsDIDCommV2())
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(o.retryInterval), o.maxRetries),
		ctx)

	return backoff.RetryNotify(func() error {
		sendErr := outboundTransport.Send(ctx, data, endpoint, mediaType)

		if errors.Is(sendErr, transport.ErrRecipientRejected) {
			return backoff.Permanent(sendErr)
		}

		return sendErr
	}, policy, func(err error, wait time.Duration) {
		logger.Warnf("delivering %s to %s failed, retrying in %s: %s", msg.Type(), endpoint, wait, err)
	})
}

func (o *Dispatcher) transportFor(endpoint string) transport.OutboundTransport {
	for _, v := range o.outboundTransports {
		if v.AcceptRecipient(endpoint) {
			return v
		}
	}

	return nil
}
