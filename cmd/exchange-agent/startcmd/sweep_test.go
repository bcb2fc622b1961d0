/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/formats/attribute"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/framework/aries"
)

func TestSweeper(t *testing.T) {
	framework, err := aries.New()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, framework.Close()) })

	ctx, err := framework.Context()
	require.NoError(t, err)

	svc, err := ctx.Service(issuecredential.Name)
	require.NoError(t, err)

	icsvc := svc.(*issuecredential.Service)

	offer, _, err := icsvc.CreateOffer(context.Background(), &exchange.CreateOptions{
		Options: exchange.Options{
			Formats: map[string]interface{}{
				attribute.Key: map[string]interface{}{"attributes": map[string]interface{}{"name": "Alice"}},
			},
		},
	})
	require.NoError(t, err)

	s := newSweeper(time.Hour, icsvc)

	t.Run("recent exchanges are kept", func(t *testing.T) {
		require.Zero(t, s.sweep())

		rec, err := icsvc.GetRecord(context.Background(), offer.ID)
		require.NoError(t, err)
		require.Equal(t, exchange.StateOfferSent, rec.State)
	})

	t.Run("stale exchanges are abandoned", func(t *testing.T) {
		s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		require.Equal(t, 1, s.sweep())

		rec, err := icsvc.GetRecord(context.Background(), offer.ID)
		require.NoError(t, err)
		require.Equal(t, exchange.StateAbandoned, rec.State)
		require.Contains(t, rec.ErrorMessage, staleReason)

		require.Zero(t, s.sweep())
	})
}

// outdatedListing lists the records as they were two hours ago.
type outdatedListing struct {
	*issuecredential.Service
}

func (o outdatedListing) Records(ctx context.Context, filter exchange.RecordFilter) ([]*exchange.Record, error) {
	records, err := o.Service.Records(ctx, filter)

	for _, rec := range records {
		rec.UpdatedAt = rec.UpdatedAt.Add(-2 * time.Hour)
	}

	return records, err
}

func TestSweeper_RecheckUnderLock(t *testing.T) {
	framework, err := aries.New()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, framework.Close()) })

	ctx, err := framework.Context()
	require.NoError(t, err)

	svc, err := ctx.Service(issuecredential.Name)
	require.NoError(t, err)

	icsvc := svc.(*issuecredential.Service)

	offer, _, err := icsvc.CreateOffer(context.Background(), &exchange.CreateOptions{
		Options: exchange.Options{
			Formats: map[string]interface{}{
				attribute.Key: map[string]interface{}{"attributes": map[string]interface{}{"name": "Alice"}},
			},
		},
	})
	require.NoError(t, err)

	s := newSweeper(time.Hour, outdatedListing{Service: icsvc})
	require.Zero(t, s.sweep())

	rec, err := icsvc.GetRecord(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, exchange.StateOfferSent, rec.State)
}

type failingExchangeService struct {
	records  []*exchange.Record
	listErr  error
	// current is the record as the locked decline sees it.
	current  *exchange.Record
	declined *exchange.Record
	err      error
}

func (f *failingExchangeService) Name() string { return "failing" }

func (f *failingExchangeService) Records(context.Context, exchange.RecordFilter) ([]*exchange.Record, error) {
	return f.records, f.listErr
}

func (f *failingExchangeService) DeclineIf(_ context.Context, _, _ string,
	cond func(*exchange.Record) bool) (*exchange.Record, error) {
	if f.current != nil && !cond(f.current) {
		return nil, exchange.ErrPrecondition
	}

	return f.declined, f.err
}

func TestSweeper_Errors(t *testing.T) {
	stale := func() *exchange.Record {
		return &exchange.Record{ID: "r1", State: exchange.StateRequestSent, UpdatedAt: time.Now().Add(-time.Hour)}
	}

	t.Run("failures abandon nothing", func(t *testing.T) {
		s := newSweeper(time.Minute,
			&failingExchangeService{listErr: errors.New("list failed")},
			&failingExchangeService{records: []*exchange.Record{stale()}, err: errors.New("decline failed")},
		)

		require.Zero(t, s.sweep())
	})

	t.Run("abandoned without problem report counts", func(t *testing.T) {
		declined := stale()
		declined.State = exchange.StateAbandoned

		s := newSweeper(time.Minute, &failingExchangeService{
			records:  []*exchange.Record{stale()},
			current:  stale(),
			declined: declined,
			err:      errors.New("send failed"),
		})

		require.Equal(t, 1, s.sweep())
	})

	t.Run("moved on meanwhile", func(t *testing.T) {
		moved := stale()
		moved.UpdatedAt = time.Now()

		s := newSweeper(time.Minute, &failingExchangeService{
			records: []*exchange.Record{stale()},
			current: moved,
		})

		require.Zero(t, s.sweep())
	})
}

func TestSweeper_Schedule(t *testing.T) {
	svc := &failingExchangeService{}

	s := newSweeper(time.Millisecond, svc)
	require.NoError(t, s.start())

	require.Eventually(t, func() bool { return s.scheduler.IsRunning() }, time.Second, 10*time.Millisecond)

	s.stop()
	require.False(t, s.scheduler.IsRunning())
}
