/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/exchange"
)

const staleReason = "exchange timed out"

type exchangeService interface {
	Name() string
	Records(ctx context.Context, filter exchange.RecordFilter) ([]*exchange.Record, error)
	DeclineIf(ctx context.Context, recordID, reason string, cond func(rec *exchange.Record) bool) (*exchange.Record,
		error)
}

// sweeper abandons the exchanges that did not move for longer than the timeout.
type sweeper struct {
	timeout   time.Duration
	services  []exchangeService
	scheduler *gocron.Scheduler
	now       func() time.Time
}

func newSweeper(timeout time.Duration, services ...exchangeService) *sweeper {
	return &sweeper{
		timeout:   timeout,
		services:  services,
		scheduler: gocron.NewScheduler(time.UTC),
		now:       time.Now,
	}
}

// start runs a sweep every tenth of the timeout, at least once a second.
func (s *sweeper) start() error {
	interval := s.timeout / 10 // nolint:gomnd
	if interval < time.Second {
		interval = time.Second
	}

	if _, err := s.scheduler.Every(interval).Do(s.sweep); err != nil {
		return fmt.Errorf("schedule stale exchange sweep: %w", err)
	}

	s.scheduler.StartAsync()

	return nil
}

func (s *sweeper) stop() {
	s.scheduler.Stop()
}

// sweep declines the stale exchanges and returns how many were abandoned. Staleness is checked again
// under the record lock, so an exchange that moves on meanwhile is left alone.
func (s *sweeper) sweep() int {
	ctx := context.Background()
	deadline := s.now().Add(-s.timeout)

	stale := func(rec *exchange.Record) bool {
		return !rec.State.IsTerminal() && !rec.UpdatedAt.After(deadline)
	}

	var abandoned int

	for _, svc := range s.services {
		records, err := svc.Records(ctx, exchange.RecordFilter{})
		if err != nil {
			logger.Errorf("sweep %s: list exchanges: %s", svc.Name(), err)

			continue
		}

		for _, rec := range records {
			if !stale(rec) {
				continue
			}

			declined, err := svc.DeclineIf(ctx, rec.ID, staleReason, stale)

			switch {
			case declined == nil && errors.Is(err, exchange.ErrPrecondition):
				logger.Debugf("sweep %s: exchange %s moved on: %s", svc.Name(), rec.ID, err)

				continue
			case declined == nil:
				logger.Warnf("sweep %s: decline exchange %s: %s", svc.Name(), rec.ID, err)

				continue
			case err != nil:
				logger.Warnf("sweep %s: exchange %s abandoned, problem report not sent: %s", svc.Name(), rec.ID, err)
			}

			logger.Infof("sweep %s: exchange %s abandoned after %s in state %s", svc.Name(), rec.ID,
				s.timeout, rec.State)

			abandoned++
		}
	}

	return abandoned
}
