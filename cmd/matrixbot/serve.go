// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/matrixbot/backend"
	"github.com/bureau-foundation/matrixbot/lib/clock"
	"github.com/bureau-foundation/matrixbot/lib/netutil"
	"github.com/bureau-foundation/matrixbot/messaging"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// stepper is the part of *backend.Backend the serve loop drives.
type stepper interface {
	ServeOnce(ctx context.Context) (bool, error)
	ConsecutiveFailures() int
	CloseIdleConnections()
}

// serveLoop calls ServeOnce until it reports shutdown. Failed steps are
// retried after backoff; a permanent login rejection ends the loop. The
// loop keeps stepping after ctx is cancelled so the backend can log out
// and report shutdown itself.
func serveLoop(ctx context.Context, bot stepper, clk clock.Clock, logger *slog.Logger) error {
	for {
		done, err := bot.ServeOnce(ctx)
		if done {
			return nil
		}
		if err == nil {
			continue
		}

		var authErr *backend.AuthenticationError
		if errors.As(err, &authErr) && authErr.Permanent() {
			logger.Error("login rejected", "error", err)
			return err
		}

		if netutil.IsExpectedCloseError(err) {
			bot.CloseIdleConnections()
		}

		failures := bot.ConsecutiveFailures()
		delay := retryDelay(failures, err)
		logger.Warn("serve step failed, retrying",
			"error", err,
			"consecutive_failures", failures,
			"retry_in", delay,
		)

		select {
		case <-ctx.Done():
		case <-clk.After(delay):
		}
	}
}

// retryDelay doubles from initialBackoff per consecutive failure up to
// maxBackoff. A homeserver rate limit that asks for longer wins.
func retryDelay(failures int, err error) time.Duration {
	delay := initialBackoff
	for range max(failures-1, 0) {
		delay *= 2
		if delay >= maxBackoff {
			delay = maxBackoff
			break
		}
	}
	if matrixErr, ok := messaging.AsMatrixError(err); ok && matrixErr.RetryAfter() > delay {
		delay = matrixErr.RetryAfter()
	}
	return delay
}
