// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The host step loop waits between failed steps with exponential
// backoff. It takes a Clock instead of calling time.After directly so
// tests can drive the backoff deterministically:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop.Run(ctx)
//	fake.WaitForTimers(1)        // loop is waiting on a backoff
//	fake.Advance(2 * time.Second) // release it
package clock
