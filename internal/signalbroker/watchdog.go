// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"os/signal"

	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
)

// Watch consumes sigCh until the context is done.
// The first signal of a type triggers intr, the second signal of the same type cancels the context.
func Watch(ctx context.Context, sigCh chan os.Signal, intr *Interrupt, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				ctxlog.Warn(ctx, "watchdog", "detail", "received second signal of type, forcefully terminating", "signal", sig.String())
				signal.Stop(sigCh)
				cancel()

				return
			}

			seen[sig] = struct{}{}

			ctxlog.Warn(ctx, "watchdog",
				"detail", "received signal, stopping after the current unit of work; send again to force",
				"signal", sig.String())
			intr.Trigger()
		}
	}
}
