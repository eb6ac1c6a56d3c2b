// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries real-time updates out of a running batch.
// Executors emit Events through a Reporter; sound or bell cues go through a Notifier.
// Both are fire-and-forget: nothing they return is consumed by the executor.
package progress
