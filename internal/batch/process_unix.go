// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package batch

import (
	"errors"
	"os"
	"syscall"
)

// ProcessAlive reports whether a process with the pid exists on this host.
// Stubbed in tests.
var ProcessAlive = func(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = p.Signal(syscall.Signal(0))

	return err == nil || errors.Is(err, syscall.EPERM)
}
