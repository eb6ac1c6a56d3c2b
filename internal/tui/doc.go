// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui shows the progress of a batch run in a full screen terminal view.
// Pressing q or ctrl+c asks the run to stop at the next safe point, pressing it again after the
// run has stopped exits.
package tui
