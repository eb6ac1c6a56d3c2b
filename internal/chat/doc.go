// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package chat defines the request/response capability that batch jobs are run against.
// A Prompt is either a single piece of text or an ordered conversation of messages.
// Capabilities are built by a Factory so that every worker can own an independent instance
// carrying the same configuration.
package chat
