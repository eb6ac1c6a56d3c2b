// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package batch runs an ordered list of prompts against a chat capability and records progress
// in a checkpoint file so an interrupted or failed run can be resumed.
//
// A run is described by a State: the inputs, one output slot per input and a cursor counting
// the contiguous outputs filled from the start. The state is a plain value. Every operation on
// it is a free function: NewState, Advance, Done, Open, Texts, Chats and Progress.
//
// Two executors drive a state forward. RunSequential sends one prompt at a time and saves after
// every job. RunParallel splits the remaining prompts into chunks, sends each chunk to a pool of
// workers and commits the chunk as a whole, retrying it up to a bound when any job fails.
//
// Run ties it together: it opens or resumes the checkpoint, picks the executor and reports the
// outcome.
package batch
