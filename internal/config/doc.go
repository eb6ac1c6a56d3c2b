// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config reads run files.
//
// A run file names the prompts, the chat provider and the execution settings of a batch.
// It can be written in YAML or HCL, and fetched from any location supported by go-getter.
//
// YAML:
//
//	name: sentiment
//	checkpoint: runs/sentiment.json
//	mode: structured
//	strategy: parallel
//	workers: 4
//	chunk_size: 8
//	chat:
//	  provider: openai
//	  model: gpt-4o-mini
//	prompts:
//	  - "Classify: I love it"
//	  - messages:
//	      - role: user
//	        content: "Classify: meh"
//
// HCL:
//
//	name       = "sentiment"
//	checkpoint = "runs/sentiment.json"
//	prompts    = ["Classify: I love it"]
//
//	chat "openai" {
//	  model   = "gpt-4o-mini"
//	  api_key_env = "OPENAI_API_KEY"
//	}
package config
