// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

// ExampleYAML is a commented run file printed by the config command.
const ExampleYAML = `# chatbatch run file
name: sentiment
description: Classify product reviews

# Where progress is recorded. Running the same file again resumes from here.
checkpoint: runs/sentiment.checkpoint.json

# text keeps the raw reply, structured decodes a JSON object from it.
mode: structured

# sequential sends one prompt at a time.
# parallel sends chunks of prompts to a pool of workers and commits each chunk as a whole.
strategy: parallel
workers: 4
chunk_size: 8

# A failing chunk is sent again up to max_tries times.
max_tries: 3
retry_delay: 0s
retry_jitter: 0

# Ring the terminal bell when the run stops.
notify: true

chat:
  provider: openai          # openai or exec
  model: gpt-4o-mini
  api_key_env: OPENAI_API_KEY
  system_prompt: >
    Reply with a JSON object {"sentiment": "positive|negative|neutral"}.
  temperature: 0

  # provider: exec
  # command: ./my-model.sh
  # args: ["--quiet"]

prompts:
  - "Review: The battery lasts forever."
  - text: "Review: It broke after a day."
  - messages:
      - role: user
        content: "Review: It is fine I guess."

# More prompts, one per line, or a YAML/JSON list.
# prompts_file: reviews.txt
`
