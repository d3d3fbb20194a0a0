// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`

	// System overrides the default system persona for this call. The
	// query interpreter uses it to pin the model to the schema prompt.
	System string `json:"system,omitempty"`

	// JSONMode forces the model to emit a single JSON object. Both the
	// query and update interpreters rely on this; freeform replies are
	// rejected downstream.
	JSONMode bool `json:"json_mode,omitempty"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
