// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package update

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/homewiz/querygate/services/nlquery"
)

// Processor sequences the write pipeline: generate, normalize, execute,
// compose. Mirrors the read processor's contract: every path ends in a
// FrontendResponse and nothing panics past it.
type Processor struct {
	generator Generator
	executor  *Executor
}

func NewProcessor(generator Generator, executor *Executor) *Processor {
	if generator == nil {
		panic("update: NewProcessor called with nil generator")
	}
	if executor == nil {
		panic("update: NewProcessor called with nil executor")
	}
	return &Processor{generator: generator, executor: executor}
}

// ProcessUpdate runs one natural-language update end to end.
func (p *Processor) ProcessUpdate(ctx context.Context, naturalQuery string, user nlquery.UserContext) (resp nlquery.FrontendResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Update processing panicked", "panic", r)
			resp = nlquery.FailureResponse("Update processing failed", fmt.Sprintf("System error: %v", r))
		}
	}()

	spec := p.generator.GenerateUpdate(ctx, naturalQuery, user)
	if !spec.Success {
		errText := spec.Error
		if errText == "" {
			errText = "Failed to generate update"
		}
		return validationErrorResponse(errText, spec)
	}

	result := p.executor.Execute(ctx, spec)
	return composeResponse(result, spec)
}

// ValidationResult is the outcome of a generate-and-preview dry run: the
// specification the model produced plus the rows it would touch, with
// nothing committed.
type ValidationResult struct {
	Valid        bool             `json:"valid"`
	Spec         *Specification   `json:"update_spec,omitempty"`
	PreviewCount int              `json:"preview_count"`
	PreviewData  []map[string]any `json:"preview_data,omitempty"`
	Explanation  string           `json:"explanation,omitempty"`
	Errors       []string         `json:"errors,omitempty"`
}

// ValidateUpdate generates a specification and previews its match set
// without mutating anything. At most 5 preview rows are returned.
func (p *Processor) ValidateUpdate(ctx context.Context, naturalQuery string, user nlquery.UserContext) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Update validation panicked", "panic", r)
			result = ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("Validation failed: %v", r)}}
		}
	}()

	spec := p.generator.GenerateUpdate(ctx, naturalQuery, user)
	if !spec.Success {
		errText := spec.Error
		if errText == "" {
			errText = "Unknown error"
		}
		return ValidationResult{Valid: false, Errors: []string{errText}}
	}

	preview := p.executor.Preview(ctx, spec)
	sample := preview.Rows
	if len(sample) > 5 {
		sample = sample[:5]
	}
	return ValidationResult{
		Valid:        true,
		Spec:         &spec,
		PreviewCount: preview.RowCount,
		PreviewData:  sample,
		Explanation:  spec.Explanation,
	}
}
