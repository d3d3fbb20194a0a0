// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/homewiz/querygate/services/llm"
)

// Summarizer turns structured result data into a human-readable message
// via an LLM. Any failure falls back to the deterministic templates in
// FallbackMessage; a summarizer failure must never surface to a caller.
type Summarizer struct {
	client llm.LLMClient
}

func NewSummarizer(client llm.LLMClient) *Summarizer {
	if client == nil {
		panic("nlquery: NewSummarizer called with nil LLM client")
	}
	return &Summarizer{client: client}
}

// Summarize asks the LLM for a markdown summary of the structured data.
// At most 5 rows are included in the prompt to bound token usage.
func (s *Summarizer) Summarize(ctx context.Context, data []map[string]any, originalQuery string, resultType ResultType) (string, error) {
	sample := data
	if len(sample) > 5 {
		sample = sample[:5]
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data sample: %w", err)
	}

	var b strings.Builder
	b.WriteString("Create a structured markdown response for this property management query result.\n\n")
	fmt.Fprintf(&b, "Original Query: %q\n", originalQuery)
	fmt.Fprintf(&b, "Query Type: %s\n", resultType)
	fmt.Fprintf(&b, "Number of Results: %d\n\n", len(data))
	fmt.Fprintf(&b, "Data Sample:\n%s\n\n", sampleJSON)
	b.WriteString(`GUIDELINES:
- Use standard markdown only: headers, bold, lists, tables. No HTML.
- Open with a one-line summary including the result count.
- Highlight prices, locations, and availability; format currency like $1,500.
- Mention only data present in the sample. Never invent values.
- Keep it under 300 words.`)

	temp := float32(0.5)
	reply, err := s.client.Generate(ctx, b.String(), llm.GenerationParams{Temperature: &temp})
	if err != nil {
		return "", err
	}
	return stripCodeFence(reply), nil
}

// FallbackMessage is the deterministic message template used when no
// summarizer is available or the summarizer fails.
func FallbackMessage(data []map[string]any, originalQuery string) string {
	if len(data) == 0 {
		return fmt.Sprintf("No results found for '%s'. Try adjusting your search criteria.", originalQuery)
	}

	count := len(data)
	queryLower := strings.ToLower(originalQuery)

	switch {
	case containsAny(queryLower, []string{"room", "apartment", "property", "available"}):
		return fmt.Sprintf("Found %d %s matching your criteria.", count, pluralize(count, "property", "properties"))
	case containsAny(queryLower, []string{"occupancy", "rate"}):
		return fmt.Sprintf("Retrieved occupancy data for %d %s.", count, pluralize(count, "building", "buildings"))
	case containsAny(queryLower, []string{"tenant", "resident"}):
		return fmt.Sprintf("Found %d %s matching your criteria.", count, pluralize(count, "tenant", "tenants"))
	case containsAny(queryLower, []string{"lead", "prospect"}):
		return fmt.Sprintf("Retrieved %d %s from the system.", count, pluralize(count, "lead", "leads"))
	case containsAny(queryLower, []string{"maintenance", "repair"}):
		return fmt.Sprintf("Found %d maintenance %s.", count, pluralize(count, "request", "requests"))
	case containsAny(queryLower, []string{"revenue", "financial", "money"}):
		return fmt.Sprintf("Generated financial report with %d data %s.", count, pluralize(count, "point", "points"))
	default:
		return fmt.Sprintf("Retrieved %d %s for your query.", count, pluralize(count, "result", "results"))
	}
}

func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
