// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request binding structs for the HTTP
// surface. Response shapes come from the pipeline packages themselves.
package datatypes

// QueryRequest is the body of POST /v1/query and /v1/query/validate.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// BatchQueryRequest is the body of POST /v1/query/batch. The member
// queries run strictly sequentially; the cap bounds store load.
type BatchQueryRequest struct {
	Queries []string `json:"queries" binding:"required,min=1,max=10,dive,required"`
}

// UpdateRequest is the body of POST /v1/update and /v1/update/validate.
type UpdateRequest struct {
	Query string `json:"query" binding:"required"`
}

// SuggestionsResponse is the body returned by GET /v1/query/suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}
