// Copyright 2026 Siya Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package authz scrubs fetched payloads of records the calling tenant may
// not see. It is the last line of tenant isolation: query scoping narrows
// what the backend returns, this filter removes whatever slipped through.
package authz

import (
	"fmt"
	"strconv"
	"time"

	"github.com/syia/fleetgate/pkg/tenant"
)

// imoAliases are the ownership-key field names the traversal recognizes.
// Every alias is checked at every object node; payloads from different
// backend collections disagree on casing and spelling.
var imoAliases = []string{
	"imo",
	"IMO",
	"imo_no",
	"imoNo",
	"imo_number",
	"imoNumber",
	"vessel_imo",
	"vesselImo",
}

// Removal records one dropped node: where it sat and the ownership key that
// disqualified it.
type Removal struct {
	Path  string `json:"path"`
	Value int64  `json:"value"`
}

// Stats summarizes one filter run.
type Stats struct {
	// Processed counts object nodes inspected during traversal.
	Processed int `json:"processed"`

	// Removed counts nodes dropped as unauthorized, including malformed
	// nodes skipped fail-closed.
	Removed int `json:"removed"`

	// Removals lists each dropped node.
	Removals []Removal `json:"removals,omitempty"`

	// Elapsed is the wall-clock traversal time.
	Elapsed time.Duration `json:"elapsed"`
}

// Filter returns a copy of value with every record whose ownership key is
// outside the tenant's fleet removed, plus traversal statistics.
//
// The input is never mutated; untouched subtrees may be shared between
// input and output. The second return value is false when the root itself
// was unauthorized and there is nothing to return.
func Filter(tc *tenant.Context, value any) (any, bool, *Stats) {
	stats := &Stats{}
	start := time.Now()
	out, keep := filterNode(tc, value, "$", stats)
	stats.Elapsed = time.Since(start)
	return out, keep, stats
}

// filterNode walks one node depth-first. The boolean reports whether the
// node survives; a dropped node is recorded in stats.
func filterNode(tc *tenant.Context, value any, path string, stats *Stats) (out any, keep bool) {
	// A malformed node (one that panics the traversal) is unauthorized,
	// not fatal; the rest of the payload still gets filtered.
	defer func() {
		if r := recover(); r != nil {
			stats.Removed++
			stats.Removals = append(stats.Removals, Removal{Path: path})
			out, keep = nil, false
		}
	}()

	switch node := value.(type) {
	case map[string]any:
		return filterObject(tc, node, path, stats)
	case []any:
		return filterArray(tc, node, path, stats)
	default:
		// Scalars carry no ownership key of their own.
		return value, true
	}
}

func filterObject(tc *tenant.Context, node map[string]any, path string, stats *Stats) (any, bool) {
	stats.Processed++

	if imo, field, found := ownershipKey(node); found {
		if !tc.IsAuthorized(imo) {
			stats.Removed++
			stats.Removals = append(stats.Removals, Removal{
				Path:  path + "." + field,
				Value: imo,
			})
			return nil, false
		}
	}

	filtered := make(map[string]any, len(node))
	for key, child := range node {
		out, keep := filterNode(tc, child, path+"."+key, stats)
		if !keep {
			continue
		}
		filtered[key] = out
	}
	return filtered, true
}

func filterArray(tc *tenant.Context, node []any, path string, stats *Stats) (any, bool) {
	filtered := make([]any, 0, len(node))
	for i, child := range node {
		out, keep := filterNode(tc, child, fmt.Sprintf("%s[%d]", path, i), stats)
		if !keep {
			continue
		}
		filtered = append(filtered, out)
	}
	return filtered, true
}

// ownershipKey scans the node for any recognized IMO alias and returns the
// first coercible value. An alias whose value is not numeric is ignored; a
// field named like an IMO but holding prose is not an ownership claim.
func ownershipKey(node map[string]any) (int64, string, bool) {
	for _, alias := range imoAliases {
		v, ok := node[alias]
		if !ok {
			continue
		}
		if imo, ok := coerceIMO(v); ok {
			return imo, alias, true
		}
	}
	return 0, "", false
}

// coerceIMO normalizes an ownership-key value to int64. Payloads deliver
// IMOs as JSON numbers, bson integers, or strings depending on the source
// collection; a string-vs-number mismatch must not leak a record.
func coerceIMO(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case string:
		imo, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return imo, true
	case fmt.Stringer:
		imo, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return imo, true
	default:
		return 0, false
	}
}
