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

package authz

import (
	"encoding/json"

	"github.com/syia/fleetgate/pkg/tenant"
)

// FilterText filters one text response item. The text is parsed as JSON
// first; plain narrative text that does not parse cannot be scoped and
// passes through unchanged (it is treated as already safe). A root that is
// itself unauthorized comes back as JSON null.
func FilterText(tc *tenant.Context, text string) (string, *Stats) {
	out, keep, stats := filterItem(tc, text)
	if !keep {
		return "null", stats
	}
	return out, stats
}

// FilterEnvelope filters an ordered list of response items. Each item is
// either narrative text, which passes through unchanged, or structured
// JSON, which is filtered; an item whose root is itself unauthorized is
// omitted from the result. Surviving items keep their order and the input
// slice is never mutated.
func FilterEnvelope(tc *tenant.Context, items []string) ([]string, *Stats) {
	total := &Stats{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		filtered, keep, stats := filterItem(tc, item)
		total.Processed += stats.Processed
		total.Removed += stats.Removed
		total.Removals = append(total.Removals, stats.Removals...)
		total.Elapsed += stats.Elapsed
		if !keep {
			continue
		}
		out = append(out, filtered)
	}
	return out, total
}

// filterItem reports the filtered text and whether the item survives at all.
func filterItem(tc *tenant.Context, text string) (string, bool, *Stats) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return text, true, &Stats{}
	}

	filtered, keep, stats := Filter(tc, value)
	if !keep {
		return "", false, stats
	}

	out, err := json.Marshal(filtered)
	if err != nil {
		// Filtered output is plain maps/slices/scalars; this cannot
		// fail for parseable input, but never leak the original.
		return "", false, stats
	}
	return string(out), true, stats
}
