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

// Package scope rewrites outbound queries so they only match records in the
// calling tenant's fleet. It complements the post-hoc authorization filter;
// it does not replace it.
//
// All three rewrite paths share one fail-closed rule: a restricted tenant
// with an empty fleet gets a query that matches nothing, never an
// unrestricted one. Inputs are never mutated; every path returns a copy.
package scope

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/syia/fleetgate/pkg/tenant"
)

// OwnershipField is the document field that scoping constrains.
const OwnershipField = "imo"

// FilterString narrows a search-engine filter expression to the tenant's
// fleet. The fleet clause is ANDed onto any existing expression. An empty
// fleet yields a contradiction clause that matches no document.
func FilterString(tc *tenant.Context, existing string) string {
	if tc.Bypass {
		return existing
	}

	clause := fmt.Sprintf("%s:[%s]", OwnershipField, joinIMOs(tc.Fleet))
	if len(tc.Fleet) == 0 {
		// No valid IMO is negative; this clause can never match.
		clause = OwnershipField + ":[-1]"
	}

	if existing == "" {
		return clause
	}
	return existing + " && " + clause
}

// Filter narrows a document-store filter to the tenant's fleet. The input
// map is copied, never mutated. An empty fleet produces an $in over the
// empty set, which matches no document.
//
// A caller filter that already constrains the ownership field, or nests
// constraints under a logical operator, keeps its constraint: both clauses
// are combined under $and so the result matches only documents satisfying
// the caller's filter AND the fleet restriction.
func Filter(tc *tenant.Context, existing bson.M) bson.M {
	scoped := make(bson.M, len(existing)+1)
	for k, v := range existing {
		scoped[k] = v
	}
	if tc.Bypass {
		return scoped
	}

	fleet := bson.M{"$in": imoSlice(tc.Fleet)}
	if hasOwnershipConstraint(existing) {
		return bson.M{"$and": []bson.M{scoped, {OwnershipField: fleet}}}
	}
	scoped[OwnershipField] = fleet
	return scoped
}

// hasOwnershipConstraint reports whether a filter already touches the
// ownership field, directly or under a logical operator that could hide it.
func hasOwnershipConstraint(filter bson.M) bool {
	for _, k := range []string{OwnershipField, "$and", "$or", "$nor"} {
		if _, ok := filter[k]; ok {
			return true
		}
	}
	return false
}

// Pipeline narrows an aggregation pipeline to the tenant's fleet by
// prepending a $match stage, so every later stage only sees authorized
// documents. The input pipeline is copied, never mutated.
func Pipeline(tc *tenant.Context, existing mongo.Pipeline) mongo.Pipeline {
	if tc.Bypass {
		scoped := make(mongo.Pipeline, len(existing))
		copy(scoped, existing)
		return scoped
	}

	match := bson.D{{Key: "$match", Value: bson.D{
		{Key: OwnershipField, Value: bson.D{{Key: "$in", Value: imoSlice(tc.Fleet)}}},
	}}}

	scoped := make(mongo.Pipeline, 0, len(existing)+1)
	scoped = append(scoped, match)
	scoped = append(scoped, existing...)
	return scoped
}

func joinIMOs(fleet []int64) string {
	parts := make([]string, len(fleet))
	for i, imo := range fleet {
		parts[i] = fmt.Sprintf("%d", imo)
	}
	return strings.Join(parts, ",")
}

// imoSlice returns the fleet as []any for bson encoding; never nil, so an
// empty fleet encodes as an empty $in array rather than null.
func imoSlice(fleet []int64) []any {
	out := make([]any, len(fleet))
	for i, imo := range fleet {
		out[i] = imo
	}
	return out
}
