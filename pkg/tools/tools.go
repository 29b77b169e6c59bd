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

// Package tools implements the MCP tool handlers. Every handler runs the
// same pipeline: resolve the tenant, scope the outbound query, fetch, then
// pass the result through the authorization filter before returning it.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/syia/fleetgate/pkg/authz"
	"github.com/syia/fleetgate/pkg/backends"
	"github.com/syia/fleetgate/pkg/config"
	"github.com/syia/fleetgate/pkg/observability"
	"github.com/syia/fleetgate/pkg/scope"
	"github.com/syia/fleetgate/pkg/tenant"
)

const defaultDocumentLimit = 50

// Toolset wires the tool handlers to their backends.
type Toolset struct {
	cfg      *config.Config
	backends *backends.Registry
	resolver *tenant.Resolver
	metrics  *observability.Metrics
}

// New builds the toolset.
func New(cfg *config.Config, reg *backends.Registry, resolver *tenant.Resolver, metrics *observability.Metrics) *Toolset {
	return &Toolset{cfg: cfg, backends: reg, resolver: resolver, metrics: metrics}
}

// Register adds every tool to the MCP server.
func (t *Toolset) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_vessel_details",
		mcp.WithDescription("Fetch master data for one vessel by IMO number. Returns only vessels in the calling company's fleet."),
		mcp.WithString("company",
			mcp.Required(),
			mcp.Description("Calling company name"),
		),
		mcp.WithNumber("imo",
			mcp.Required(),
			mcp.Description("IMO number of the vessel"),
		),
	), t.instrument("get_vessel_details", t.handleGetVesselDetails))

	s.AddTool(mcp.NewTool("search_casefiles",
		mcp.WithDescription("Full-text search over casefiles, restricted to the calling company's fleet."),
		mcp.WithString("company",
			mcp.Required(),
			mcp.Description("Calling company name"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("filter",
			mcp.Description("Additional filter expression, e.g. 'status:open'"),
		),
		mcp.WithNumber("page",
			mcp.Description("Result page, starting at 1"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Results per page (default 10)"),
		),
	), t.instrument("search_casefiles", t.handleSearchCasefiles))

	s.AddTool(mcp.NewTool("list_vessel_documents",
		mcp.WithDescription("List maintenance and purchase documents for the calling company's fleet, newest first."),
		mcp.WithString("company",
			mcp.Required(),
			mcp.Description("Calling company name"),
		),
		mcp.WithString("doc_type",
			mcp.Description("Restrict to one document type, e.g. 'maintenance' or 'purchase'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum documents to return (default 50)"),
		),
	), t.instrument("list_vessel_documents", t.handleListVesselDocuments))
}

// instrument wraps a handler with a request id, metrics and timing.
func (t *Toolset) instrument(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := uuid.NewString()
		start := time.Now()
		result, err := h(ctx, request)

		outcome := "success"
		if err != nil || (result != nil && result.IsError) {
			outcome = "error"
		}
		slog.Debug("Tool call finished",
			"tool", name, "request_id", requestID,
			"outcome", outcome, "elapsed", time.Since(start))
		if t.metrics != nil {
			t.metrics.ToolCalls.WithLabelValues(name, outcome).Inc()
			t.metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
		return result, err
	}
}

// resolveTenant resolves the company argument into a tenant context. A
// resolution failure never falls back to unrestricted access.
func (t *Toolset) resolveTenant(ctx context.Context, request mcp.CallToolRequest) (*tenant.Context, *mcp.CallToolResult) {
	company, err := request.RequireString("company")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}

	tc, err := t.resolver.Resolve(ctx, company)
	if err != nil {
		slog.Error("Tenant resolution failed", "company", company, "error", err)
		return nil, mcp.NewToolResultError(fmt.Sprintf("cannot resolve company '%s': access denied", company))
	}
	return tc, nil
}

func (t *Toolset) handleGetVesselDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tc, errResult := t.resolveTenant(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	imo, err := request.RequireInt("imo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	handle, err := t.backends.Mongo(ctx, t.cfg.Data.Cluster)
	if err != nil {
		return nil, err
	}
	coll, err := handle.Collection(ctx, t.cfg.Data.Vessels)
	if err != nil {
		return nil, err
	}

	filter := scope.Filter(tc, bson.M{"imo": int64(imo)})
	var doc bson.M
	err = coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return mcp.NewToolResultError(fmt.Sprintf("no accessible vessel with IMO %d", imo)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("vessel lookup failed: %w", err)
	}

	plain, err := toPlain(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vessel: %w", err)
	}
	return t.filteredResult(tc, "get_vessel_details", plain)
}

func (t *Toolset) handleSearchCasefiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tc, errResult := t.resolveTenant(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if t.cfg.Data.SearchCluster == "" {
		return mcp.NewToolResultError("casefile search is not configured"), nil
	}
	handle, err := t.backends.Search(t.cfg.Data.SearchCluster)
	if err != nil {
		return nil, err
	}

	result, err := handle.Search(ctx, t.cfg.Data.Casefiles, backends.SearchParams{
		Query:    query,
		QueryBy:  "title,summary",
		FilterBy: scope.FilterString(tc, request.GetString("filter", "")),
		Page:     request.GetInt("page", 1),
		PerPage:  request.GetInt("per_page", 10),
	})
	if err != nil {
		return nil, fmt.Errorf("casefile search failed: %w", err)
	}

	docs := make([]any, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, hit.Document)
	}
	return t.filteredResult(tc, "search_casefiles", map[string]any{
		"found": result.Found,
		"page":  result.Page,
		"hits":  docs,
	})
}

func (t *Toolset) handleListVesselDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tc, errResult := t.resolveTenant(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	handle, err := t.backends.Mongo(ctx, t.cfg.Data.Cluster)
	if err != nil {
		return nil, err
	}
	coll, err := handle.Collection(ctx, t.cfg.Data.Documents)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{}
	if docType := request.GetString("doc_type", ""); docType != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "type", Value: docType}}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "date", Value: -1}}}},
		bson.D{{Key: "$limit", Value: request.GetInt("limit", defaultDocumentLimit)}},
	)

	cursor, err := coll.Aggregate(ctx, scope.Pipeline(tc, pipeline))
	if err != nil {
		return nil, fmt.Errorf("document aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	items := make([]string, 0, len(raw))
	for _, d := range raw {
		data, derr := bson.MarshalExtJSON(d, false, false)
		if derr != nil {
			slog.Warn("Skipping undecodable document", "error", derr)
			continue
		}
		items = append(items, string(data))
	}
	return t.filteredEnvelope(tc, "list_vessel_documents", items)
}

// filteredResult runs the authorization filter over a fetched value and
// returns it as an MCP text result. Filter stats go to the log and metrics,
// never to the caller.
func (t *Toolset) filteredResult(tc *tenant.Context, tool string, value any) (*mcp.CallToolResult, error) {
	filtered, keep, stats := authz.Filter(tc, value)

	slog.Info("Authorization filter applied",
		"tool", tool, "tenant", tc.Name,
		"processed", stats.Processed, "removed", stats.Removed,
		"elapsed", stats.Elapsed)
	if t.metrics != nil {
		t.metrics.FilterItemsProcessed.Add(float64(stats.Processed))
		t.metrics.FilterItemsRemoved.Add(float64(stats.Removed))
	}

	if !keep {
		return mcp.NewToolResultText("null"), nil
	}
	out, err := json.Marshal(filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// filteredEnvelope filters an ordered list of per-document text items and
// returns one text content per surviving item; fully-rejected documents are
// omitted rather than replaced with null.
func (t *Toolset) filteredEnvelope(tc *tenant.Context, tool string, items []string) (*mcp.CallToolResult, error) {
	filtered, stats := authz.FilterEnvelope(tc, items)

	slog.Info("Authorization filter applied",
		"tool", tool, "tenant", tc.Name,
		"processed", stats.Processed, "removed", stats.Removed,
		"elapsed", stats.Elapsed)
	if t.metrics != nil {
		t.metrics.FilterItemsProcessed.Add(float64(stats.Processed))
		t.metrics.FilterItemsRemoved.Add(float64(stats.Removed))
	}

	contents := make([]mcp.Content, 0, len(filtered))
	for _, item := range filtered {
		contents = append(contents, mcp.NewTextContent(item))
	}
	return &mcp.CallToolResult{Content: contents}, nil
}

// toPlain converts a bson document to plain JSON-shaped maps and slices so
// the authorization filter sees the same node types on every code path.
func toPlain(doc bson.M) (any, error) {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}
