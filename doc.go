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

// Package fleetgate is a tenant-scoped gateway that serves maritime fleet
// data (vessel records, maintenance and purchase documents, casefiles) over
// MCP, backed by shared document-store and search-index clusters.
//
// Every tool call runs the same pipeline: the calling company's name is
// resolved into a tenant context (its fleet of IMO numbers, or unrestricted
// access for administrative callers), the outbound query is scoped to that
// fleet, and the fetched result is recursively scrubbed of any record whose
// ownership key falls outside it.
//
// # Quick Start
//
// Install:
//
//	go install github.com/syia/fleetgate/cmd/fleetgate@latest
//
// Create a configuration:
//
//	mongo:
//	  core:
//	    uri: "${MONGO_URI}"
//	    database: fleet
//	search:
//	  casefiles:
//	    host: search.internal
//	    api_key: "${SEARCH_API_KEY}"
//	tenancy:
//	  cluster: core
//	data:
//	  cluster: core
//	  search_cluster: casefiles
//
// Start the server:
//
//	fleetgate serve --config fleetgate.yaml
//
// # Packages
//
//   - pkg/backends: lazily connected, health-monitored backend handles
//   - pkg/tenant: tenant context resolution and fleet caching
//   - pkg/scope: query scoping (filter strings, filter objects, pipelines)
//   - pkg/authz: the recursive authorization filter
//   - pkg/tools: MCP tool handlers
//   - pkg/server: MCP transports and the status sidecar
package fleetgate
