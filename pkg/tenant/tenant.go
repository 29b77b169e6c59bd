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

// Package tenant resolves a calling organization's name into its
// authorization scope: its fleet of vessel identifiers, or unrestricted
// access for administrative callers.
//
// A tenant with no fleet document resolves to an empty fleet with bypass
// off. Downstream code must treat that as deny-all, never as no-restriction.
package tenant

import (
	"context"
	"fmt"
	"strings"
)

// Context is one tenant's resolved authorization scope. Immutable once
// resolved; safe to share across goroutines.
type Context struct {
	// Name is the tenant's display name as presented by the caller.
	Name string

	// Bypass grants unrestricted access. Fleet is ignored when set.
	Bypass bool

	// Fleet is the set of vessel IMO numbers this tenant may see. Empty
	// with Bypass off means the tenant may see nothing.
	Fleet []int64

	fleetSet map[int64]struct{}
}

// NewContext builds a Context with its membership index.
func NewContext(name string, bypass bool, fleet []int64) *Context {
	set := make(map[int64]struct{}, len(fleet))
	for _, imo := range fleet {
		set[imo] = struct{}{}
	}
	return &Context{Name: name, Bypass: bypass, Fleet: fleet, fleetSet: set}
}

// IsAuthorized reports whether the tenant may see records for the given IMO.
func (c *Context) IsAuthorized(imo int64) bool {
	if c.Bypass {
		return true
	}
	_, ok := c.fleetSet[imo]
	return ok
}

// Restricted reports whether queries on behalf of this tenant need scoping.
func (c *Context) Restricted() bool {
	return !c.Bypass
}

func (c *Context) String() string {
	if c.Bypass {
		return fmt.Sprintf("tenant(%s, bypass)", c.Name)
	}
	return fmt.Sprintf("tenant(%s, %d vessels)", c.Name, len(c.Fleet))
}

// MatchesBypassMarker reports whether the tenant name contains any of the
// administrative markers, case-insensitively.
func MatchesBypassMarker(name string, markers []string) bool {
	lower := strings.ToLower(name)
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// ResolutionError reports a failed backend lookup of a tenant's fleet.
// Callers must not proceed unrestricted when they receive one.
type ResolutionError struct {
	Tenant string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve fleet for tenant '%s': %v", e.Tenant, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// FleetSource fetches a tenant's vessel list from a backend. The second
// return value reports whether a fleet document exists for the tenant.
type FleetSource interface {
	FetchFleet(ctx context.Context, tenant string) ([]int64, bool, error)
}
