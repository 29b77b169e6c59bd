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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/syia/fleetgate/pkg/backends"
	"github.com/syia/fleetgate/pkg/config"
)

// Resolver turns tenant names into authorization scopes. Bypass markers are
// checked before any backend work; everything else goes through the cache
// and then the fleet source.
type Resolver struct {
	source  FleetSource
	cache   *Cache
	markers []string
}

// NewResolver builds a resolver over the given fleet source.
func NewResolver(source FleetSource, cache *Cache, markers []string) *Resolver {
	return &Resolver{source: source, cache: cache, markers: markers}
}

// Resolve returns the tenant's authorization scope.
//
// Administrative tenants resolve to bypass without touching the backend. A
// tenant with no fleet document resolves to an empty fleet, which downstream
// treats as deny-all. A backend failure returns a ResolutionError unless the
// cache holds a last-known-good fleet for the tenant.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Context, error) {
	if MatchesBypassMarker(name, r.markers) {
		slog.Debug("Tenant resolved via bypass marker", "tenant", name)
		return NewContext(name, true, nil), nil
	}

	if r.cache != nil {
		if imos, ok := r.cache.Get(name); ok {
			return NewContext(name, false, imos), nil
		}
	}

	imos, found, err := r.source.FetchFleet(ctx, name)
	if err != nil {
		return nil, &ResolutionError{Tenant: name, Err: err}
	}
	if !found {
		slog.Warn("No fleet document for tenant, denying all", "tenant", name)
		return NewContext(name, false, nil), nil
	}

	if r.cache != nil {
		if cerr := r.cache.Put(name, imos); cerr != nil {
			slog.Warn("Failed to persist fleet cache", "tenant", name, "error", cerr)
		}
	}
	return NewContext(name, false, imos), nil
}

// MongoFleetSource reads fleet documents from the tenancy collection of a
// configured document-store cluster.
type MongoFleetSource struct {
	registry *backends.Registry
	cfg      config.TenancyConfig
}

// NewMongoFleetSource builds a source over the shared backend registry.
func NewMongoFleetSource(registry *backends.Registry, cfg config.TenancyConfig) *MongoFleetSource {
	return &MongoFleetSource{registry: registry, cfg: cfg}
}

// FetchFleet looks up the tenant's fleet document by name.
func (s *MongoFleetSource) FetchFleet(ctx context.Context, tenant string) ([]int64, bool, error) {
	handle, err := s.registry.Mongo(ctx, s.cfg.Cluster)
	if err != nil {
		return nil, false, err
	}
	db, err := handle.Database(ctx, s.cfg.Database)
	if err != nil {
		return nil, false, err
	}

	var doc struct {
		Name string `bson:"name"`
		IMOs []any  `bson:"imos"`
	}
	err = db.Collection(s.cfg.Collection).FindOne(ctx, bson.M{"name": tenant}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fleet lookup failed: %w", err)
	}

	imos := make([]int64, 0, len(doc.IMOs))
	for _, v := range doc.IMOs {
		imo, ok := toIMO(v)
		if !ok {
			slog.Warn("Skipping non-numeric fleet entry", "tenant", tenant, "value", v)
			continue
		}
		imos = append(imos, imo)
	}
	return imos, true, nil
}

// toIMO coerces the numeric types the driver may decode a fleet entry into.
func toIMO(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
