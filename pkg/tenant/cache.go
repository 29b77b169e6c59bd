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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// cacheEntry is the persisted form of one tenant's resolved fleet.
type cacheEntry struct {
	Tenant    string    `json:"tenant"`
	IMOs      []int64   `json:"imos"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache holds resolved fleets in memory, optionally mirrored to a JSON file
// so a restart without backend access still has a last-known-good set.
// Writes are last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	file    string
}

// NewCache builds a cache. file may be empty to disable the disk mirror;
// an absent file is not an error, just an empty cache.
func NewCache(file string) (*Cache, error) {
	c := &Cache{
		entries: make(map[string]cacheEntry),
		file:    file,
	}
	if file == "" {
		return c, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read fleet cache: %w", err)
	}

	var entries []cacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse fleet cache: %w", err)
	}
	for _, e := range entries {
		c.entries[e.Tenant] = e
	}
	return c, nil
}

// Get returns the cached fleet for a tenant.
func (c *Cache) Get(tenant string) ([]int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tenant]
	if !ok {
		return nil, false
	}
	return e.IMOs, true
}

// Put stores a tenant's fleet and rewrites the disk mirror when enabled.
func (c *Cache) Put(tenant string, imos []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenant] = cacheEntry{
		Tenant:    tenant,
		IMOs:      imos,
		UpdatedAt: time.Now().UTC(),
	}
	return c.flushLocked()
}

// Clear drops all entries and removes the disk mirror.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	if c.file == "" {
		return nil
	}
	if err := os.Remove(c.file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove fleet cache: %w", err)
	}
	return nil
}

// Len returns the number of cached tenants.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) flushLocked() error {
	if c.file == "" {
		return nil
	}

	entries := make([]cacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fleet cache: %w", err)
	}

	// Write-then-rename so a crash mid-write never truncates the mirror.
	tmp := c.file + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.file), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write fleet cache: %w", err)
	}
	if err := os.Rename(tmp, c.file); err != nil {
		return fmt.Errorf("failed to replace fleet cache: %w", err)
	}
	return nil
}
