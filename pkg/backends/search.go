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

package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/syia/fleetgate/pkg/config"
	"github.com/syia/fleetgate/pkg/httpclient"
)

const apiKeyHeader = "X-TYPESENSE-API-KEY"

// SearchParams describe one search-index query.
type SearchParams struct {
	Query    string
	QueryBy  string
	FilterBy string
	SortBy   string
	Page     int
	PerPage  int
}

// SearchHit is one matching document.
type SearchHit struct {
	Document map[string]any `json:"document"`
}

// SearchResult is the decoded search response.
type SearchResult struct {
	Found int         `json:"found"`
	Page  int         `json:"page"`
	Hits  []SearchHit `json:"hits"`
}

// SearchHandle is a lazily verified connection to a search-index cluster.
// The transport is stateless HTTP; "connecting" means proving the cluster
// answers its health endpoint.
type SearchHandle struct {
	connState

	key      Key
	cfg      *config.SearchClusterConfig
	base     string
	http     *httpclient.Client
	attempts int
	delay    time.Duration
	sleep    SleepFunc

	connectMu sync.Mutex
	verified  bool
}

// NewSearchHandle builds an unverified handle for the named cluster.
func NewSearchHandle(name string, cfg *config.SearchClusterConfig) *SearchHandle {
	base := cfg.BaseURL()
	return &SearchHandle{
		key: Key{
			Endpoint:  base,
			Namespace: "",
			Name:      name,
		},
		cfg:  cfg,
		base: base,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
		),
		attempts: DefaultConnectAttempts,
		delay:    DefaultConnectDelay,
		sleep:    realSleep,
	}
}

func (h *SearchHandle) Key() Key {
	return h.key
}

// Connect verifies the cluster answers its health endpoint, retrying up to
// the configured bound.
func (h *SearchHandle) Connect(ctx context.Context) error {
	h.connectMu.Lock()
	defer h.connectMu.Unlock()

	if h.verified && h.State() == StateConnected {
		return nil
	}

	h.setState(StateConnecting)
	err := connectWithRetry(ctx, h.key, h.attempts, h.delay, h.sleep, func(ctx context.Context) error {
		return h.probe(ctx)
	})
	if err != nil {
		h.setState(StateFailed)
		return err
	}

	h.verified = true
	h.setState(StateConnected)
	h.markChecked(time.Now())
	return nil
}

// Ping probes the health endpoint and updates the handle state.
func (h *SearchHandle) Ping(ctx context.Context) error {
	h.markChecked(time.Now())
	if err := h.probe(ctx); err != nil {
		h.setState(StateFailed)
		return err
	}
	h.setState(StateConnected)
	return nil
}

func (h *SearchHandle) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/health", nil)
	if err != nil {
		return err
	}
	h.authorize(req)

	resp, err := h.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Search runs a query against one collection, connecting on first use.
func (h *SearchHandle) Search(ctx context.Context, collection string, params SearchParams) (*SearchResult, error) {
	if err := h.Connect(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", params.Query)
	if params.QueryBy != "" {
		q.Set("query_by", params.QueryBy)
	}
	if params.FilterBy != "" {
		q.Set("filter_by", params.FilterBy)
	}
	if params.SortBy != "" {
		q.Set("sort_by", params.SortBy)
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(params.PerPage))
	}

	endpoint := fmt.Sprintf("%s/collections/%s/documents/search?%s",
		h.base, url.PathEscape(collection), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	h.authorize(req)

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &result, nil
}

func (h *SearchHandle) Close(ctx context.Context) error {
	h.connectMu.Lock()
	defer h.connectMu.Unlock()
	h.verified = false
	h.setState(StateDisconnected)
	return nil
}

func (h *SearchHandle) authorize(req *http.Request) {
	if h.cfg.APIKey != "" {
		req.Header.Set(apiKeyHeader, h.cfg.APIKey)
	}
}
