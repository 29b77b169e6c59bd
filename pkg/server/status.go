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

package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/syia/fleetgate"
	"github.com/syia/fleetgate/pkg/backends"
)

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Backends map[string]string `json:"backends"`
}

// statusRouter serves /healthz and /metrics on the sidecar listener.
func (s *Server) statusRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// handleHealthz reports per-handle connection states. The listener answers
// 200 as long as no established connection is failed; handles that were
// never requested do not count against health.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	states := s.backends.States()

	resp := healthResponse{
		Status:   "ok",
		Version:  fleetgate.Version,
		Backends: make(map[string]string, len(states)),
	}
	code := http.StatusOK
	for target, state := range states {
		resp.Backends[target] = state.String()
		if state == backends.StateFailed {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
