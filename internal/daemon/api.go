// Copyright 2026 The Gatehouse Authors
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

package daemon

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/quarry/gatehouse/internal/gateway"
)

// Handler returns the daemon's HTTP handler.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/execute", d.handleExecute)
	mux.HandleFunc("POST /v1/check", d.handleCheck)
	mux.HandleFunc("PUT /v1/workspaces/{task}", d.handleSetWorkspace)
	mux.HandleFunc("GET /v1/events", d.handleEvents)
	mux.HandleFunc("GET /v1/healthz", d.handleHealthz)
	mux.Handle("GET /metrics", d.requireAuth(gateway.MetricsHandler()))
	return http.MaxBytesHandler(mux, 1<<20) // 1MB limit
}

func (d *Daemon) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	if d.cfg.Token == "" {
		return true // No auth configured.
	}
	auth := r.Header.Get("Authorization")
	expected := "Bearer " + d.cfg.Token
	if auth == "" || subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}
	return true
}

func (d *Daemon) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.checkAuth(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

type executeReq struct {
	TaskID  string `json:"task_id"`
	Command string `json:"command"`
}

func (d *Daemon) handleExecute(w http.ResponseWriter, r *http.Request) {
	if !d.checkAuth(w, r) {
		return
	}

	var req executeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid body: %v", err),
		})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "command is required"})
		return
	}

	out := d.gw.Load().Execute(r.Context(), req.TaskID, req.Command)
	d.hub.broadcast(out)

	status := http.StatusOK
	if !out.Approved {
		status = http.StatusForbidden
	}
	writeJSON(w, status, out)
}

func (d *Daemon) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !d.checkAuth(w, r) {
		return
	}

	var req executeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid body: %v", err),
		})
		return
	}

	v := d.gw.Load().Preflight(r.Context(), req.TaskID, req.Command)
	writeJSON(w, http.StatusOK, map[string]any{
		"dangerous":   v.Dangerous,
		"reason_code": v.Code,
		"reason":      v.Reason,
		"rule":        v.Rule,
	})
}

type workspaceReq struct {
	Root string `json:"root"`
}

func (d *Daemon) handleSetWorkspace(w http.ResponseWriter, r *http.Request) {
	if !d.checkAuth(w, r) {
		return
	}

	task := r.PathValue("task")
	var req workspaceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid body: %v", err),
		})
		return
	}
	if !path.IsAbs(req.Root) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "root must be an absolute path"})
		return
	}

	d.resolver.Set(task, path.Clean(req.Root))
	d.logger.Info("daemon: workspace registered", "task", task, "root", req.Root)
	writeJSON(w, http.StatusOK, map[string]string{"task": task, "root": path.Clean(req.Root)})
}

func (d *Daemon) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !d.checkAuth(w, r) {
		return
	}
	d.hub.serve(w, r)
}

func (d *Daemon) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
