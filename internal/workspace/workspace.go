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

// Package workspace resolves the trusted project boundary for a task and
// provides the logical path-containment predicate used by rm validation.
package workspace

import (
	"path"
	"strings"
	"sync"
)

// Resolver maps a task or session identifier to its workspace root.
// A missing root is not an error: it simply means no project boundary
// is configured for that task, which callers treat as a rejection
// condition for destructive commands.
type Resolver interface {
	// WorkspaceRoot returns the workspace root for taskID, and whether
	// one is configured.
	WorkspaceRoot(taskID string) (string, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(taskID string) (string, bool)

// WorkspaceRoot implements Resolver.
func (f ResolverFunc) WorkspaceRoot(taskID string) (string, bool) {
	return f(taskID)
}

// StaticResolver is a concurrency-safe task-to-root table.
type StaticResolver struct {
	mu    sync.RWMutex
	roots map[string]string
}

// NewStaticResolver creates a resolver with the given task-to-root table.
func NewStaticResolver(roots map[string]string) *StaticResolver {
	copied := make(map[string]string, len(roots))
	for k, v := range roots {
		copied[k] = v
	}
	return &StaticResolver{roots: copied}
}

// Set registers or replaces the workspace root for taskID.
func (r *StaticResolver) Set(taskID, root string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots[taskID] = root
}

// WorkspaceRoot implements Resolver.
func (r *StaticResolver) WorkspaceRoot(taskID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	root, ok := r.roots[taskID]
	if root == "" {
		return "", false
	}
	return root, ok
}

// Fixed returns a resolver that maps every task to the same root.
// An empty root resolves to "not configured" for all tasks.
func Fixed(root string) Resolver {
	return ResolverFunc(func(string) (string, bool) {
		if root == "" {
			return "", false
		}
		return root, true
	})
}

// Contains reports whether candidate lies on or beneath root, comparing
// paths purely lexically: no filesystem access and no symlink resolution.
// Dot and dotdot segments are resolved before comparison, so a candidate
// that escapes via ".." is rejected. The root is contained in itself.
func Contains(candidate, root string) bool {
	if candidate == "" || root == "" {
		return false
	}

	c := path.Clean(candidate)
	r := path.Clean(root)

	if c == r {
		return true
	}
	if r == "/" {
		return strings.HasPrefix(c, "/")
	}
	return strings.HasPrefix(c, r+"/")
}

// Resolve joins a possibly-relative candidate against root and cleans it.
// Absolute candidates are returned cleaned, unchanged otherwise.
func Resolve(candidate, root string) string {
	if path.IsAbs(candidate) {
		return path.Clean(candidate)
	}
	return path.Join(root, candidate)
}
