// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session holds the per-process laboratory session state: the cached
// cycle list and the active cycle.
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

const (
	// DefaultFeedbackTTL is how long confirmation messages stay visible.
	DefaultFeedbackTTL = 3 * time.Second

	// DefaultErrorTTL is how long fetch errors stay visible.
	DefaultErrorTTL = 5 * time.Second
)

// CycleLister fetches the cycle catalog. *labapi.Client implements it.
type CycleLister interface {
	ListCycles(ctx context.Context) ([]labapi.Cycle, error)
}

// CycleRegistry caches the known cycles and tracks the active one.
//
// # Description
//
// The registry is constructed once by the caller and passed down to every
// screen that needs the active cycle. Selection is purely local; only
// Refresh talks to the backend. Concurrent Refresh calls share a single
// request.
//
// Fetch failures keep the previous list, are returned to the caller, and
// are also posted to Notice with a timed auto-clear.
//
// # Thread Safety
//
// Safe for concurrent use. Change listeners run on the goroutine that made
// the change, after internal locks are released.
type CycleRegistry struct {
	lister CycleLister
	logger *logging.Logger
	group  singleflight.Group
	notice *ux.Notice

	feedbackTTL time.Duration
	errorTTL    time.Duration

	mu        sync.RWMutex
	cycles    []labapi.Cycle
	active    string
	listeners []func(labapi.Cycle)
}

// Option configures a CycleRegistry.
type Option func(*CycleRegistry)

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *CycleRegistry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the clock used by the message notice.
func WithClock(now func() time.Time) Option {
	return func(r *CycleRegistry) {
		r.notice = ux.NewNotice(now)
	}
}

// WithMessageTTL overrides the feedback and error auto-clear durations.
// Zero keeps the default.
func WithMessageTTL(feedback, fetchError time.Duration) Option {
	return func(r *CycleRegistry) {
		if feedback > 0 {
			r.feedbackTTL = feedback
		}
		if fetchError > 0 {
			r.errorTTL = fetchError
		}
	}
}

// NewCycleRegistry creates an empty registry backed by lister.
func NewCycleRegistry(lister CycleLister, opts ...Option) *CycleRegistry {
	r := &CycleRegistry{
		lister:      lister,
		logger:      logging.Nop(),
		notice:      ux.NewNotice(nil),
		feedbackTTL: DefaultFeedbackTTL,
		errorTTL:    DefaultErrorTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh reloads the cycle list from the backend.
//
// # Outputs
//
//   - error: Non-nil when the fetch failed. The previous list is kept and
//     the message is posted to Notice for the error TTL.
func (r *CycleRegistry) Refresh(ctx context.Context) error {
	v, err, shared := r.group.Do("cycles", func() (any, error) {
		return r.lister.ListCycles(ctx)
	})
	if err != nil {
		r.logger.Warn("cycle refresh failed", "error", err)
		r.notice.Set(ux.NoticeError, "Error al cargar ciclos: "+err.Error(), r.errorTTL)
		return fmt.Errorf("refresh cycles: %w", err)
	}

	cycles, _ := v.([]labapi.Cycle)
	stored := make([]labapi.Cycle, len(cycles))
	copy(stored, cycles)

	r.mu.Lock()
	r.cycles = stored
	r.mu.Unlock()

	r.logger.Debug("cycles refreshed", "count", len(stored), "shared", shared)
	return nil
}

// Cycles returns a copy of the cached list.
func (r *CycleRegistry) Cycles() []labapi.Cycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]labapi.Cycle, len(r.cycles))
	copy(out, r.cycles)
	return out
}

// Names returns the cached cycle names in list order.
func (r *CycleRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cycles))
	for _, c := range r.cycles {
		names = append(names, c.Name)
	}
	return names
}

// SelectActive sets the active cycle by name or numeric id.
//
// # Description
//
// Input is trimmed. A number matching a cached id selects that cycle. A
// name missing from the cache triggers one Refresh; if it is still unknown
// the name stays selected (the ledger flow creates cycles on first use)
// and known is false. Empty input clears the selection.
//
// # Outputs
//
//   - labapi.Cycle: The selection; ID is 0 when unknown.
//   - bool: True when the cycle exists in the cached list.
func (r *CycleRegistry) SelectActive(ctx context.Context, nameOrID string) (labapi.Cycle, bool) {
	input := strings.TrimSpace(nameOrID)

	cycle, known := r.lookup(input)
	if input != "" && !known {
		if err := r.Refresh(ctx); err == nil {
			cycle, known = r.lookup(input)
		}
	}
	if !known {
		cycle = labapi.Cycle{Name: input}
	}

	r.mu.Lock()
	changed := r.active != cycle.Name
	r.active = cycle.Name
	listeners := append([]func(labapi.Cycle){}, r.listeners...)
	r.mu.Unlock()

	switch {
	case input == "":
	case known:
		r.notice.Set(ux.NoticeSuccess, fmt.Sprintf("Ciclo activo: %s", cycle.Name), r.feedbackTTL)
	default:
		r.notice.Set(ux.NoticeInfo, fmt.Sprintf("Ciclo %q no existe todavía", cycle.Name), r.feedbackTTL)
	}

	if changed {
		r.logger.Debug("active cycle changed", "cycle", cycle.Name, "known", known)
		for _, fn := range listeners {
			fn(cycle)
		}
	}
	return cycle, known
}

// lookup matches by exact name first, then by numeric id.
func (r *CycleRegistry) lookup(input string) (labapi.Cycle, bool) {
	if input == "" {
		return labapi.Cycle{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cycles {
		if c.Name == input {
			return c, true
		}
	}
	if id, err := strconv.Atoi(input); err == nil {
		for _, c := range r.cycles {
			if c.ID == id {
				return c, true
			}
		}
	}
	return labapi.Cycle{}, false
}

// ActiveName returns the selected cycle name, or "".
func (r *CycleRegistry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// ActiveID resolves the active cycle's id by name in the cached list.
// ok is false when nothing is selected or the name is not cached.
func (r *CycleRegistry) ActiveID() (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == "" {
		return 0, false
	}
	for _, c := range r.cycles {
		if c.Name == r.active {
			return c.ID, true
		}
	}
	return 0, false
}

// Active returns the selected cycle with its cached id when known.
func (r *CycleRegistry) Active() (labapi.Cycle, bool) {
	name := r.ActiveName()
	if name == "" {
		return labapi.Cycle{}, false
	}
	c, ok := r.lookup(name)
	if !ok {
		return labapi.Cycle{Name: name}, true
	}
	return c, true
}

// OnChange registers fn to run whenever the active cycle changes.
func (r *CycleRegistry) OnChange(fn func(labapi.Cycle)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Notice returns the registry's user-visible message.
func (r *CycleRegistry) Notice() *ux.Notice {
	return r.notice
}
