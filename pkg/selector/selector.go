// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selector resolves the (cycle, stage, sample, origin) key of a
// laboratory record.
//
// A Selector walks through Idle, CycleChosen, PartiallyKeyed and
// FullyKeyed as the user picks values. Confirm emits the resolved Tuple to
// the OnConfirm callback; any upstream change fires OnClear so consumers
// drop data loaded for a stale key.
package selector

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

// DefaultMessageTTL is how long selector messages stay visible.
const DefaultMessageTTL = 4 * time.Second

var (
	// ErrIncompleteKeys is returned by Confirm when a required key is unset.
	ErrIncompleteKeys = errors.New("incomplete keys")

	// ErrUnknownStage is returned when a stage matches neither the static
	// table nor the stage catalog.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrInvalidOption is returned when a value is not among the options.
	ErrInvalidOption = errors.New("invalid option")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// State is the selection progress.
type State int

const (
	// StateIdle has no cycle.
	StateIdle State = iota
	// StateCycleChosen has a cycle and no sub-keys.
	StateCycleChosen
	// StatePartiallyKeyed has some required sub-keys.
	StatePartiallyKeyed
	// StateFullyKeyed has every required key.
	StateFullyKeyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCycleChosen:
		return "cycle_chosen"
	case StatePartiallyKeyed:
		return "partially_keyed"
	case StateFullyKeyed:
		return "fully_keyed"
	default:
		return "unknown"
	}
}

// Ref names one key dimension. ID is 0 when the name has no catalog entry.
type Ref struct {
	ID   int    `validate:"gte=0"`
	Name string `validate:"max=100"`
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.ID == 0 && r.Name == ""
}

// RefFromCycle converts a catalog cycle.
func RefFromCycle(c labapi.Cycle) Ref {
	return Ref{ID: c.ID, Name: c.Name}
}

// Tuple is a resolved record key.
type Tuple struct {
	StageKey string `validate:"required"`
	Ledger   labapi.LedgerStage

	Cycle  Ref `validate:"required"`
	Stage  Ref `validate:"required"`
	Sample Ref
	Origin Ref
}

// Keys returns the id-based wire keys. Absent sample or origin are 0.
func (t Tuple) Keys() labapi.EntryKeys {
	return labapi.EntryKeys{
		CycleID:  t.Cycle.ID,
		StageID:  t.Stage.ID,
		SampleID: t.Sample.ID,
		OriginID: t.Origin.ID,
	}
}

// String renders the tuple as "Ciclo=X, Origen=Y, Muestra=Z".
func (t Tuple) String() string {
	parts := []string{"Ciclo=" + t.Cycle.Name}
	if t.Origin.Name != "" {
		parts = append(parts, "Origen="+t.Origin.Name)
	}
	if t.Sample.Name != "" {
		parts = append(parts, "Muestra="+t.Sample.Name)
	}
	return strings.Join(parts, ", ")
}

// Catalogs are the stage, sample and origin catalogs used to resolve names
// to ids.
type Catalogs struct {
	Stages  []labapi.CatalogEntry
	Samples []labapi.CatalogEntry
	Origins []labapi.CatalogEntry
}

func findByName(entries []labapi.CatalogEntry, name string) (labapi.CatalogEntry, bool) {
	name = strings.TrimSpace(name)
	for _, e := range entries {
		if strings.EqualFold(strings.TrimSpace(e.Name), name) {
			return e, true
		}
	}
	return labapi.CatalogEntry{}, false
}

// CycleSource is the part of the cycle registry the selector follows.
type CycleSource interface {
	Active() (labapi.Cycle, bool)
	OnChange(fn func(labapi.Cycle))
}

// Selector is the key-selection state machine for one screen.
//
// Thread Safety: Safe for concurrent use. Callbacks run after internal
// locks are released.
type Selector struct {
	mu sync.Mutex

	defs     []StageDef
	catalogs Catalogs

	cycle     Ref
	stage     StageDef
	hasStage  bool
	sample    string
	origin    string
	confirmed bool

	onConfirm func(Tuple)
	onClear   func()

	notice *ux.Notice
	ttl    time.Duration
	logger *logging.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithStages replaces the static stage table.
func WithStages(defs []StageDef) Option {
	return func(s *Selector) {
		s.defs = defs
	}
}

// WithResetOverrides sets ResetOriginOnSample per stage key.
func WithResetOverrides(overrides map[string]bool) Option {
	return func(s *Selector) {
		for i := range s.defs {
			if v, ok := overrides[s.defs[i].Key]; ok {
				s.defs[i].ResetOriginOnSample = v
			}
		}
	}
}

// WithCatalogs sets the catalogs used for id resolution.
func WithCatalogs(c Catalogs) Option {
	return func(s *Selector) {
		s.catalogs = c
	}
}

// WithClock sets the clock of the message notice.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		s.notice = ux.NewNotice(now)
	}
}

// WithMessageTTL sets how long messages stay visible.
func WithMessageTTL(d time.Duration) Option {
	return func(s *Selector) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// OnConfirm registers the callback receiving confirmed tuples.
func OnConfirm(fn func(Tuple)) Option {
	return func(s *Selector) {
		s.onConfirm = fn
	}
}

// OnClear registers the callback fired when the key becomes stale.
func OnClear(fn func()) Option {
	return func(s *Selector) {
		s.onClear = fn
	}
}

// New creates a selector with the default stage table. WithStages must come
// before WithResetOverrides.
func New(opts ...Option) *Selector {
	s := &Selector{
		defs:   DefaultStages(),
		notice: ux.NewNotice(nil),
		ttl:    DefaultMessageTTL,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Follow keeps the selector's cycle in sync with src and adopts its current
// selection.
func (s *Selector) Follow(src CycleSource) {
	src.OnChange(func(c labapi.Cycle) {
		s.SetCycle(RefFromCycle(c))
	})
	if c, ok := src.Active(); ok {
		s.SetCycle(RefFromCycle(c))
	}
}

// SetCatalogs replaces the catalogs used for id resolution.
func (s *Selector) SetCatalogs(c Catalogs) {
	s.mu.Lock()
	s.catalogs = c
	s.mu.Unlock()
}

// Stages lists the static stages followed by catalog stages with no static
// definition.
func (s *Selector) Stages() []StageDef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StageDef, 0, len(s.defs)+len(s.catalogs.Stages))
	seen := make(map[string]bool)
	for _, d := range s.defs {
		out = append(out, d)
		seen[d.Key] = true
	}
	for _, e := range s.catalogs.Stages {
		key := StageKey(e.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, catalogStage(e, s.catalogs.Samples, s.catalogs.Origins))
	}
	return out
}

// SetCycle changes the cycle. Sample and origin are reset.
func (s *Selector) SetCycle(ref Ref) {
	ref.Name = strings.TrimSpace(ref.Name)
	s.mu.Lock()
	if ref == s.cycle {
		s.mu.Unlock()
		return
	}
	s.cycle = ref
	s.sample, s.origin = "", ""
	s.confirmed = false
	s.mu.Unlock()

	s.logger.Debug("selector cycle changed", "cycle", ref.Name)
	s.fireClear()
}

// SetStage selects a stage by key or catalog name. Sample and origin are
// reset.
func (s *Selector) SetStage(keyOrName string) error {
	key := StageKey(keyOrName)
	s.mu.Lock()
	def, ok := s.lookupStage(key)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownStage, keyOrName)
	}
	if s.hasStage && s.stage.Key == def.Key {
		s.mu.Unlock()
		return nil
	}
	s.stage, s.hasStage = def, true
	s.sample, s.origin = "", ""
	s.confirmed = false
	s.mu.Unlock()

	s.fireClear()
	return nil
}

func (s *Selector) lookupStage(key string) (StageDef, bool) {
	for _, d := range s.defs {
		if d.Key == key {
			return d, true
		}
	}
	for _, e := range s.catalogs.Stages {
		if StageKey(e.Name) == key {
			return catalogStage(e, s.catalogs.Samples, s.catalogs.Origins), true
		}
	}
	return StageDef{}, false
}

// Stage returns the selected stage definition.
func (s *Selector) Stage() (StageDef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage, s.hasStage
}

// SetSample selects a sample. Values match options case-insensitively and
// are stored in canonical form; "" clears the sample. The origin is reset
// when the stage's ResetOriginOnSample flag is set, or when it is not among
// the origins of the new sample.
func (s *Selector) SetSample(value string) error {
	value = strings.TrimSpace(value)
	s.mu.Lock()
	if !s.hasStage {
		s.mu.Unlock()
		return fmt.Errorf("%w: select a stage first", ErrIncompleteKeys)
	}
	if !s.stage.UsesSample() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s has no sample key", ErrInvalidOption, s.stage.Label)
	}
	canonical, err := matchOption(s.stage.SampleOptions, value, DimSample)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if canonical == s.sample {
		s.mu.Unlock()
		return nil
	}
	s.sample = canonical
	if s.stage.ResetOriginOnSample || !s.originValidLocked() {
		s.origin = ""
	}
	s.confirmed = false
	s.mu.Unlock()

	s.fireClear()
	return nil
}

// SetOrigin selects an origin among the options for the current sample.
func (s *Selector) SetOrigin(value string) error {
	value = strings.TrimSpace(value)
	s.mu.Lock()
	if !s.hasStage {
		s.mu.Unlock()
		return fmt.Errorf("%w: select a stage first", ErrIncompleteKeys)
	}
	if !s.stage.UsesOrigin() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s has no origin key", ErrInvalidOption, s.stage.Label)
	}
	opts := s.stage.originsFor(s.sample)
	if value != "" && len(opts) == 0 && s.stage.OriginsBySample != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: select a sample first", ErrInvalidOption)
	}
	canonical, err := matchOption(opts, value, DimOrigin)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if canonical == s.origin {
		s.mu.Unlock()
		return nil
	}
	s.origin = canonical
	s.confirmed = false
	s.mu.Unlock()

	s.fireClear()
	return nil
}

// originValidLocked reports whether the current origin is still offered
// for the current sample.
func (s *Selector) originValidLocked() bool {
	if s.origin == "" {
		return true
	}
	opts := s.stage.originsFor(s.sample)
	if len(opts) == 0 {
		return s.stage.OriginsBySample == nil
	}
	_, err := matchOption(opts, s.origin, DimOrigin)
	return err == nil
}

// matchOption returns the canonical option value for input. An empty
// option list accepts any value.
func matchOption(opts []Choice, input string, dim Dimension) (string, error) {
	if input == "" || len(opts) == 0 {
		return input, nil
	}
	for _, o := range opts {
		if strings.EqualFold(o.Value, input) || strings.EqualFold(o.Label, input) {
			return o.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s %q", ErrInvalidOption, strings.ToLower(dim.Label()), input)
}

// SampleOptions returns the sample choices of the selected stage.
func (s *Selector) SampleOptions() []Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasStage || !s.stage.UsesSample() {
		return []Choice{}
	}
	return cloneOptions(s.stage.SampleOptions)
}

// OriginOptions returns the origin choices for the selected stage and
// sample.
func (s *Selector) OriginOptions() []Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasStage || !s.stage.UsesOrigin() {
		return []Choice{}
	}
	return s.stage.originsFor(s.sample)
}

// Missing lists the required dimensions that are unset.
func (s *Selector) Missing() []Dimension {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

func (s *Selector) missingLocked() []Dimension {
	var missing []Dimension
	if s.cycle.Name == "" {
		missing = append(missing, DimCycle)
	}
	if !s.hasStage {
		return append(missing, DimStage)
	}
	for _, k := range s.stage.Keys {
		switch {
		case k == DimSample && s.sample == "":
			missing = append(missing, k)
		case k == DimOrigin && s.origin == "":
			missing = append(missing, k)
		}
	}
	return missing
}

// State returns the current selection state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.cycle.Name == "":
		return StateIdle
	case len(s.missingLocked()) == 0:
		return StateFullyKeyed
	case !s.hasStage || (s.sample == "" && s.origin == ""):
		return StateCycleChosen
	default:
		return StatePartiallyKeyed
	}
}

// Confirmed reports whether the current selection was confirmed and has
// not changed since.
func (s *Selector) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// Current returns the selection as a tuple without validating it.
func (s *Selector) Current() Tuple {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked()
}

// Confirm validates the selection and emits it.
//
// # Outputs
//
//   - Tuple: The resolved key, also passed to the OnConfirm callback.
//   - error: Wraps ErrIncompleteKeys naming the missing dimensions. OnClear
//     fires and a message is posted for the message TTL.
func (s *Selector) Confirm() (Tuple, error) {
	s.mu.Lock()
	missing := s.missingLocked()
	if len(missing) > 0 {
		s.confirmed = false
		s.mu.Unlock()

		labels := make([]string, len(missing))
		for i, d := range missing {
			labels[i] = d.Label()
		}
		msg := "Faltan claves: " + strings.Join(labels, ", ")
		s.notice.Set(ux.NoticeError, msg, s.ttl)
		s.fireClear()
		return Tuple{}, fmt.Errorf("%w: %s", ErrIncompleteKeys, strings.Join(labels, ", "))
	}

	tuple := s.resolveLocked()
	if err := validate.Struct(tuple); err != nil {
		s.confirmed = false
		s.mu.Unlock()
		s.notice.Set(ux.NoticeError, "Claves inválidas", s.ttl)
		s.fireClear()
		return Tuple{}, fmt.Errorf("%w: %v", ErrIncompleteKeys, err)
	}
	s.confirmed = true
	label := s.stage.Label
	onConfirm := s.onConfirm
	s.mu.Unlock()

	s.notice.Set(ux.NoticeSuccess, fmt.Sprintf("Claves listas para %s: %s", label, tuple), s.ttl)
	s.logger.Debug("keys confirmed", "stage", tuple.StageKey, "keys", tuple.String())
	if onConfirm != nil {
		onConfirm(tuple)
	}
	return tuple, nil
}

// resolveLocked maps the selected names to catalog ids by case-insensitive
// name. Origin is left out for stages where it is not a key.
func (s *Selector) resolveLocked() Tuple {
	t := Tuple{Cycle: s.cycle}
	if !s.hasStage {
		return t
	}
	t.StageKey = s.stage.Key
	t.Ledger = s.stage.Ledger
	t.Stage = Ref{Name: s.stage.Label}
	for _, e := range s.catalogs.Stages {
		if StageKey(e.Name) == s.stage.Key {
			t.Stage = Ref{ID: e.ID, Name: e.Name}
			break
		}
	}
	if s.sample != "" && s.stage.UsesSample() {
		t.Sample = Ref{Name: s.sample}
		if e, ok := findByName(s.catalogs.Samples, s.sample); ok {
			t.Sample.ID = e.ID
		}
	}
	if s.origin != "" && s.stage.UsesOrigin() {
		t.Origin = Ref{Name: s.origin}
		if e, ok := findByName(s.catalogs.Origins, s.origin); ok {
			t.Origin.ID = e.ID
		}
	}
	return t
}

// Notice returns the selector's user-visible message.
func (s *Selector) Notice() *ux.Notice {
	return s.notice
}

func (s *Selector) fireClear() {
	s.mu.Lock()
	fn := s.onClear
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
