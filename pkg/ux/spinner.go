// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SpinnerType defines the animation style
type SpinnerType int

const (
	SpinnerDots SpinnerType = iota
	SpinnerLine
	SpinnerPulse
	SpinnerGlobe
)

var spinnerStyles = map[SpinnerType]spinner.Spinner{
	SpinnerDots:  spinner.Dot,
	SpinnerLine:  spinner.Line,
	SpinnerPulse: spinner.Pulse,
	SpinnerGlobe: spinner.Globe,
}

// Spinner provides an animated loading indicator for blocking backend calls.
// In machine mode it prints a single PROGRESS line instead of animating.
type Spinner struct {
	message    string
	spinType   SpinnerType
	stop       chan struct{}
	done       chan struct{}
	mu         sync.Mutex
	isRunning  bool
	animating  bool
	frameIndex int
}

// NewSpinner creates a new spinner with the given message
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		spinType: SpinnerDots,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithType sets the spinner animation type
func (s *Spinner) WithType(t SpinnerType) *Spinner {
	s.spinType = t
	return s
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true

	if !ShouldShowProgress() {
		s.mu.Unlock()
		fmt.Fprintf(Stderr(), "PROGRESS: %s\n", s.message)
		return
	}
	s.animating = true
	s.mu.Unlock()

	style, ok := spinnerStyles[s.spinType]
	if !ok {
		style = spinner.Dot
	}
	interval := style.FPS
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(s.done)

		for {
			select {
			case <-s.stop:
				fmt.Fprint(Stdout(), "\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				frame := Styles.Highlight.Render(style.Frames[s.frameIndex])
				msg := s.message
				s.frameIndex = (s.frameIndex + 1) % len(style.Frames)
				s.mu.Unlock()
				fmt.Fprintf(Stdout(), "\r%s %s", frame, msg)
			}
		}
	}()
}

// Stop halts the spinner animation and waits for the render loop to exit.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	animating := s.animating
	s.animating = false
	s.mu.Unlock()

	if !animating {
		return
	}
	close(s.stop)
	<-s.done
}

// UpdateMessage changes the spinner message while running
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// StopWithSuccess stops and prints a success message
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	Success(message)
}

// StopWithError stops and prints an error message
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	Error(message)
}

// WithSpinner runs fn behind a spinner. The spinner is always stopped before
// returning; printing the outcome is left to the caller.
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()
	defer spin.Stop()
	return fn()
}
