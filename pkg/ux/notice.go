// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"sync"
	"time"
)

// NoticeKind classifies a transient message.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice holds one user-visible message that clears itself after a TTL.
//
// Expiry is evaluated lazily on read, so a Notice owns no timer or goroutine
// and needs no Close. The clock is injectable for tests.
//
// The zero value is an empty notice using time.Now.
type Notice struct {
	mu      sync.Mutex
	text    string
	kind    NoticeKind
	expires time.Time
	now     func() time.Time
}

// NewNotice returns an empty Notice. A nil clock means time.Now.
func NewNotice(clock func() time.Time) *Notice {
	return &Notice{now: clock}
}

func (n *Notice) clock() time.Time {
	if n.now == nil {
		return time.Now()
	}
	return n.now()
}

// Set replaces the current message. A ttl <= 0 keeps it until the next Set
// or Clear.
func (n *Notice) Set(kind NoticeKind, text string, ttl time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kind = kind
	n.text = text
	if ttl > 0 {
		n.expires = n.clock().Add(ttl)
	} else {
		n.expires = time.Time{}
	}
}

// Clear drops the current message.
func (n *Notice) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = ""
	n.expires = time.Time{}
}

// Get returns the message if it has not expired.
func (n *Notice) Get() (string, NoticeKind, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.text == "" {
		return "", NoticeInfo, false
	}
	if !n.expires.IsZero() && !n.clock().Before(n.expires) {
		n.text = ""
		n.expires = time.Time{}
		return "", NoticeInfo, false
	}
	return n.text, n.kind, true
}

// Text returns the live message or "".
func (n *Notice) Text() string {
	text, _, _ := n.Get()
	return text
}

// Render styles the live message by kind, or returns "".
func (n *Notice) Render() string {
	text, kind, ok := n.Get()
	if !ok {
		return ""
	}
	switch kind {
	case NoticeSuccess:
		return IconSuccess.Render() + " " + Styles.Success.Render(text)
	case NoticeError:
		return IconError.Render() + " " + Styles.Error.Render(text)
	default:
		return Styles.Muted.Render(text)
	}
}

// Print writes the live message through the personality-aware helpers.
func (n *Notice) Print() {
	text, kind, ok := n.Get()
	if !ok {
		return
	}
	switch kind {
	case NoticeSuccess:
		Success(text)
	case NoticeError:
		Error(text)
	default:
		Info(text)
	}
}
