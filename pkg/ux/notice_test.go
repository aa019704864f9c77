// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestNotice_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	n := NewNotice(clock.now)

	n.Set(NoticeError, "Error al cargar ciclos", 5*time.Second)

	clock.advance(4 * time.Second)
	text, kind, ok := n.Get()
	assert.True(t, ok)
	assert.Equal(t, "Error al cargar ciclos", text)
	assert.Equal(t, NoticeError, kind)

	clock.advance(time.Second)
	assert.Equal(t, "", n.Text())
}

func TestNotice_ZeroTTLPersists(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	n := NewNotice(clock.now)

	n.Set(NoticeInfo, "sticky", 0)
	clock.advance(time.Hour)

	assert.Equal(t, "sticky", n.Text())
	n.Clear()
	assert.Equal(t, "", n.Text())
}

func TestNotice_SetReplacesPrevious(t *testing.T) {
	var n Notice
	n.Set(NoticeError, "first", time.Minute)
	n.Set(NoticeSuccess, "second", time.Minute)

	text, kind, ok := n.Get()
	assert.True(t, ok)
	assert.Equal(t, "second", text)
	assert.Equal(t, NoticeSuccess, kind)
}

func TestNotice_RenderAndPrint(t *testing.T) {
	out, errOut := withOutput(t, PersonalityMachine)

	n := NewNotice(nil)
	assert.Equal(t, "", n.Render())
	n.Print()
	assert.Empty(t, out.String())

	n.Set(NoticeError, "Faltan: origen", time.Minute)
	assert.True(t, strings.Contains(n.Render(), "Faltan: origen"))
	n.Print()
	assert.Contains(t, errOut.String(), "ERROR: Faltan: origen")
}
