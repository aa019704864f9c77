// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/summary"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func testRows() []summary.Row {
	return []summary.Row{
		{Keys: labapi.EntryKeys{CycleID: 1, StageID: 3, OriginID: 11}, Cells: []string{"Tamo Húmedo", "N/A", "VOLTEO1"}},
		{Keys: labapi.EntryKeys{CycleID: 1, StageID: 3, OriginID: 12}, Cells: []string{"Tamo Húmedo", "N/A", "VOLTEO2"}},
	}
}

var testHeaders = []string{"Etapa", "Muestra", "Origen"}

func TestSummaryModel_DeleteRequestsCursorRow(t *testing.T) {
	model := newSummaryModel("Resumen", testHeaders, testRows(), "", 0)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated, cmd := updated.(summaryModel).Update(runeKey('d'))

	m := updated.(summaryModel)
	require.NotNil(t, m.pending)
	assert.Equal(t, 12, m.pending.OriginID)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSummaryModel_DeleteWithoutRows(t *testing.T) {
	model := newSummaryModel("Resumen", testHeaders, nil, "", 0)

	updated, cmd := model.Update(runeKey('d'))

	m := updated.(summaryModel)
	assert.Nil(t, m.pending)
	assert.Nil(t, cmd)
	assert.Equal(t, "No hay registros para eliminar.", m.notice)
	assert.Contains(t, m.View(), "No hay registros para este ciclo.")
}

func TestSummaryModel_QuitAndReload(t *testing.T) {
	tests := []struct {
		name       string
		msg        tea.KeyMsg
		wantReload bool
		wantQuit   bool
	}{
		{"q quits", runeKey('q'), false, true},
		{"esc quits", tea.KeyMsg{Type: tea.KeyEsc}, false, true},
		{"r reloads", runeKey('r'), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newSummaryModel("Resumen", testHeaders, testRows(), "", 0)

			updated, cmd := model.Update(tt.msg)

			m := updated.(summaryModel)
			assert.Equal(t, tt.wantReload, m.reload)
			assert.Equal(t, tt.wantQuit, m.quitting)
			assert.Nil(t, m.pending)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestSummaryModel_CursorIsClamped(t *testing.T) {
	model := newSummaryModel("Resumen", testHeaders, testRows(), "", 9)

	assert.Equal(t, 1, model.table.Cursor())
}

func TestSummaryModel_ViewShowsNotice(t *testing.T) {
	model := newSummaryModel("Resumen del ciclo C1", testHeaders, testRows(), "Registro eliminado.", 0)

	view := model.View()

	assert.Contains(t, view, "Resumen del ciclo C1")
	assert.Contains(t, view, "VOLTEO1")
	assert.Contains(t, view, "Registro eliminado.")
}
