// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/summary"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

// =============================================================================
// Summary browser
// =============================================================================

// maxColumnWidth caps a column so wide metadata does not push the computed
// results off screen.
const maxColumnWidth = 18

// summaryModel is the bubbletea model of the interactive cycle summary.
//
// # Description
//
// The model only browses. Deleting and reloading need the backend and a
// confirmation prompt, so the model records the request and quits; the
// command performs it and starts a fresh model with the new rows.
//
// # Thread Safety
//
// Single-threaded use within the bubbletea event loop.
type summaryModel struct {
	title  string
	notice string
	rows   []summary.Row
	table  table.Model

	// Requests for the caller.
	pending  *labapi.EntryKeys
	reload   bool
	quitting bool
}

// newSummaryModel builds the table. The cursor starts at cursor, clamped
// to the row count.
func newSummaryModel(title string, headers []string, rows []summary.Row, notice string, cursor int) summaryModel {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	tableRows := make([]table.Row, len(rows))
	for r, row := range rows {
		tableRows[r] = table.Row(row.Cells)
		for i, cell := range row.Cells {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: min(widths[i], maxColumnWidth)}
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 15)),
		table.WithStyles(styles),
	)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor > 0 {
		t.SetCursor(cursor)
	}

	return summaryModel{title: title, notice: notice, rows: rows, table: t}
}

// Init implements tea.Model.
func (m summaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m summaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if h := msg.Height - 6; h > 2 {
			m.table.SetHeight(h)
		}
		m.table.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "d", "delete":
			if len(m.rows) == 0 {
				m.notice = "No hay registros para eliminar."
				return m, nil
			}
			keys := m.rows[m.table.Cursor()].Keys
			m.pending = &keys
			return m, tea.Quit
		case "r":
			m.reload = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m summaryModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(ux.Styles.Title.Render(m.title))
	b.WriteString("\n")
	if len(m.rows) == 0 {
		b.WriteString(ux.Styles.Muted.Render("No hay registros para este ciclo."))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(ux.Styles.Muted.Render("↑/↓ mover · d eliminar · r recargar · q salir"))
	return b.String()
}
