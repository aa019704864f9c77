// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderTable formats rows under headers. Machine mode produces
// tab-separated lines with a header row; every other level draws a rounded
// lipgloss table.
func RenderTable(headers []string, rows [][]string) string {
	if GetPersonality().Level == PersonalityMachine {
		var b strings.Builder
		b.WriteString(strings.Join(headers, "\t"))
		b.WriteByte('\n')
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		return b.String()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Styles.TableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return Styles.TableHeader
			}
			return Styles.TableCell
		})
	return t.Render() + "\n"
}

// PrintTable writes RenderTable output, or a muted placeholder when empty.
func PrintTable(headers []string, rows [][]string, empty string) {
	if len(rows) == 0 && GetPersonality().Level != PersonalityMachine {
		Muted(empty)
		return
	}
	fmt.Fprint(Stdout(), RenderTable(headers, rows))
}
