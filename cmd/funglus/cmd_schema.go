// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

func newSchemaCmd() *cobra.Command {
	var width int
	return &cobra.Command{
		Use:   "schema [TABLE]",
		Short: "Describe the fields of the general data and stage tables",
		Long: `Prints the fields of each record table as markdown. TABLE is general,
materia_prima, gubys, cenizas or formulacion; without it every table is
shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas, err := schemasFor(firstArg(args))
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, s := range schemas {
				writeSchema(&b, s)
			}
			out, err := ux.RenderMarkdown(b.String(), width)
			if err != nil {
				return err
			}
			fmt.Fprint(ux.Stdout(), out)
			return nil
		},
	}
}

func schemasFor(table string) ([]recordform.Schema, error) {
	if table == "" {
		out := []recordform.Schema{recordform.GeneralSchema}
		for _, st := range labapi.LedgerStages {
			s, _ := recordform.LedgerSchema(st)
			out = append(out, s)
		}
		return out, nil
	}
	if strings.EqualFold(table, "general") || strings.EqualFold(table, "datos_generales") {
		return []recordform.Schema{recordform.GeneralSchema}, nil
	}
	st, err := labapi.ParseLedgerStage(table)
	if err != nil {
		return nil, err
	}
	s, _ := recordform.LedgerSchema(st)
	return []recordform.Schema{s}, nil
}

// writeSchema appends one markdown table per schema.
func writeSchema(b *strings.Builder, s recordform.Schema) {
	fmt.Fprintf(b, "## %s\n\n", s.Name)
	b.WriteString("| Campo | Etiqueta | Tipo | Calculado | Opciones |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, f := range s.Fields {
		computed := ""
		if f.Derived {
			computed = "sí"
		}
		fmt.Fprintf(b, "| `%s` | %s | %s | %s | %s |\n",
			f.Key, escapeCell(f.Label), f.Kind, computed, escapeCell(strings.Join(f.Options, ", ")))
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
