// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

func newStageCmd(a *app) *cobra.Command {
	stageCmd := &cobra.Command{
		Use:     "stage",
		Aliases: []string{"etapa"},
		Short:   "Inspect stages and initialize stage tables",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stages with their keys and table",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.catalogs(cmd.Context())
			if err != nil {
				return err
			}
			sel := a.newSelector(cats)
			rows := [][]string{}
			for _, def := range sel.Stages() {
				keys := make([]string, len(def.Keys))
				for i, k := range def.Keys {
					keys[i] = k.Label()
				}
				table := "datos_generales"
				if def.Ledger != "" {
					table = string(def.Ledger)
				}
				id := "-"
				for _, e := range cats.Stages {
					if selector.StageKey(e.Name) == def.Key {
						id = strconv.Itoa(e.ID)
					}
				}
				rows = append(rows, []string{def.Key, def.Label, id, strings.Join(keys, ", "), table, strconv.FormatBool(def.ResetOriginOnSample)})
			}
			ux.PrintTable([]string{"Clave", "Etapa", "ID", "Claves", "Tabla", "Reinicia origen"}, rows, "No hay etapas.")
			return nil
		},
	}

	var sample string
	optionsCmd := &cobra.Command{
		Use:   "options STAGE",
		Short: "List the sample and origin choices of a stage",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := selector.FindStage(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", selector.ErrUnknownStage, args[0])
			}
			rows := [][]string{}
			if def.UsesSample() {
				for _, o := range def.SampleOptions {
					rows = append(rows, []string{"Muestra", o.Value, o.Label})
				}
			}
			for _, o := range selector.OriginOptionsFor(def.Key, sample) {
				rows = append(rows, []string{"Origen", o.Value, o.Label})
			}
			if def.UsesOrigin() && len(def.OriginsBySample) > 0 && sample == "" {
				ux.Muted("Los orígenes dependen de la muestra: use --sample.")
			}
			ux.PrintTable([]string{"Dimensión", "Valor", "Etiqueta"}, rows, "Sin opciones.")
			return nil
		},
	}
	optionsCmd.Flags().StringVar(&sample, "sample", "", "Sample value that narrows the origins")

	initCmd := &cobra.Command{
		Use:   "init CYCLE",
		Short: "Create the empty stage-table rows of a cycle",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := validation.SanitizeCycleName(args[0])
			if err != nil {
				return labapi.NewValidationError("%v", err)
			}
			res, err := a.client.InitializePlaceholders(cmd.Context(), name)
			if err != nil {
				return err
			}
			ux.Success(res.Message)
			ux.KeyValue("materia_prima", strconv.Itoa(res.MateriaPrimaKey))
			ux.KeyValue("gubys", strconv.Itoa(res.GubysKey))
			ux.KeyValue("cenizas", strconv.Itoa(res.CenizasKey))
			ux.KeyValue("formulacion", strconv.Itoa(res.FormulacionKey))
			return nil
		},
	}

	cyclesCmd := &cobra.Command{
		Use:   "cycles",
		Short: "List the cycle names that have stage-table data",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.client.DistinctCycles(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(names))
			for i, n := range names {
				rows[i] = []string{n}
			}
			ux.PrintTable([]string{"Ciclo"}, rows, "Ningún ciclo tiene datos de etapa.")
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show TABLE CYCLE",
		Short: "Show the raw stage-table row of a cycle",
		Long:  "TABLE is materia_prima, gubys, cenizas or formulacion.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := labapi.ParseLedgerStage(args[0])
			if err != nil {
				return err
			}
			rec, err := a.client.GetLedger(cmd.Context(), stage, args[1])
			if err != nil {
				return err
			}
			ux.Title(fmt.Sprintf("%s · %s", stage, args[1]))
			for _, key := range sortedKeys(rec) {
				ux.KeyValue(key, rec.Display(key, -1))
			}
			return nil
		},
	}

	stageCmd.AddCommand(listCmd, optionsCmd, initCmd, cyclesCmd, showCmd)
	return stageCmd
}

func sortedKeys(rec labapi.Record) []string {
	return slices.Sorted(maps.Keys(rec))
}
