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
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/batch"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

// measureFlags hold the three raw measurements of an analysis entry.
type measureFlags struct {
	a, b, c string
}

func (m *measureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.a, "a", "", "Nitrogen: sample weight (g). Ash: empty crucible (g)")
	cmd.Flags().StringVar(&m.b, "b", "", "Nitrogen: HCl normality. Ash: crucible with sample (g)")
	cmd.Flags().StringVar(&m.c, "c", "", "Nitrogen: HCl volume (cm3). Ash: crucible with ash (g)")
}

func (m measureFlags) parse() (batch.Measurements, error) {
	var out batch.Measurements
	var err error
	if out.A, err = optionalFloat("a", m.a); err != nil {
		return out, err
	}
	if out.B, err = optionalFloat("b", m.b); err != nil {
		return out, err
	}
	if out.C, err = optionalFloat("c", m.c); err != nil {
		return out, err
	}
	return out, nil
}

func newBatchCmd(a *app) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:     "batch",
		Aliases: []string{"lote"},
		Short:   "Nitrogen and ash analysis batches",
		Long: `A batch groups nitrogen or ash determinations made together. Entries
reference the general data record of their cycle, stage, sample and origin;
the backend computes the results and copies them into that record.`,
	}

	listCmd := &cobra.Command{
		Use:   "list TYPE",
		Short: "List batches of one analysis type (nitrogeno or cenizas)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := a.bench.Batches(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				rows = append(rows, []string{strconv.Itoa(b.ID), b.Label, formatTime(b.At), b.Analysis, deref(b.Description)})
			}
			ux.PrintTable([]string{"ID", "Lote", "Fecha/Hora", "Tipo", "Descripción"}, rows, "No hay lotes.")
			return nil
		},
	}

	var nb batch.NewBatch
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a batch",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.bench.CreateBatch(cmd.Context(), nb)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Lote %q creado (id %d, %s)", b.Label, b.ID, b.Analysis))
			return nil
		},
	}
	createCmd.Flags().StringVar(&nb.Label, "label", "", "Batch label, e.g. N-07")
	createCmd.Flags().StringVar(&nb.Analysis, "type", "", "Analysis type: nitrogeno or cenizas")
	createCmd.Flags().StringVar(&nb.At, "at", "", "Date-time, RFC 3339 (default now)")
	createCmd.Flags().StringVar(&nb.Description, "description", "", "Free text description")

	var upLabel, upAt, upDescription string
	updateCmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the label, date-time or description of a batch",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd.CommandPath(), "batch id", args[0])
			if err != nil {
				return err
			}
			b, err := a.bench.UpdateBatch(cmd.Context(), id, upLabel, upAt, upDescription)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Lote %d actualizado: %s", b.ID, b.Label))
			return nil
		},
	}
	updateCmd.Flags().StringVar(&upLabel, "label", "", "New label")
	updateCmd.Flags().StringVar(&upAt, "at", "", "New date-time, RFC 3339")
	updateCmd.Flags().StringVar(&upDescription, "description", "", "New description")

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a batch and all of its entries",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd.CommandPath(), "batch id", args[0])
			if err != nil {
				return err
			}
			b, err := a.bench.Batch(cmd.Context(), id)
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("¿Eliminar el lote %q y todos sus registros?", b.Label)
			if err := a.confirmAction(cmd.Context(), cmd.CommandPath(), prompt); err != nil {
				return err
			}
			msg, err := a.bench.DeleteBatch(cmd.Context(), id)
			if err != nil {
				return err
			}
			ux.Success(msg)
			return nil
		},
	}

	entriesCmd := &cobra.Command{
		Use:   "entries ID",
		Short: "List the entries of a batch",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd.CommandPath(), "batch id", args[0])
			if err != nil {
				return err
			}
			b, err := a.bench.Batch(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printEntries(cmd.Context(), b)
		},
	}

	var addKeys keyFlags
	var addMeasures measureFlags
	addCmd := &cobra.Command{
		Use:   "add ID",
		Short: "Add a nitrogen or ash entry to a batch",
		Long: `Adds a determination for the general record selected by --cycle, --stage,
--sample and --origin. The batch type decides which analysis is recorded.`,
		Example: `  funglus batch add 3 --cycle C2025-01 --stage materia_prima --sample TAMO --origin BODEGA --a 0.5 --b 0.1 --c 10`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd.CommandPath(), "batch id", args[0])
			if err != nil {
				return err
			}
			m, err := addMeasures.parse()
			if err != nil {
				return err
			}
			b, err := a.bench.Batch(cmd.Context(), id)
			if err != nil {
				return err
			}
			keys, tuple, err := a.generalKeys(cmd.Context(), addKeys)
			if err != nil {
				return err
			}
			switch b.Analysis {
			case batch.Nitrogen:
				e, err := a.bench.AddNitrogen(cmd.Context(), id, keys, m)
				if err != nil {
					return err
				}
				ux.Success(fmt.Sprintf("Registro de nitrógeno %d añadido al lote %q (%s)", e.ID, b.Label, tuple))
				ux.KeyValue("N total (%)", fmtFloat(e.TotalNitrogenPct, 2))
				ux.KeyValue("Humedad ref. (%)", fmtFloat(e.HumidityUsedPct, 2))
				ux.KeyValue("Peso seco (g)", fmtFloat(e.DryWeightG, 3))
				ux.KeyValue("N base seca (%)", fmtFloat(e.DryNitrogenPct, 2))
			default:
				e, err := a.bench.AddAsh(cmd.Context(), id, keys, m)
				if err != nil {
					return err
				}
				ux.Success(fmt.Sprintf("Registro de cenizas %d añadido al lote %q (%s)", e.ID, b.Label, tuple))
				ux.KeyValue("Cenizas (%)", fmtFloat(e.AshPct, 2))
			}
			return nil
		},
	}
	addKeys.register(addCmd)
	addMeasures.register(addCmd)

	var editMeasures measureFlags
	editCmd := &cobra.Command{
		Use:   "edit-entry TYPE ENTRY_ID",
		Short: "Change the measurements of an entry",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validation.ValidateAnalysisType(args[0])
			if err != nil {
				return labapi.NewValidationError("%v", err)
			}
			id, err := parseID(cmd.CommandPath(), "entry id", args[1])
			if err != nil {
				return err
			}
			m, err := editMeasures.parse()
			if err != nil {
				return err
			}
			if m.A == nil && m.B == nil && m.C == nil {
				return usageError(cmd.CommandPath(), "nothing to update: pass --a, --b or --c")
			}
			if kind == batch.Nitrogen {
				e, err := a.bench.UpdateNitrogen(cmd.Context(), id, m)
				if err != nil {
					return err
				}
				ux.Success(fmt.Sprintf("Registro de nitrógeno %d actualizado", e.ID))
				ux.KeyValue("N total (%)", fmtFloat(e.TotalNitrogenPct, 2))
				ux.KeyValue("N base seca (%)", fmtFloat(e.DryNitrogenPct, 2))
				return nil
			}
			e, err := a.bench.UpdateAsh(cmd.Context(), id, m)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Registro de cenizas %d actualizado", e.ID))
			ux.KeyValue("Cenizas (%)", fmtFloat(e.AshPct, 2))
			return nil
		},
	}
	editMeasures.register(editCmd)

	deleteEntryCmd := &cobra.Command{
		Use:   "delete-entry TYPE ENTRY_ID",
		Short: "Delete one entry",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validation.ValidateAnalysisType(args[0])
			if err != nil {
				return labapi.NewValidationError("%v", err)
			}
			id, err := parseID(cmd.CommandPath(), "entry id", args[1])
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("¿Eliminar el registro de %s %d?", kind, id)
			if err := a.confirmAction(cmd.Context(), cmd.CommandPath(), prompt); err != nil {
				return err
			}
			var msg string
			if kind == batch.Nitrogen {
				msg, err = a.bench.DeleteNitrogen(cmd.Context(), id)
			} else {
				msg, err = a.bench.DeleteAsh(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			ux.Success(msg)
			return nil
		},
	}

	var avgKeys keyFlags
	var avgBatch int
	averageCmd := &cobra.Command{
		Use:   "average",
		Short: "Average the nitrogen results of a record into its general data",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, tuple, err := a.generalKeys(cmd.Context(), avgKeys)
			if err != nil {
				return err
			}
			rec, err := a.bench.Average(cmd.Context(), keys, avgBatch)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Promedio de nitrógeno actualizado para %s", tuple))
			ux.KeyValue("N Total Res. (%)", rec.Display("resultado_nitrogeno_total_porc", 2))
			ux.KeyValue("N Seca Res. (%)", rec.Display("resultado_nitrogeno_seca_porc", 2))
			return nil
		},
	}
	avgKeys.register(averageCmd)
	averageCmd.Flags().IntVar(&avgBatch, "batch", 0, "Only average entries of this batch")

	var pvKeys keyFlags
	var pvMeasures measureFlags
	var pvHumidity string
	previewCmd := &cobra.Command{
		Use:   "preview TYPE",
		Short: "Compute an analysis result locally without saving",
		Long: `Applies the backend formulas to --a, --b and --c. For nitrogen the dry
basis needs a humidity: --humidity, or the humidity average of the record
selected by the key flags.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validation.ValidateAnalysisType(args[0])
			if err != nil {
				return labapi.NewValidationError("%v", err)
			}
			m, err := pvMeasures.parse()
			if err != nil {
				return err
			}
			if kind == batch.Ash {
				ux.KeyValue("Cenizas (%)", fmtFloat(batch.PreviewAsh(m), 2))
				return nil
			}
			humidity, err := optionalFloat("humidity", pvHumidity)
			if err != nil {
				return err
			}
			if humidity == nil && pvKeys.stage != "" {
				keys, _, err := a.generalKeys(cmd.Context(), pvKeys)
				if err != nil {
					return err
				}
				if humidity, err = a.bench.Humidity(cmd.Context(), keys); err != nil {
					return err
				}
			}
			p := batch.PreviewNitrogen(m, humidity)
			ux.KeyValue("N total (%)", fmtFloat(p.TotalPct, 2))
			ux.KeyValue("Humedad ref. (%)", fmtFloat(humidity, 2))
			ux.KeyValue("Peso seco (g)", fmtFloat(p.DryWeightG, 3))
			ux.KeyValue("N base seca (%)", fmtFloat(p.DryPct, 2))
			return nil
		},
	}
	pvKeys.register(previewCmd)
	pvMeasures.register(previewCmd)
	previewCmd.Flags().StringVar(&pvHumidity, "humidity", "", "Reference humidity (%)")

	batchCmd.AddCommand(listCmd, createCmd, updateCmd, deleteCmd, entriesCmd,
		addCmd, editCmd, deleteEntryCmd, averageCmd, previewCmd)
	return batchCmd
}

// printEntries lists the entries of b with their context names.
func (a *app) printEntries(ctx context.Context, b *labapi.Batch) error {
	ux.Title(fmt.Sprintf("Lote %s (%s)", b.Label, b.Analysis))
	if b.Analysis == batch.Nitrogen {
		entries, err := a.bench.NitrogenEntries(ctx, b.ID)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				strconv.Itoa(e.ID), refName(e.StageRef, e.StageID), refName(e.SampleRef, e.SampleID), refName(e.OriginRef, e.OriginID),
				fmtFloat(e.SampleWeightG, -1), fmtFloat(e.HClNormality, -1), fmtFloat(e.HClVolumeCm3, -1),
				fmtFloat(e.TotalNitrogenPct, 2), fmtFloat(e.HumidityUsedPct, 2), fmtFloat(e.DryWeightG, 3), fmtFloat(e.DryNitrogenPct, 2),
			})
		}
		ux.PrintTable([]string{"ID", "Etapa", "Muestra", "Origen", "Peso (g)", "N HCl", "Vol HCl", "N Total (%)", "H ref. (%)", "Peso seco (g)", "N Seca (%)"},
			rows, "El lote no tiene registros.")
		return nil
	}

	entries, err := a.bench.AshEntries(ctx, b.ID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.ID), refName(e.StageRef, e.StageID), refName(e.SampleRef, e.SampleID), refName(e.OriginRef, e.OriginID),
			fmtFloat(e.CrucibleG, -1), fmtFloat(e.CrucibleSampleG, -1), fmtFloat(e.CrucibleAshG, -1), fmtFloat(e.AshPct, 2),
		})
	}
	ux.PrintTable([]string{"ID", "Etapa", "Muestra", "Origen", "Crisol (g)", "Crisol+Muestra (g)", "Crisol+Cenizas (g)", "Cenizas (%)"},
		rows, "El lote no tiene registros.")
	return nil
}

func refName(ref *labapi.CatalogEntry, id int) string {
	switch {
	case ref != nil && ref.Name != "":
		return ref.Name
	case id != 0:
		return fmt.Sprintf("ID: %d", id)
	default:
		return "N/A"
	}
}

func fmtFloat(v *float64, precision int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

// formatTime shortens a batch timestamp for tables.
func formatTime(at strfmt.DateTime) string {
	t := time.Time(at)
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
