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
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

func newCycleCmd(a *app) *cobra.Command {
	cycleCmd := &cobra.Command{
		Use:     "cycle",
		Aliases: []string{"ciclo", "cycles"},
		Short:   "Manage the cycle catalog",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all cycles",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.registry.Refresh(cmd.Context()); err != nil {
				return err
			}
			rows := [][]string{}
			for _, c := range a.registry.Cycles() {
				rows = append(rows, []string{strconv.Itoa(c.ID), c.Name, deref(c.Description), deref(c.StartDate)})
			}
			ux.PrintTable([]string{"ID", "Ciclo", "Descripción", "Fecha Inicio"}, rows, "No hay ciclos registrados.")
			return nil
		},
	}

	var description, start string
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a cycle",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := validation.SanitizeCycleName(args[0])
			if err != nil {
				return labapi.NewValidationError("%v", err)
			}
			if err := checkDate(start); err != nil {
				return err
			}
			c, err := a.client.CreateCycle(cmd.Context(), labapi.CycleInput{
				Name:        name,
				Description: optional(description),
				StartDate:   optional(start),
			})
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Ciclo %q creado (id %d)", c.Name, c.ID))
			return nil
		},
	}
	createCmd.Flags().StringVar(&description, "description", "", "Free text description")
	createCmd.Flags().StringVar(&start, "start", "", "Start date, YYYY-MM-DD")

	var newName, newDescription, newStart string
	updateCmd := &cobra.Command{
		Use:     "update ID",
		Aliases: []string{"rename"},
		Short:   "Rename a cycle or change its description or start date",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd.CommandPath(), "cycle id", args[0])
			if err != nil {
				return err
			}
			var in labapi.CycleUpdate
			if newName != "" {
				name, err := validation.SanitizeCycleName(newName)
				if err != nil {
					return labapi.NewValidationError("%v", err)
				}
				in.Name = &name
			}
			if err := checkDate(newStart); err != nil {
				return err
			}
			in.Description = optional(newDescription)
			in.StartDate = optional(newStart)
			if in.Name == nil && in.Description == nil && in.StartDate == nil {
				return usageError(cmd.CommandPath(), "nothing to update: pass --name, --description or --start")
			}
			c, err := a.client.UpdateCycle(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Ciclo %d actualizado: %s", c.ID, c.Name))
			return nil
		},
	}
	updateCmd.Flags().StringVar(&newName, "name", "", "New cycle name")
	updateCmd.Flags().StringVar(&newDescription, "description", "", "New description")
	updateCmd.Flags().StringVar(&newStart, "start", "", "New start date, YYYY-MM-DD")

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a cycle that has no records",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd.CommandPath(), "cycle id", args[0])
			if err != nil {
				return err
			}
			c, err := a.client.GetCycle(cmd.Context(), id)
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("¿Eliminar el ciclo %q? Esta acción no se puede deshacer.", c.Name)
			if err := a.confirmAction(cmd.Context(), cmd.CommandPath(), prompt); err != nil {
				return err
			}
			msg, err := a.client.DeleteCycle(cmd.Context(), id)
			if err != nil {
				return err
			}
			ux.Success(messageOr(msg, fmt.Sprintf("Ciclo %q eliminado", c.Name)))
			return nil
		},
	}

	cycleCmd.AddCommand(listCmd, createCmd, updateCmd, deleteCmd)
	return cycleCmd
}

// optional returns nil for blank input.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func checkDate(s string) error {
	if s = strings.TrimSpace(s); s != "" && !strfmt.IsDate(s) {
		return labapi.NewValidationError("invalid date %q, expected YYYY-MM-DD", s)
	}
	return nil
}

// messageOr returns the backend message, or fallback when there is none.
func messageOr(msg *labapi.Message, fallback string) string {
	if msg != nil && msg.Message != "" {
		return msg.Message
	}
	return fallback
}
