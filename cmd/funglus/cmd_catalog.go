// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

// newCatalogCmd manages the stage, sample and origin catalogs. KIND is
// etapas, muestras or origenes (English singular and plural also work).
func newCatalogCmd(a *app) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"catalogo"},
		Short:   "Manage the stage, sample and origin catalogs",
	}

	listCmd := &cobra.Command{
		Use:   "list KIND",
		Short: "List a catalog",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := labapi.ParseCatalogKind(args[0])
			if err != nil {
				return err
			}
			entries, err := a.client.ListCatalog(cmd.Context(), kind)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{strconv.Itoa(e.ID), e.Name, deref(e.Description)})
			}
			ux.PrintTable([]string{"ID", kind.Label(), "Descripción"}, rows, fmt.Sprintf("El catálogo %s está vacío.", kind))
			return nil
		},
	}

	var description string
	addCmd := &cobra.Command{
		Use:   "add KIND NAME",
		Short: "Add a catalog entry",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := labapi.ParseCatalogKind(args[0])
			if err != nil {
				return err
			}
			name, err := validation.SanitizeLabel(kind.Label(), args[1])
			if err != nil {
				return labapi.NewValidationError("%v", err)
			}
			e, err := a.client.CreateCatalogEntry(cmd.Context(), kind, labapi.CatalogInput{Name: name, Description: optional(description)})
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("%s %q creada (id %d)", kind.Label(), e.Name, e.ID))
			return nil
		},
	}
	addCmd.Flags().StringVar(&description, "description", "", "Free text description")

	var newName, newDescription string
	updateCmd := &cobra.Command{
		Use:     "update KIND ID",
		Aliases: []string{"rename"},
		Short:   "Rename a catalog entry or change its description",
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := labapi.ParseCatalogKind(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(cmd.CommandPath(), "id", args[1])
			if err != nil {
				return err
			}
			var in labapi.CatalogUpdate
			if newName != "" {
				name, err := validation.SanitizeLabel(kind.Label(), newName)
				if err != nil {
					return labapi.NewValidationError("%v", err)
				}
				in.Name = &name
			}
			in.Description = optional(newDescription)
			if in.Name == nil && in.Description == nil {
				return usageError(cmd.CommandPath(), "nothing to update: pass --name or --description")
			}
			e, err := a.client.UpdateCatalogEntry(cmd.Context(), kind, id, in)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("%s %d actualizada: %s", kind.Label(), e.ID, e.Name))
			return nil
		},
	}
	updateCmd.Flags().StringVar(&newName, "name", "", "New name")
	updateCmd.Flags().StringVar(&newDescription, "description", "", "New description")

	deleteCmd := &cobra.Command{
		Use:   "delete KIND ID",
		Short: "Delete a catalog entry that no record uses",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := labapi.ParseCatalogKind(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(cmd.CommandPath(), "id", args[1])
			if err != nil {
				return err
			}
			e, err := a.client.GetCatalogEntry(cmd.Context(), kind, id)
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("¿Eliminar %s %q? Esta acción no se puede deshacer.", kind.Label(), e.Name)
			if err := a.confirmAction(cmd.Context(), cmd.CommandPath(), prompt); err != nil {
				return err
			}
			msg, err := a.client.DeleteCatalogEntry(cmd.Context(), kind, id)
			if err != nil {
				return err
			}
			ux.Success(messageOr(msg, fmt.Sprintf("%s %q eliminada", kind.Label(), e.Name)))
			return nil
		},
	}

	catalogCmd.AddCommand(listCmd, addCmd, updateCmd, deleteCmd)
	return catalogCmd
}
