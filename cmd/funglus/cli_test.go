// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/FunglusLab/cmd/funglus/config"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
	"github.com/jinterlante1206/FunglusLab/services/labstub/routes"
	"github.com/jinterlante1206/FunglusLab/services/labstub/store"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.Notify = io.Discard
}

// harness runs the command tree against an in-process backend.
type harness struct {
	t       *testing.T
	apiURL  string
	cfgPath string

	// confirm answers prompts; nil leaves the default behaviour.
	confirm func(ctx context.Context, prompt string) (bool, error)
	prompts []string
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, env := range []string{config.EnvAPIURL, config.EnvLogLevel, config.EnvCycle, config.EnvTraces, config.EnvMetrics} {
		t.Setenv(env, "")
	}
	t.Setenv(ux.PersonalityEnv, "machine")

	st := store.New(nil)
	store.SeedDefaults(st)
	srv := httptest.NewServer(routes.NewRouter(routes.Options{Store: st}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { ux.SetOutput(nil, nil) })

	return &harness{
		t:       t,
		apiURL:  srv.URL + routes.APIPrefix,
		cfgPath: filepath.Join(t.TempDir(), "funglus.yaml"),
	}
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	root, a := newRootCmd()
	if h.confirm != nil {
		a.confirm = func(ctx context.Context, prompt string) (bool, error) {
			h.prompts = append(h.prompts, prompt)
			return h.confirm(ctx, prompt)
		}
	}
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	ux.SetOutput(&out, &errOut)
	root.SetArgs(append([]string{"--config", h.cfgPath, "--api-url", h.apiURL}, args...))

	code := execute(context.Background(), root)
	a.close()
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (h *harness) mustRun(args ...string) result {
	h.t.Helper()
	res := h.run(args...)
	require.Equal(h.t, 0, res.code, "stdout: %s\nstderr: %s", res.stdout, res.stderr)
	return res
}

func TestCLI_CycleLifecycle(t *testing.T) {
	h := newHarness(t)

	res := h.mustRun("cycle", "create", "C2025-01", "--description", "primer ciclo", "--start", "2025-01-15")
	assert.Contains(t, res.stdout, `OK: Ciclo "C2025-01" creado`)

	res = h.mustRun("cycle", "list")
	assert.Contains(t, res.stdout, "ID\tCiclo\tDescripción\tFecha Inicio")
	assert.Contains(t, res.stdout, "C2025-01\tprimer ciclo\t2025-01-15")

	res = h.run("cycle", "create", "C2025-01")
	assert.NotEqual(t, 0, res.code)
	assert.Contains(t, res.stderr, "ERROR:")
}

func TestCLI_CycleCreate_InvalidName(t *testing.T) {
	h := newHarness(t)

	res := h.run("cycle", "create", "bad/name")

	assert.Equal(t, ExitValidation, res.code)
	assert.Contains(t, res.stderr, "ERROR:")
}

func TestCLI_UnknownCommandIsUsageError(t *testing.T) {
	h := newHarness(t)

	res := h.run("frobnicate")

	assert.Equal(t, ExitUsage, res.code)
}

func TestCLI_EntrySetRecomputesAverages(t *testing.T) {
	h := newHarness(t)
	h.mustRun("cycle", "create", "C2025-01")

	res := h.mustRun("entry", "set",
		"--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1",
		"humedad_1_porc=60", "humedad_2_porc=62")
	assert.Contains(t, res.stdout, "H. Prom. (%)\t61.00")

	res = h.mustRun("entry", "show", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1")
	assert.Contains(t, res.stdout, "Humedad 1 (%)\t60")
	assert.Contains(t, res.stdout, "H. Prom. (%)\t61.00")
}

func TestCLI_EntrySetPreviewDoesNotSave(t *testing.T) {
	h := newHarness(t)
	h.mustRun("cycle", "create", "C2025-01")
	keys := []string{"--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO2"}

	res := h.mustRun(append([]string{"entry", "set", "--preview", "fdr_1_kgf=1", "fdr_2_kgf=2", "fdr_3_kgf=3"}, keys...)...)
	assert.Contains(t, res.stdout, "FDR Prom. (Kgf)\t2.000")

	res = h.mustRun(append([]string{"entry", "show"}, keys...)...)
	assert.Contains(t, res.stdout, "FDR Prom. (Kgf)\t-")
}

func TestCLI_EntrySet_InvalidOrigin(t *testing.T) {
	h := newHarness(t)
	h.mustRun("cycle", "create", "C2025-01")

	res := h.run("entry", "set", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "BODEGA", "ph_valor=7")

	assert.Equal(t, ExitValidation, res.code)
}

func TestCLI_EntrySet_BadNumber(t *testing.T) {
	h := newHarness(t)
	h.mustRun("cycle", "create", "C2025-01")

	res := h.run("entry", "set", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1", "ph_valor=abc")

	assert.Equal(t, ExitValidation, res.code)
}

func TestCLI_SummaryAndDelete(t *testing.T) {
	h := newHarness(t)
	h.mustRun("cycle", "create", "C2025-01")
	h.mustRun("entry", "set", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1", "ph_valor=7")
	h.mustRun("entry", "set", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO2", "ph_valor=6.5")

	res := h.mustRun("summary", "C2025-01")
	assert.Contains(t, res.stdout, "SUMMARY: rows=2 cycle=C2025-01")

	t.Run("non-interactive delete needs --yes", func(t *testing.T) {
		res := h.run("summary", "delete", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1")
		assert.Equal(t, ExitUsage, res.code)
		assert.Contains(t, res.stderr, "--yes")
	})

	t.Run("declined prompt keeps the row", func(t *testing.T) {
		h.confirm = func(context.Context, string) (bool, error) { return false, nil }
		defer func() { h.confirm = nil }()

		res := h.run("summary", "delete", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1")
		assert.Equal(t, ExitCancelled, res.code)
		require.NotEmpty(t, h.prompts)
		assert.Contains(t, h.prompts[len(h.prompts)-1], "¿Eliminar el registro")

		res = h.mustRun("summary", "C2025-01")
		assert.Contains(t, res.stdout, "SUMMARY: rows=2 cycle=C2025-01")
	})

	t.Run("--yes deletes", func(t *testing.T) {
		res := h.mustRun("--yes", "summary", "delete", "--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1")
		assert.Contains(t, res.stdout, "SUMMARY: rows=1 cycle=C2025-01")
	})
}

func TestCLI_SummaryUnknownCycle(t *testing.T) {
	h := newHarness(t)

	res := h.run("summary", "NOPE")

	assert.Equal(t, ExitValidation, res.code)
	assert.Contains(t, res.stderr, `"NOPE"`)
}

func TestCLI_LedgerStageUsesOwnTable(t *testing.T) {
	h := newHarness(t)
	keys := []string{"--cycle", "C2025-07", "--stage", "gubys", "--origin", "ENTRADA"}

	h.mustRun(append([]string{"entry", "set", "ph=6.8"}, keys...)...)

	res := h.mustRun("stage", "cycles")
	assert.Contains(t, res.stdout, "C2025-07")

	res = h.mustRun("stage", "show", "gubys", "C2025-07")
	assert.Contains(t, res.stdout, "ph\t6.8")
}

func TestCLI_CatalogCommands(t *testing.T) {
	h := newHarness(t)

	res := h.mustRun("catalog", "list", "origenes")
	assert.Contains(t, res.stdout, "VOLTEO1")

	res = h.mustRun("catalog", "add", "muestras", "COMPOST")
	assert.Contains(t, res.stdout, "OK:")

	res = h.run("catalog", "list", "planets")
	assert.NotEqual(t, 0, res.code)
}

func TestCLI_BatchNitrogenFlow(t *testing.T) {
	h := newHarness(t)
	h.mustRun("cycle", "create", "C2025-01")
	keys := []string{"--cycle", "C2025-01", "--stage", "tamo_humedo", "--origin", "VOLTEO1"}
	h.mustRun(append([]string{"entry", "set", "humedad_1_porc=50", "humedad_2_porc=50"}, keys...)...)

	res := h.mustRun("batch", "create", "--label", "N-01", "--type", "nitrogeno")
	assert.Contains(t, res.stdout, `OK: Lote "N-01" creado`)

	res = h.mustRun(append([]string{"batch", "add", "1", "--a", "0,5", "--b", "0.1", "--c", "10"}, keys...)...)
	assert.Contains(t, res.stdout, "OK: Registro de nitrógeno")
	assert.Contains(t, res.stdout, "Humedad ref. (%)\t50.00")

	res = h.mustRun("batch", "entries", "1")
	assert.Contains(t, res.stdout, "VOLTEO1")

	res = h.mustRun(append([]string{"batch", "average"}, keys...)...)
	assert.Contains(t, res.stdout, "OK: Promedio de nitrógeno actualizado")
	assert.Contains(t, res.stdout, "N Total Res. (%)\t2.80")
	assert.Contains(t, res.stdout, "N Seca Res. (%)\t5.60")
}

func TestCLI_BatchPreviewAsh(t *testing.T) {
	h := newHarness(t)

	res := h.mustRun("batch", "preview", "cenizas", "--a", "10", "--b", "20", "--c", "12")

	assert.Contains(t, res.stdout, "Cenizas (%)\t20.00")
}

func TestCLI_BatchPreview_BadType(t *testing.T) {
	h := newHarness(t)

	res := h.run("batch", "preview", "azufre", "--a", "1")

	assert.Equal(t, ExitValidation, res.code)
}

func TestCLI_ConfigShow(t *testing.T) {
	h := newHarness(t)

	res := h.mustRun("config", "show")
	assert.Contains(t, res.stdout, "base_url: "+h.apiURL)

	res = h.mustRun("config", "path")
	assert.Equal(t, h.cfgPath, strings.TrimSpace(res.stdout))
}

func TestCLI_SchemaMachineModeIsMarkdown(t *testing.T) {
	h := newHarness(t)

	res := h.mustRun("schema", "general")

	assert.Contains(t, res.stdout, "## datos_generales")
	assert.Contains(t, res.stdout, "| `humedad_prom_porc` |")
}
