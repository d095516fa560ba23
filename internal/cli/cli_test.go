// Package cli, cli_test.go runs the commands end to end against the pure-Go
// TIFF engine, and tests the output helpers.
//
// These tests need neither GDAL nor a Docker daemon.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	_ "github.com/shinji-kodama/rasterbatch/internal/engine/tiffengine"
	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// tiffWorkspace creates a workspace with one 2x2 raster holding 0, 0, 1, 1.
func tiffWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(img.Pix, []uint8{0, 0, 1, 1})

	f, err := os.Create(filepath.Join(dir, "raster1.tif"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
	return dir
}

// run executes the root command with args and returns stdout, stderr and
// the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// TestClassifyCommand verifies the text stream and the CSV export.
func TestClassifyCommand(t *testing.T) {
	ws := tiffWorkspace(t)
	exportPath := filepath.Join(t.TempDir(), "stats.csv")

	stdout, _, err := run(t, "classify", ws, "--export", exportPath)
	require.NoError(t, err)
	assert.Equal(t, "raster1.tif\n0 2\n1 2\n", stdout)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Equal(t, "raster1.tif,0,2\nraster1.tif,1,2\n", string(data))
}

// TestClassifyCommand_JSON verifies the JSON document replaces the text
// stream.
func TestClassifyCommand_JSON(t *testing.T) {
	ws := tiffWorkspace(t)

	stdout, _, err := run(t, "classify", "--workspace", ws, "--json")
	require.NoError(t, err)

	var got struct {
		RunID    string `json:"runId"`
		Engine   string `json:"engine"`
		Rasters  []model.RasterStats
		Failures []json.RawMessage `json:"failures"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Len(t, got.RunID, 36)
	assert.Equal(t, "tiff", got.Engine)
	require.Len(t, got.Rasters, 1)
	assert.Equal(t, "raster1.tif", got.Rasters[0].Name)
	assert.Equal(t, "reclass1", got.Rasters[0].ScratchID)
	assert.Equal(t, []model.ClassStat{{Value: 0, Count: 2}, {Value: 1, Count: 2}}, got.Rasters[0].Stats)
	assert.NotNil(t, got.Failures)
	assert.Empty(t, got.Failures)
}

// TestClassifyCommand_Precedence verifies flags override the file and
// the file overrides the defaults.
func TestClassifyCommand_Precedence(t *testing.T) {
	ws := tiffWorkspace(t)
	cfgPath := filepath.Join(t.TempDir(), "rasterbatch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workspace: "+ws+"\nscheme: \"0 1 5\"\n"), 0o644))

	stdout, _, err := run(t, "classify", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "raster1.tif\n5 4\n", stdout)

	stdout, _, err = run(t, "classify", "--config", cfgPath, "--scheme", "1 1 9")
	require.NoError(t, err)
	assert.Equal(t, "raster1.tif\n9 2\n", stdout)
}

// TestClassifyCommand_Errors verifies the exit code of each failure.
func TestClassifyCommand_Errors(t *testing.T) {
	ws := tiffWorkspace(t)

	tests := []struct {
		name string
		args []string
		code model.ExitCode
	}{
		{name: "missing workspace", args: []string{"classify", filepath.Join(ws, "missing")}, code: model.ExitWorkspaceError},
		{name: "unknown engine", args: []string{"classify", ws, "--engine", "nope"}, code: model.ExitEngineUnavailable},
		{name: "bad scheme", args: []string{"classify", ws, "--scheme", "0 1"}, code: model.ExitConfigError},
		{name: "band out of range", args: []string{"classify", ws, "--band", "3"}, code: model.ExitClassificationError},
		{name: "missing config", args: []string{"classify", "--config", filepath.Join(ws, "none.yaml")}, code: model.ExitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, model.ExitCodeOf(err))
			assert.Empty(t, stdout)
		})
	}
}

// TestExecuteContext_Cancelled verifies an interrupted classify stops
// before the first raster and reports a general error.
func TestExecuteContext_Cancelled(t *testing.T) {
	ws := tiffWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"classify", ws})
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	code := executeContext(ctx, root, &stderr)
	assert.Equal(t, model.ExitGeneralError, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "run cancelled")

	root = NewRootCommand()
	root.SetArgs([]string{"classify", ws})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestExecuteContext_Success verifies a successful command exits 0.
func TestExecuteContext_Success(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"engines"})
	root.SetOut(&stdout)

	assert.Equal(t, model.ExitSuccess, executeContext(context.Background(), root, &stderr))
	assert.Empty(t, stderr.String())
}

// TestSplitCommand verifies band files and the text summary.
func TestSplitCommand(t *testing.T) {
	ws := tiffWorkspace(t)
	out := filepath.Join(t.TempDir(), "out")

	stdout, _, err := run(t, "split", ws, "--output", out, "--prefix-raster-name")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "raster1_Band_1.tif"))
	assert.Contains(t, stdout, "RASTER")
	assert.Contains(t, stdout, filepath.Join(out, "raster1_Band_1.tif"))

	_, _, err = run(t, "split", ws, "--output", out, "--prefix-raster-name", "--overwrite=false")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrBandCopy))
}

// TestEnginesCommand verifies the default engine is listed and marked.
func TestEnginesCommand(t *testing.T) {
	stdout, _, err := run(t, "engines")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tiff *")

	stdout, _, err = run(t, "engines", "--json")
	require.NoError(t, err)
	var got struct {
		Default string `json:"default"`
		Engines []struct {
			Name string `json:"name"`
		} `json:"engines"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "tiff", got.Default)
	assert.NotEmpty(t, got.Engines)
}

// TestConfigCommands verifies init followed by validate.
func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rasterbatch.yaml")

	stdout, _, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+path)

	_, _, err = run(t, "config", "init", path)
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigError, model.ExitCodeOf(err))

	stdout, _, err = run(t, "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid")

	require.NoError(t, os.WriteFile(path, []byte("band: 0\nnodata_policy: ignore\n"), 0o644))
	stdout, _, err = run(t, "--config", path, "config", "validate")
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigError, model.ExitCodeOf(err))
	assert.Contains(t, stdout, "band:")
	assert.Contains(t, stdout, "nodata_policy:")
}

// TestFormatEngineName verifies the default engine marker.
func TestFormatEngineName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "tiff", want: "tiff *"},
		{name: "gdal", want: "gdal"},
		{name: "docker", want: "docker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEngineName(tt.name))
		})
	}
}

// TestPrintError verifies the text and JSON error formats.
func TestPrintError(t *testing.T) {
	err := model.WrapCLIError(model.ExitWorkspaceError, "workspace /x does not exist", errors.New("no such file"))

	t.Cleanup(func() { jsonOutput = false })

	var buf bytes.Buffer
	jsonOutput = false
	printError(&buf, err)
	assert.Equal(t, "Error: workspace /x does not exist: no such file\n", buf.String())

	buf.Reset()
	printError(&buf, errors.New("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())

	buf.Reset()
	jsonOutput = true
	printError(&buf, err)
	var got struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Error.Code)
	assert.Equal(t, "workspace /x does not exist", got.Error.Message)
	assert.Equal(t, "no such file", got.Error.Detail)
}

// TestFailuresJSON verifies failures keep their exit code and an empty
// list is not null.
func TestFailuresJSON(t *testing.T) {
	assert.Equal(t, []failureJSON{}, failuresJSON(nil))

	got := failuresJSON([]model.Failure{{
		Raster: "a.tif",
		Band:   "red",
		Err:    model.NewCLIError(model.ExitBandCopyError, "copy failed"),
	}})
	assert.Equal(t, []failureJSON{{Raster: "a.tif", Band: "red", Code: 6, Error: "copy failed"}}, got)
}
