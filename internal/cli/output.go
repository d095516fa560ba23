package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// failureJSON is the JSON form of a model.Failure.
type failureJSON struct {
	Raster string `json:"raster"`
	Band   string `json:"band,omitempty"`
	Code   int    `json:"code"`
	Error  string `json:"error"`
}

// runJSON is the JSON output structure of the classify command.
type runJSON struct {
	RunID      string              `json:"runId"`
	Engine     string              `json:"engine"`
	Workspace  string              `json:"workspace"`
	ExportPath string              `json:"exportPath,omitempty"`
	Rasters    []model.RasterStats `json:"rasters"`
	Failures   []failureJSON       `json:"failures"`
}

// splitJSON is the JSON output structure of the split command.
type splitJSON struct {
	Engine       string             `json:"engine"`
	Workspace    string             `json:"workspace"`
	OutputFolder string             `json:"outputFolder"`
	Outputs      []model.BandOutput `json:"outputs"`
	Failures     []failureJSON      `json:"failures"`
}

func newRunJSON(runID, engineName string, result *model.RunResult) runJSON {
	rasters := result.Rasters
	if rasters == nil {
		rasters = []model.RasterStats{}
	}
	return runJSON{
		RunID:      runID,
		Engine:     engineName,
		Workspace:  result.Workspace,
		ExportPath: result.ExportPath,
		Rasters:    rasters,
		Failures:   failuresJSON(result.Failures),
	}
}

func newSplitJSON(engineName string, result *model.SplitResult) splitJSON {
	outputs := result.Outputs
	if outputs == nil {
		outputs = []model.BandOutput{}
	}
	return splitJSON{
		Engine:       engineName,
		Workspace:    result.Workspace,
		OutputFolder: result.OutputFolder,
		Outputs:      outputs,
		Failures:     failuresJSON(result.Failures),
	}
}

// failuresJSON converts failures, returning an empty slice instead of nil
// so the JSON shows [] rather than null.
func failuresJSON(failures []model.Failure) []failureJSON {
	out := make([]failureJSON, 0, len(failures))
	for _, f := range failures {
		entry := failureJSON{Raster: f.Raster, Band: f.Band, Code: int(model.ExitCodeOf(f.Err))}
		if f.Err != nil {
			entry.Error = f.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode JSON output", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write output", err)
	}
	return nil
}
