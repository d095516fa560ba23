package container

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shinji-kodama/rasterbatch/internal/engine"
	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

// ParseXYZ counts the values of "x y value" lines as printed by
// gdal_translate -of XYZ, ignoring noData. Blank lines and a leading
// column header line are skipped.
func ParseXYZ(r io.Reader, noData int64) ([]model.ClassStat, error) {
	counter := scheme.NewCounter(noData)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("XYZ line %d: expected 3 columns, got %d", line, len(fields))
		}

		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("XYZ line %d: invalid value %q: %w", line, fields[2], err)
		}
		if math.IsNaN(v) {
			continue
		}
		counter.Add(int64(math.Round(v)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read XYZ output: %w", err)
	}
	return counter.Stats(), nil
}

// gdalInfo is the subset of gdalinfo -json output the engine needs.
type gdalInfo struct {
	Bands []struct {
		Band        int    `json:"band"`
		Description string `json:"description"`
	} `json:"bands"`
}

// ParseGDALInfo extracts the band list from gdalinfo -json output.
func ParseGDALInfo(data []byte) ([]model.Band, error) {
	var info gdalInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse gdalinfo output: %w", err)
	}

	descriptions := make([]string, len(info.Bands))
	for i, b := range info.Bands {
		if b.Band != 0 && b.Band != i+1 {
			return nil, fmt.Errorf("gdalinfo output lists band %d at position %d", b.Band, i+1)
		}
		descriptions[i] = b.Description
	}
	return engine.BandsFromDescriptions(descriptions), nil
}
