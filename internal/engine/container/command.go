package container

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shinji-kodama/rasterbatch/internal/model"
	"github.com/shinji-kodama/rasterbatch/internal/scheme"
)

// NoData is the sentinel written for no-data pixels in classified
// rasters (Int32 minimum).
const NoData = -2147483648

// DefaultImage is the GDAL image used when none is configured. The
// "normal" flavour is needed because gdal_calc.py is a Python script.
const DefaultImage = "ghcr.io/osgeo/gdal:alpine-normal-latest"

// formatNumber renders a bound for a gdal_calc expression.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CalcExpression builds the gdal_calc.py expression for a scheme. Ranges
// become nested numpy where() calls, the first range outermost so the
// first matching range wins. The innermost fallback is the no-data value,
// or the rounded input under the data policy.
//
// "0 0 0;1 1 1" with PolicyNoData yields:
//
//	where(logical_and(A>=0,A<=0),0,where(logical_and(A>=1,A<=1),1,-2147483648))
func CalcExpression(s scheme.Scheme, policy model.NoDataPolicy) string {
	expr := strconv.Itoa(NoData)
	if policy == model.PolicyData {
		expr = "rint(A)"
	}
	for i := len(s.Ranges) - 1; i >= 0; i-- {
		r := s.Ranges[i]
		expr = "where(logical_and(A>=" + formatNumber(r.From) + ",A<=" + formatNumber(r.To) + ")," +
			strconv.FormatInt(r.Class, 10) + "," + expr + ")"
	}
	return expr
}

// ClassifyCommand returns the gdal_calc.py invocation classifying band of
// input into output.
func ClassifyCommand(input string, band int, output, expr string) []string {
	return []string{
		"gdal_calc.py",
		"-A", input,
		"--A_band=" + strconv.Itoa(band),
		"--outfile=" + output,
		"--calc=" + expr,
		"--NoDataValue=" + strconv.Itoa(NoData),
		"--type=Int32",
		"--format=GTiff",
		"--co=COMPRESS=DEFLATE",
		"--overwrite",
		"--quiet",
	}
}

// TabulateCommand returns the gdal_translate invocation that prints every
// pixel of band 1 of classified as "x y value" lines on stdout.
func TabulateCommand(classified string) []string {
	return []string{"gdal_translate", "-q", "-b", "1", "-of", "XYZ", classified, "/vsistdout/"}
}

// DescribeCommand returns the gdalinfo invocation printing the raster
// metadata as JSON.
func DescribeCommand(input string) []string {
	return []string{"gdalinfo", "-json", "-nomd", input}
}

// CopyBandCommand returns the gdal_translate invocation extracting band
// index of input into dest.
func CopyBandCommand(input string, index int, dest string) []string {
	return []string{"gdal_translate", "-q", "-b", strconv.Itoa(index), "-of", "GTiff", input, dest}
}

// Mount is a bind mount of a host directory at the same path in the
// container.
type Mount struct {
	Dir      string
	ReadOnly bool
}

// Binds converts mounts into Docker bind specifications. Directories are
// de-duplicated; a directory mounted both read-only and writable is
// mounted writable. The result is sorted by directory.
func Binds(mounts ...Mount) []string {
	writable := make(map[string]bool)
	for _, m := range mounts {
		dir := filepath.Clean(m.Dir)
		writable[dir] = writable[dir] || !m.ReadOnly
	}

	dirs := make([]string, 0, len(writable))
	for dir := range writable {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	binds := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		spec := dir + ":" + dir
		if !writable[dir] {
			spec += ":ro"
		}
		binds = append(binds, spec)
	}
	return binds
}

// commandString renders cmd for log output.
func commandString(cmd []string) string {
	quoted := make([]string, len(cmd))
	for i, arg := range cmd {
		if strings.ContainsAny(arg, " \t'\"") {
			arg = strconv.Quote(arg)
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}
