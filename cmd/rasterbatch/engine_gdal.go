//go:build !nogdal

package main

// The gdal engine links libgdal through cgo. Build with -tags nogdal to
// produce a binary without it.
import _ "github.com/shinji-kodama/rasterbatch/internal/engine/gdal"
