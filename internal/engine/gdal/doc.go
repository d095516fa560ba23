// Package gdal is a raster engine backed by the GDAL library through
// github.com/airbusgeo/godal.
//
// It reads any raster GDAL can open. Classified rasters are written as
// single-band Int32 GeoTIFF (Deflate, tiled) with no-data math.MinInt32
// and the source georeferencing. Band copies use gdal_translate -b N,
// so data type, georeferencing and metadata follow the source.
//
// Building this package requires the GDAL development headers and cgo.
// Binaries built with the nogdal tag leave it out.
package gdal
