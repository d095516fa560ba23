// Package tiffengine is a pure-Go raster engine for baseline TIFF files,
// built on golang.org/x/image/tiff.
//
// Supported inputs are 8 and 16-bit grayscale, paletted, and 8 or 16-bit
// RGB/RGBA images. Grayscale and paletted images have one band, opaque
// RGB images three, and images with an alpha channel four. Paletted
// images expose palette indices, not colours.
//
// Classified rasters are written as 16-bit grayscale TIFF with Deflate
// compression. The value 65535 is reserved as no-data, so class values
// must lie within 0..65534. Baseline TIFF carries no no-data tag, so the
// sentinel is implied for every raster this engine writes.
//
// GeoTIFF tags are not carried over to output files. Use the gdal or
// container engine when georeferencing must be preserved.
package tiffengine
