// Package container is a raster engine that runs the GDAL command-line
// utilities inside a Docker container, for hosts where GDAL is not
// installed.
//
// Every engine call starts one short-lived container from the configured
// image, bind-mounts the directories of the files involved at the same
// absolute paths, waits for the command to exit, collects its output and
// removes the container. Containers carry rasterbatch.* labels with the
// run identifier so leftovers of an interrupted run can be found and
// removed (see RemoveRunContainers).
//
// The commands used are:
//
//	gdal_calc.py     classification (nested where() expression)
//	gdal_translate   tabulation (-of XYZ to stdout) and band copies (-b N)
//	gdalinfo -json   band introspection
package container
