// Package scheme implements classification schemes: ordered lists of
// (lower bound, upper bound, output class) ranges used to reclassify
// continuous pixel values into discrete classes.
//
// Bounds are inclusive on both ends and the first matching range wins,
// so two ranges may share an endpoint ("0 1 1;1 2 2" sends 1 to class 1)
// but may not otherwise overlap. The textual form accepted by Parse is
// the one used by common GIS reclassification tools:
//
//	"0 0 0;1 1 1"
//
// Besides parsing and validation the package holds the pixel-level
// reclassification and tabulation shared by the in-process engines.
package scheme
