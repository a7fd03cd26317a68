// Package canonical builds the canonical sample: the subset of the
// photometric sample that mirrors the characteristics of the
// spectroscopic sample.
//
// For every spectroscopic object the nearest photometric object of the
// same type, and in the same observing group, is selected without
// replacement. Distances are Euclidean over standardised characteristics
// and are searched with a k-d tree.
package canonical
