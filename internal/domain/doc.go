// Package domain contains the core entities of the pipeline: photometric
// observations, light curves, feature tables and the supernova type
// taxonomies of the supported surveys. It is independent of any file format
// or storage mechanism.
package domain
