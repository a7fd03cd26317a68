// Package photometry reads raw light curves from the supported surveys:
// SNPCC .DAT files and PLAsTiCC CSV photometry with its metadata table.
package photometry
