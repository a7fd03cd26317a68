// Package database holds the state of an active learning run: the feature
// table split into training and test samples, the latest predictions and
// the objects queried so far.
package database
