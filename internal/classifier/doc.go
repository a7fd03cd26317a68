// Package classifier provides the supervised models used by the active
// learning loop: a random forest, k-nearest neighbours and Gaussian naive
// Bayes, plus a bootstrap ensemble over any of them.
//
// Every model predicts class probabilities with columns ordered as
// Classes().
package classifier
