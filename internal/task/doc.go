// Package task manages job queuing and concurrent processing.
// It runs CPU-bound units of work, such as fitting every light curve of a
// data set, on a bounded pool of worker goroutines.
package task
