// Package fitting turns light curves into Bazin feature tables.
//
// Each filter of a light curve is fitted independently; the five best-fit
// parameters of every filter become the object's features. Data sets are
// fitted concurrently on a task.WorkerPool.
package fitting
