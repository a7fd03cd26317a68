// Package store defines the persistence interfaces for learning runs,
// their metrics and queried objects, together with the transaction helper
// and error values shared by every implementation.
package store
