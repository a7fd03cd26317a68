// Package learn runs active learning loops over feature tables.
//
// A Runner drives the loop and reports every iteration as an
// events.LoopEvent. Results reach disk or a database through event
// handlers: FileSink writes the metrics and queried-objects tables and
// StoreSink persists them through the store interfaces.
package learn
