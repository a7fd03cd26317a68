// Package pipeline defines the stages of the resspect pipeline and runs
// them, alone or in sequence from a YAML manifest.
//
// Every stage takes an options struct with yaml and validate tags. The
// options are validated with the configuration validator before the stage
// runs, and a successful run leaves a <stage>.run.yaml record next to its
// first output.
package pipeline
