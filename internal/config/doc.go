// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the pipeline settings shared by every stage while keeping
// configuration details separate from the science code.
package config
