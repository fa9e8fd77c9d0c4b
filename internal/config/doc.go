// Package config defines the format-agnostic configuration model for an
// experiment, along with the Loader interface for reading it from disk.
//
// The `config.Model` is the single source of truth for the `experiment`
// package. Concrete implementations of the Loader interface, such as for
// HCL, are provided in separate packages.
package config
