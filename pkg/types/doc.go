// Package types defines the run directory layout, lifecycle status values,
// metadata and parameter types, and the standard errors shared by the
// notata writer and readers.
//
// The writer (package logbook) and the readers (package reader) never talk to
// each other directly. They agree only on the layout constants declared here.
package types
