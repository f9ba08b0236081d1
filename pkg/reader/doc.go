// Package reader opens run directories and experiment directories written by
// the logbook package. Readers never modify what they read; every load goes
// back to disk.
package reader
