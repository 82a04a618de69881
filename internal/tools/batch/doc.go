// Package batch runs one operation over a list of ids and reports the
// outcome of each, so a partial failure never hides the successes.
package batch
