// Package cli implements the miniminio command line: the serve command and
// small client commands for a running server.
package cli
