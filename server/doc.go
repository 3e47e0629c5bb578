// Package server accepts client connections and serves miniminio commands.
//
// Each accepted connection is owned by one goroutine that reads a message,
// decodes it into a command, runs it on the shared executor and writes the
// reply. Connections share the stores by pointer; the only locking happens
// inside the stores.
//
// Command failures such as an unknown command or a missing upload are
// answered with a simple message starting with "ERR " and the connection
// stays open. Malformed input gets one such reply and then the connection
// is closed.
//
// Counters and a latency histogram are kept in a VictoriaMetrics set and
// summarized by Stats.
package server
