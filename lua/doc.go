// Package lua runs Lua scripts for the EVAL, EVALSHA and SCRIPT LOAD
// commands.
//
// Scripts see the KEYS and ARGV tables passed by the client and reach the
// key/value store through redis.call() and redis.pcall(), which support
// GET, SET and EXISTS. Each script runs in a fresh interpreter with only
// the base, table, string and math libraries opened.
package lua
