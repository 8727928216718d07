// Package version contains information on the current version of the program.
// It is split from the main program for easy use.
package version

// Current is the string representing the current version of parselet.
const Current = "0.4.0"

// CacheFormat is the version of the binary cache layout written by this build.
// Cached entries written with another version are discarded rather than read.
const CacheFormat = 2
