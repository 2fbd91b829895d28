// Package lock guards an output directory against concurrent bundler runs.
//
// The lock is a file holding the owner PID. A lock left behind by a process
// that no longer exists is treated as stale and taken over.
package lock
