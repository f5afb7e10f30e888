// Package main is the sandbox-init helper binary.
//
// The executor spawns sandbox-init as the child process for every
// submission. The helper applies the resource limits passed through
// GRADEBOX_LIMIT_* environment variables as rlimits, scrubs its environment
// down to a small allowlist, and then replaces itself with the Python
// interpreter via exec. Because this happens after fork and before exec,
// every limit is already in force when the first byte of submitted code
// runs.
package main
