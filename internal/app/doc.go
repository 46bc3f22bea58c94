// Package app wires together the registry, the plan loader, and the
// out-of-order processor into a runnable unit, decoupled from any
// specific entrypoint like a CLI.
package app
