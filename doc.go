// Package dynmem provides shared utilities for the dynmem allocator modules:
// statistics aggregation types, alignment helpers, and debug validation
// plumbing that no-ops unless built with the debug_dynmem build tag.
//
// The allocator itself lives in the arena package. The pool package manages
// collections of named arenas.
package dynmem
