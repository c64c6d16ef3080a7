// Package repository provides data access to the relational backend.  All
// units of work are routed through the split connection pools: reads over
// the READ pool, booking writes over the WRITE pool, each scoped to exactly
// one acquired handle.
//
// The sentinel values below let handlers distinguish failure scenarios
// without inspecting driver errors; raw database errors never cross the
// handler boundary.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist.  Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert cannot proceed because of
// conflicting state, such as a seat link that already exists.  Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
