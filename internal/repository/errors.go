// Package repository defines the user store implementations and the
// error values they share. These sentinel values allow higher layers
// such as services to distinguish between different failure scenarios
// without depending on a particular storage driver.
package repository

import "errors"

// ErrNotFound is returned when no user matches the lookup. Services
// translate this into their own domain error.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by Save when another user already owns the
// email address. Handlers should translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
