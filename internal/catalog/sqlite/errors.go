package sqlite

import "errors"

// ErrStorageClosed is returned when an operation is attempted on a closed Storage.
var ErrStorageClosed = errors.New("sqlite: storage is closed")

// ErrNotFound is returned when a lookup by primary key finds no row.
var ErrNotFound = errors.New("sqlite: not found")
