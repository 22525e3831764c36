// Package store provides the small persistence abstraction the token store
// and dead-letter queue are built on: a namespaced key-value Store with a
// filesystem-backed implementation (atomic write via temp-file-then-rename)
// and an in-memory implementation for tests and demos. It exists to give
// those collaborators something real to read from and write to — it is not
// a general-purpose database layer.
package store
