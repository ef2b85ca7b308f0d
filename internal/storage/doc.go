// Package storage persists canonical schedule items and app settings.
//
// The sqlite driver (modernc.org/sqlite, no cgo) is the default; the memory
// driver backs tests. Bulk imports rely on InsertMany being transactional so
// a failed import leaves nothing behind.
package storage
