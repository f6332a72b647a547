// Package storage is the persistence gateway for controller state.
//
// Everything the controller persists is addressed by a logical path such as
// "/rules.json" or "/history/temp1_12h.bin". A Store maps those paths onto a
// backend:
//
//   - FileStore keeps one file per path below a data directory
//   - SQLiteStore keeps one row per path in the blobs table
//   - MemoryStore keeps everything in a map (tests, dry runs)
//
// JSON documents are written pretty-printed through WriteJSON and read back
// through ReadJSON.
package storage
