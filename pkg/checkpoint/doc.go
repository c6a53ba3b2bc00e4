// Package checkpoint keeps an advisory JSON manifest of items a run fetched
// successfully, one file per profile under the user data directory.
//
// The manifest never decides whether an item is skipped; that is the job of
// the destination directory scan in the storage package. It exists so the
// status command can report progress and so runs can be correlated by id.
// Writes are atomic (temp file, fsync, rename).
package checkpoint
