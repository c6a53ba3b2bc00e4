// Package storage inspects the destination directory that the browser
// downloads into.
//
// Store.AlreadyFetched is the resume check: an item counts as fetched when
// any finished file name, normalized with the identity package, contains the
// item's key. In-progress download files (.crdownload, .part, .tmp,
// .download) are never treated as finished.
//
// WaitForArtifact watches the directory with fsnotify and returns as soon as
// a new finished file appears.
package storage
