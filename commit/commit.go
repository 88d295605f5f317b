// Package commit contains code for reading commits, extracting ticket
// references from them and naming release tags.
package commit
