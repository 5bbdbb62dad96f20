// Package content anchors every lookup the resolver chain makes.
//
// A [Root] pairs the absolute content directory with its parent (where the
// not-found views live) and exposes both as [io/fs.FS] views. [Acquire]
// reads a file in one step so that "absent" and "present" are the only
// two outcomes a caller has to branch on.
package content
