// Package daemon hosts the background captioning schedule. A file lock
// keeps the schedule single-instance per machine; concurrent CLI batch runs
// remain safe because claiming is atomic at the queue level.
package daemon
