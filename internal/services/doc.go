// Package services carries cross-cutting request annotations shared by the
// processor and daemon: batch correlation ids and the job/image identifiers
// a log line belongs to.
package services
