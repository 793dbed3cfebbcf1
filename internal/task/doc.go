// Package task runs song generation work in the background. Payment handlers
// enqueue a task and return; a bounded worker pool drives each song through
// the pipeline and recovers from panics so one bad task cannot take the
// process down.
package task
