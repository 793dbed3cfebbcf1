// Package service contains the use cases behind the HTTP surface. It turns
// a confirmed payment into a persisted song and a queued generation run,
// and serves songs back to their owners.
//
// Services depend on the store and task abstractions only. Known failure
// modes are returned as sentinel errors the API layer maps to status codes;
// everything else is wrapped in a SongServiceError carrying the operation.
package service
