// Package pipeline drives a song through lyrics, audio and video generation.
//
// The Orchestrator sequences the phases for one song. Every transition is
// applied through a UnitOfWork (load, mutate, save, commit) and only then
// broadcast, so observers never see state that failed to persist.
//
// Asynchronous vendor jobs are resolved by the Poller under a fixed check
// budget. A job that is still running when the budget runs out is given up,
// not failed: the song stays in progress and the Reconciler checks the same
// job again later.
package pipeline
