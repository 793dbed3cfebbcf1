// Package events provides the in-process live status fan-out.
//
// A Broadcaster keys subscriptions by song ID. Each Subscription owns an
// independent FIFO drained by its own goroutine, so Notify never blocks on a
// slow or abandoned reader. No history is kept: a subscriber only sees events
// published while it is registered.
//
// The primary components are:
// - StatusEvent: the payload describing a song's phase statuses
// - Broadcaster: the registry owning every Subscription
// - Subscription: one observer's delivery channel
package events
