// Package api is the HTTP surface of the song service: the payment trigger,
// the owner's song view and the live progress stream. Handlers translate
// HTTP to service calls and map service errors to status codes.
package api
