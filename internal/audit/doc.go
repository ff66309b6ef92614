// Package audit provides the security-event model and an asynchronous
// dispatcher that forwards events to a pluggable sink. Emitting never blocks
// the request path when drop-if-full is configured; dropped events are
// counted, not silently lost.
package audit
