// Package command runs synchronous DCP request/response exchanges.
//
// A Call binds one request message to a transport and the response catalog.
// One request is outstanding at a time: Send writes a frame, Receive reads
// the next framed response off the same stream. Nothing is retried; a
// failure after Send leaves the stream state to the caller.
package command
