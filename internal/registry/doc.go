// Package registry implements the aggregation pipeline: the Processor folds
// incoming APM records into per-fingerprint histogram collections held in a
// shared Table, and the Reporter periodically serializes the table and pushes
// it to the import endpoint.
//
// # Fail-Together Contract
//
// The two stages share mutable state and nothing can restart one of them in
// isolation, so they stop together. The Reporter sends a heartbeat through
// Liveness on every cycle and each stage closes its side of Liveness when it
// exits:
//
//   - the Processor notices a stopped Reporter on its next check, or
//     immediately while it waits for input, and returns ErrReporterGone;
//   - the Reporter notices a stopped Processor on its next heartbeat and
//     returns ErrProcessorGone;
//   - a closed ingestion queue stops the Processor with ErrQueueClosed.
//
// All three wrap ErrDisconnected and are returned inside a *FatalError naming
// the stage. Cancelling the context passed to Run is a clean stop.
//
// # Payload
//
// Each export cycle sends newline-terminated exposition lines: the request
// handle time histogram first, then every collection in the table.
package registry
