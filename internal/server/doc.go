// Package server receives APM action records over the network, decodes them
// and forwards them to the ingestion queue.
//
// A listener binds one UDP or TCP socket and decodes one of two payload
// formats:
//
//   - protobuf: a palantir Request message carrying an ApmV1Action. Over TCP
//     each message is prefixed with its varint-encoded length.
//   - json: the same message with snake_case field names. Over TCP messages
//     are newline-delimited.
//
// Payloads larger than the configured buffer size are dropped (UDP) or close
// the connection (TCP). Malformed payloads are logged and dropped. The Server
// closes the queue once every listener has stopped.
package server
