// Package limits provides centralized protocol constants and validation functions
// for LetsShare transfers.
//
// # Streaming Units
//
//   - ChunkSize (32768 bytes): every payload read from the source and every
//     payload read from the socket uses a buffer of this size.
//
//   - FlushInterval (1 MiB): whenever the cumulative byte count crosses a
//     multiple of this value, buffered output is flushed. On the sending side
//     the engine also yields for about a millisecond, which is the only
//     backpressure the protocol has.
//
//   - MaxTextFrame (65535 bytes): text frames carry a 2-byte big-endian length
//     prefix, so no handshake token or file name may exceed this size.
//
// # Validation Functions
//
//	if err := limits.ValidateFileName(name); err != nil {
//	    // ErrFileNameEmpty or ErrTextTooLong
//	}
//
//	if err := limits.ValidatePort(port); err != nil {
//	    // ErrInvalidPort
//	}
//
// All returned errors wrap one of the package sentinels, so callers classify
// them with errors.Is.
package limits
