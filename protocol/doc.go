// Package protocol implements the LetsShare wire format: the handshake token
// exchange and the metadata frames that precede the payload.
//
// # Wire Format
//
// One TCP stream carries, in order and in one direction (sender to receiver):
//
//  1. Handshake frame: text frame containing the literal "sir".
//  2. File size: 8-byte big-endian signed integer.
//  3. File name: text frame.
//  4. Payload: exactly file-size raw bytes.
//
// A text frame is a 2-byte big-endian byte length followed by UTF-8 bytes.
//
// # Handshake
//
// The sender calls SendHandshake right after connecting. The receiver calls
// AwaitHandshake, which discards any frame that is not the token and returns
// ErrHandshakeTimeout if the token does not arrive before the timeout:
//
//	if err := protocol.AwaitHandshake(br, conn, 60*time.Second); err != nil {
//	    return err
//	}
//	meta, err := protocol.ReadMetadata(br)
package protocol
