// Package protocol implements the framed message protocol spoken by
// miniminio servers and clients.
//
// Every frame is a Message: a simple line of text, an opaque bulk
// payload, null, or an array of messages. Lines end in CRLF and lengths
// are decimal ASCII:
//
//	+OK\r\n                  simple
//	$5\r\nhello\r\n          bulk
//	$-1\r\n                  null
//	*2\r\n+GET\r\n$3\r\nfoo\r\n  array
//
// Decoding is split in two phases. Check scans the buffered bytes without
// allocating and reports ErrIncomplete until a whole message is present;
// Parse then walks the same bytes again to build the Message. Connection
// drives this loop over a stream:
//
//	conn := protocol.NewConnection(netConn)
//	for {
//		msg, err := conn.ReadMessage()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		// Process msg
//	}
//
// Parser walks the elements of a decoded array for request types.
package protocol
