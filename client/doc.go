// Package client is a small synchronous client for a miniminio server.
//
// Each method sends one request and waits for its reply:
//
//	c, err := client.Dial(ctx, "localhost:6378")
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	id, err := c.CreateMultipartUpload("bucket", "key", "v1")
//	...
//	err = c.UploadPart(id, 1, data)
//	...
//	err = c.CompleteMultipartUpload(id, 1)
//
// Command errors reported by the server are returned as *ServerError and
// leave the connection usable. Transport and protocol errors do not.
package client
