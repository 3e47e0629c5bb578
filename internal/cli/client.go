package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miniminio/miniminio"
	"github.com/miniminio/miniminio/client"
)

// newClientCmds returns the commands that talk to a running server
func newClientCmds(v *viper.Viper) []*cobra.Command {
	cmds := []*cobra.Command{
		{
			Use:   "ping [message]",
			Short: "Checks that the server is reachable",
			Args:  cobra.MaximumNArgs(1),
			RunE: withClient(v, func(cmd *cobra.Command, c *client.Client, args []string) error {
				var msg []byte
				if len(args) == 1 {
					msg = []byte(args[0])
				}
				reply, err := c.Ping(msg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(reply))
				return nil
			}),
		},
		{
			Use:   "get [key]",
			Short: "Gets the value for a key",
			Args:  cobra.ExactArgs(1),
			RunE: withClient(v, func(cmd *cobra.Command, c *client.Client, args []string) error {
				value, ok, err := c.Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "(nil)")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(value))
				return nil
			}),
		},
		{
			Use:   "set [key] [value]",
			Short: "Sets the value for a key",
			Args:  cobra.ExactArgs(2),
			RunE: withClient(v, func(cmd *cobra.Command, c *client.Client, args []string) error {
				if err := c.Set(args[0], []byte(args[1])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			}),
		},
		{
			Use:   "put [bucket] [key] [version] [file]",
			Short: "Uploads a file as an object using a multipart upload. Use - to read stdin",
			Args:  cobra.ExactArgs(4),
			RunE: withClient(v, func(cmd *cobra.Command, c *client.Client, args []string) error {
				in := cmd.InOrStdin()
				if args[3] != "-" {
					f, err := os.Open(args[3])
					if err != nil {
						return err
					}
					defer f.Close()
					in = f
				}

				id, parts, err := upload(c, in, args[0], args[1], args[2], v.GetInt("part-size"))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d part(s), upload id %s\n", parts, id)
				return nil
			}),
		},
		{
			Use:   "cat [bucket] [key] [version]",
			Short: "Writes the data of an object to stdout",
			Args:  cobra.ExactArgs(3),
			RunE: withClient(v, func(cmd *cobra.Command, c *client.Client, args []string) error {
				data, ok, err := c.GetObject(args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("object %s/%s@%s not found", args[0], args[1], args[2])
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}),
		},
	}

	for _, cmd := range cmds {
		key := "addr"
		cmd.Flags().String(key, miniminio.DefaultAddr, wrapString("The address of the miniminio server"))

		key = "timeout"
		cmd.Flags().Int(key, 10, wrapString("The timeout in seconds for connecting to the server"))
	}
	cmds[3].Flags().Int("part-size", 5*1024*1024, wrapString("Size in bytes of each uploaded part"))

	return cmds
}

// withClient dials the configured server around fn
func withClient(v *viper.Viper, fn func(*cobra.Command, *client.Client, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		timeout := time.Duration(v.GetInt("timeout")) * time.Second
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		c, err := client.Dial(ctx, v.GetString("addr"))
		if err != nil {
			return err
		}
		defer c.Close()

		return fn(cmd, c, args)
	}
}

// upload sends r as consecutive parts of partSize bytes and completes the upload
func upload(c *client.Client, r io.Reader, bucket, key, version string, partSize int) (string, int, error) {
	if partSize <= 0 {
		return "", 0, fmt.Errorf("invalid part size %d", partSize)
	}

	id, err := c.CreateMultipartUpload(bucket, key, version)
	if err != nil {
		return "", 0, err
	}

	var parts []int
	buf := make([]byte, partSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 || len(parts) == 0 {
			part := len(parts) + 1
			if uerr := c.UploadPart(id, part, buf[:n]); uerr != nil {
				return "", 0, uerr
			}
			parts = append(parts, part)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return "", 0, err
		}
	}

	if err := c.CompleteMultipartUpload(id, parts...); err != nil {
		return "", 0, err
	}
	return id, len(parts), nil
}
