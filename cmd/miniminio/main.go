// Command miniminio runs a miniminio server or talks to one.
package main

import "github.com/miniminio/miniminio/internal/cli"

func main() {
	cli.Execute()
}
