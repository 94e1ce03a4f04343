// Command embedsql queries and maintains embedded SQL databases.
package main

import "github.com/mesh-intelligence/embedsql/internal/cli"

// revision is set at build time with -ldflags "-X main.revision=...".
var revision string

func main() {
	cli.Revision = revision
	cli.Execute()
}
