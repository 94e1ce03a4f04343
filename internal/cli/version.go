package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the embedsql release.
const Version = "0.1.0"

// Revision is the source revision the binary was built from, when known.
var Revision string

const modulePath = "github.com/mesh-intelligence/embedsql"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the embedsql version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "embedsql v%s\nmodule: %s\n", Version, modulePath)
			if Revision != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "revision: %s\n", Revision)
			}
			return nil
		},
	}
}
