package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand to root and wires the
// --version flag. hysteria is the server release provisioned by default.
func AttachCobraVersionCommand(root *cobra.Command, hysteria string) {
	info := Current(hysteria)

	root.Version = info.Version
	root.SetVersionTemplate(info.String() + "\n")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build and default Hysteria release information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), info)
		},
	})
}
