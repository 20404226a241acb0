package commands

import (
	"io"

	"github.com/spf13/cobra"
)

func newCompactCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <collection>",
		Short: "Rewrite a collection's log to its live records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return respond(out, statusOK, runCompact(cmd, args[0], flags))
		},
	}
}

func runCompact(cmd *cobra.Command, name string, flags *rootFlags) error {
	reg, _, _, err := openRegistry(flags, false)
	if err != nil {
		return err
	}
	defer reg.Close()

	store, err := reg.GetOrCreate(cmd.Context(), name)
	if err != nil {
		return err
	}

	return store.Compact()
}
