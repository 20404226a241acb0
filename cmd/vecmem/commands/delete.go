package commands

import (
	"io"

	"github.com/spf13/cobra"
)

func newDeleteCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete one record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return respond(out, statusOK, runDelete(cmd, args[0], args[1], flags))
		},
	}
}

func runDelete(cmd *cobra.Command, name, id string, flags *rootFlags) error {
	reg, _, logger, err := openRegistry(flags, false)
	if err != nil {
		return err
	}
	defer reg.Close()

	store, err := reg.GetOrCreate(cmd.Context(), name)
	if err != nil {
		return err
	}

	err = store.Delete(id)
	logger.LogDelete(cmd.Context(), name, id, err)
	return err
}
