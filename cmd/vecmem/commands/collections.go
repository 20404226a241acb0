package commands

import (
	"io"

	"github.com/spf13/cobra"
)

type collectionsResponse struct {
	Collections []string `json:"collections"`
}

func newCollectionsCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List all collections under the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := runCollections(flags)
			return respond(out, resp, err)
		},
	}
}

func runCollections(flags *rootFlags) (collectionsResponse, error) {
	reg, _, _, err := openRegistry(flags, true)
	if err != nil {
		return collectionsResponse{}, err
	}
	defer reg.Close()

	names, err := reg.Collections()
	if err != nil {
		return collectionsResponse{}, err
	}
	if names == nil {
		names = []string{}
	}

	return collectionsResponse{Collections: names}, nil
}
