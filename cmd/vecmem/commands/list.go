package commands

import (
	"io"

	"github.com/spf13/cobra"
)

type listResponse struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas"`
}

func newListCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "List every record in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := runList(cmd, args[0], flags)
			return respond(out, resp, err)
		},
	}
}

func runList(cmd *cobra.Command, name string, flags *rootFlags) (listResponse, error) {
	reg, _, _, err := openRegistry(flags, true)
	if err != nil {
		return listResponse{}, err
	}
	defer reg.Close()

	store, err := reg.GetOrCreate(cmd.Context(), name)
	if err != nil {
		return listResponse{}, err
	}

	records, err := store.List()
	if err != nil {
		return listResponse{}, err
	}

	resp := listResponse{
		IDs:        make([]string, 0, len(records)),
		Embeddings: make([][]float32, 0, len(records)),
		Metadatas:  make([]map[string]any, 0, len(records)),
	}
	for _, rec := range records {
		resp.IDs = append(resp.IDs, rec.ID)
		resp.Embeddings = append(resp.Embeddings, rec.Embedding)
		resp.Metadatas = append(resp.Metadatas, rec.Metadata.ToAnyMap())
	}

	return resp, nil
}
