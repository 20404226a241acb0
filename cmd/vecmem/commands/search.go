package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecmem"
)

const defaultTopK = 5

type searchRequest struct {
	QueryEmbedding []float32 `json:"queryEmbedding"`
	TopK           *int      `json:"top_k"`
}

type searchResponse struct {
	IDs       []string         `json:"ids"`
	Distances []float32        `json:"distances"`
	Metadatas []map[string]any `json:"metadatas"`
}

func newSearchCmd(in io.Reader, out io.Writer, flags *rootFlags) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <collection>",
		Short: "Find the nearest records to a query embedding (JSON on stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := runSearch(cmd, args[0], in, flags, topK)
			return respond(out, resp, err)
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", defaultTopK, "number of results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, name string, in io.Reader, flags *rootFlags, topK int) (searchResponse, error) {
	var req searchRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return searchResponse{}, fmt.Errorf("%w: malformed search payload: %v", vecmem.ErrInvalidInput, err)
	}
	if len(req.QueryEmbedding) == 0 {
		return searchResponse{}, fmt.Errorf("%w: queryEmbedding is required", vecmem.ErrInvalidInput)
	}
	// A top_k in the payload wins over the flag.
	if req.TopK != nil {
		topK = *req.TopK
	}

	reg, _, logger, err := openRegistry(flags, true)
	if err != nil {
		return searchResponse{}, err
	}
	defer reg.Close()

	store, err := reg.GetOrCreate(cmd.Context(), name)
	if err != nil {
		return searchResponse{}, err
	}

	results, err := store.Search(req.QueryEmbedding, topK)
	logger.LogSearch(cmd.Context(), name, topK, len(results), err)
	if err != nil {
		return searchResponse{}, err
	}

	resp := searchResponse{
		IDs:       make([]string, 0, len(results)),
		Distances: make([]float32, 0, len(results)),
		Metadatas: make([]map[string]any, 0, len(results)),
	}
	for _, r := range results {
		resp.IDs = append(resp.IDs, r.ID)
		resp.Distances = append(resp.Distances, r.Distance)
		resp.Metadatas = append(resp.Metadatas, r.Metadata.ToAnyMap())
	}

	return resp, nil
}
