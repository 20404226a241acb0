package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecmem"
	"github.com/hupe1980/vecmem/metadata"
	"github.com/hupe1980/vecmem/model"
)

type addRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas"`
}

func newAddCmd(in io.Reader, out io.Writer, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection>",
		Short: "Add or replace records in a collection (JSON on stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return respond(out, statusOK, runAdd(cmd, args[0], in, flags))
		},
	}
}

func runAdd(cmd *cobra.Command, name string, in io.Reader, flags *rootFlags) error {
	var req addRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("%w: malformed add payload: %v", vecmem.ErrInvalidInput, err)
	}
	if len(req.IDs) != len(req.Embeddings) {
		return fmt.Errorf("%w: ids and embeddings must have equal length, got %d and %d",
			vecmem.ErrInvalidInput, len(req.IDs), len(req.Embeddings))
	}
	if req.Metadatas != nil && len(req.Metadatas) != len(req.IDs) {
		return fmt.Errorf("%w: metadatas must match ids in length, got %d and %d",
			vecmem.ErrInvalidInput, len(req.Metadatas), len(req.IDs))
	}

	records := make([]model.Record, len(req.IDs))
	for i := range req.IDs {
		var doc metadata.Document
		if req.Metadatas != nil {
			d, err := metadata.FromAnyMap(req.Metadatas[i])
			if err != nil {
				return fmt.Errorf("%w: metadata for %q: %v", vecmem.ErrInvalidInput, req.IDs[i], err)
			}
			doc = d
		}
		records[i] = model.Record{
			ID:        req.IDs[i],
			Embedding: req.Embeddings[i],
			Metadata:  doc,
		}
	}

	reg, _, logger, err := openRegistry(flags, false)
	if err != nil {
		return err
	}
	defer reg.Close()

	store, err := reg.GetOrCreate(cmd.Context(), name)
	if err != nil {
		return err
	}

	err = store.Add(records)
	logger.LogAdd(cmd.Context(), name, len(records), err)
	return err
}
