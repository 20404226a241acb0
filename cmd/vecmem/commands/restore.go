package commands

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecmem/snapshot"
)

type restoreResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func newRestoreCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	var download bool

	cmd := &cobra.Command{
		Use:   "restore <collection> <file>",
		Short: "Replace a collection's contents from a snapshot file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := runRestore(cmd, args[0], args[1], flags, download)
			return respond(out, resp, err)
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "fetch the snapshot from the configured archive first")

	return cmd
}

func runRestore(cmd *cobra.Command, name, path string, flags *rootFlags, download bool) (restoreResponse, error) {
	reg, cfg, _, err := openRegistry(flags, false)
	if err != nil {
		return restoreResponse{}, err
	}
	defer reg.Close()

	if download {
		archive, err := snapshot.NewArchive(snapshot.ArchiveOptions{
			Endpoint:  cfg.Snapshot.Archive.Endpoint,
			AccessKey: cfg.Snapshot.Archive.AccessKey,
			SecretKey: cfg.Snapshot.Archive.SecretKey,
			UseSSL:    cfg.Snapshot.Archive.UseSSL,
			Bucket:    cfg.Snapshot.Archive.Bucket,
			Prefix:    cfg.Snapshot.Archive.Prefix,
		})
		if err != nil {
			return restoreResponse{}, err
		}
		if err := archive.Download(cmd.Context(), filepath.Base(path), path); err != nil {
			return restoreResponse{}, err
		}
	}

	store, err := reg.GetOrCreate(cmd.Context(), name)
	if err != nil {
		return restoreResponse{}, err
	}

	if err := store.Restore(path); err != nil {
		return restoreResponse{}, err
	}

	return restoreResponse{Status: "ok", Count: store.Count()}, nil
}
