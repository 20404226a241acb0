package commands

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecmem/snapshot"
)

type snapshotResponse struct {
	Status   string `json:"status"`
	Path     string `json:"path"`
	Count    int    `json:"count"`
	Uploaded bool   `json:"uploaded,omitempty"`
}

func newSnapshotCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	var (
		compression string
		upload      bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot <collection> <file>",
		Short: "Export a collection to a snapshot file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := runSnapshot(cmd, args[0], args[1], flags, compression, upload)
			return respond(out, resp, err)
		},
	}
	cmd.Flags().StringVar(&compression, "compression", "", "snapshot compression: none, zstd, lz4 (overrides config)")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the snapshot to the configured archive")

	return cmd
}

func runSnapshot(cmd *cobra.Command, name, path string, flags *rootFlags, compression string, upload bool) (snapshotResponse, error) {
	reg, cfg, logger, err := openRegistry(flags, true)
	if err != nil {
		return snapshotResponse{}, err
	}
	defer reg.Close()

	if compression == "" {
		compression = cfg.Snapshot.Compression
	}
	comp, err := snapshot.ParseCompression(compression)
	if err != nil {
		return snapshotResponse{}, err
	}

	store, err := reg.GetOrCreate(cmd.Context(), name)
	if err != nil {
		return snapshotResponse{}, err
	}

	err = store.Export(path, comp)
	logger.LogSnapshot(cmd.Context(), name, path, err)
	if err != nil {
		return snapshotResponse{}, err
	}

	resp := snapshotResponse{
		Status: "ok",
		Path:   path,
		Count:  store.Count(),
	}

	if upload {
		archive, err := snapshot.NewArchive(snapshot.ArchiveOptions{
			Endpoint:  cfg.Snapshot.Archive.Endpoint,
			AccessKey: cfg.Snapshot.Archive.AccessKey,
			SecretKey: cfg.Snapshot.Archive.SecretKey,
			UseSSL:    cfg.Snapshot.Archive.UseSSL,
			Bucket:    cfg.Snapshot.Archive.Bucket,
			Prefix:    cfg.Snapshot.Archive.Prefix,
		})
		if err != nil {
			return snapshotResponse{}, err
		}
		if err := archive.Upload(cmd.Context(), filepath.Base(path), path); err != nil {
			return snapshotResponse{}, err
		}
		resp.Uploaded = true
	}

	return resp, nil
}
