package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecmem/transcript"
)

type transcriptResponse struct {
	Transcript string `json:"transcript"`
}

func newTranscriptCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <video-id>",
		Short: "Fetch a video transcript from the companion service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := runTranscript(cmd, args[0], flags)
			return respond(out, resp, err)
		},
	}
}

func runTranscript(cmd *cobra.Command, videoID string, flags *rootFlags) (transcriptResponse, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return transcriptResponse{}, err
	}

	client := transcript.New(cfg.Transcript.BaseURL)
	text, err := client.Get(cmd.Context(), videoID)
	if err != nil {
		return transcriptResponse{}, err
	}

	return transcriptResponse{Transcript: text}, nil
}
