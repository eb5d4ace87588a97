package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/awilliams/curator/internal/api"
	"github.com/awilliams/curator/internal/convert"
	"github.com/awilliams/curator/internal/queue"
	"github.com/awilliams/curator/internal/svcctx"
)

// DownloadEndpoint handles GET /api/documents/{id}/download. Returns the
// stored structured result; 409 unless the item is completed.
type DownloadEndpoint struct{}

var _ api.Endpoint = (*DownloadEndpoint)(nil)

func (e *DownloadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/download", e.handler
}

func (e *DownloadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}

	id := r.PathValue("id")
	result, err := engine.Download(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, queue.ErrNotCompleted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (e *DownloadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a converted document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var result convert.Result
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0]+"/download", &result); err != nil {
				return err
			}

			if output == "" {
				return api.Output(result)
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write result to file instead of stdout")
	return cmd
}
