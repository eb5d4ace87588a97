package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/awilliams/curator/internal/api"
	"github.com/awilliams/curator/internal/extract"
	"github.com/awilliams/curator/internal/svcctx"
)

// UploadResponse is the response for document uploads.
type UploadResponse struct {
	Items   []UploadedItem `json:"items"`
	Started bool           `json:"started,omitempty"`
}

// UploadedItem describes one accepted document.
type UploadedItem struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Chars    int    `json:"chars"`
}

// UploadEndpoint handles POST /api/documents/upload with multipart file
// upload. Accepted files are text-extracted and enqueued; an optional
// auto_start field kicks off a run.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/upload", e.handler
}

func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 64 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	// Validate every file before enqueuing any, so a bad file rejects the
	// whole request instead of leaving a partial batch.
	for _, fh := range files {
		if !extract.Supported(fh.Filename) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", fh.Filename))
			return
		}
		if fh.Size > extract.MaxUploadBytes {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file too large: %s", fh.Filename))
			return
		}
	}

	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}
	logger := svcctx.LoggerFrom(r.Context())

	resp := UploadResponse{}
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open uploaded file: %v", err))
			return
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read uploaded file: %v", err))
			return
		}

		text, err := extract.Text(content, fh.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
			return
		}

		item := engine.Enqueue(fh.Filename, text)
		resp.Items = append(resp.Items, UploadedItem{
			ID:       item.ID,
			Filename: item.Filename,
			Chars:    len(text),
		})
	}

	if r.FormValue("auto_start") == "true" {
		err := engine.StartRun(r.Context())
		resp.Started = err == nil
		if err != nil && logger != nil {
			logger.Info("auto-start skipped", "error", err)
		}
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var autoStart bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents for conversion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			fields := map[string]string{}
			if autoStart {
				fields["auto_start"] = "true"
			}

			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				var resp UploadResponse
				if err := client.Upload(cmd.Context(), "/api/documents/upload", path, content, fields, &resp); err != nil {
					return err
				}
				for _, item := range resp.Items {
					fmt.Printf("Enqueued %s (%s, %d chars)\n", item.Filename, item.ID, item.Chars)
				}
				if resp.Started {
					fmt.Println("Run started")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoStart, "start", false, "Start a processing run after upload")
	return cmd
}
