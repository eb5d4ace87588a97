package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/awilliams/curator/internal/api"
	"github.com/awilliams/curator/internal/queue"
	"github.com/awilliams/curator/internal/svcctx"
)

// QueueStatusEndpoint handles GET /api/queue/status. Reading status also
// performs the engine's stuck-state check.
type QueueStatusEndpoint struct{}

var _ api.Endpoint = (*QueueStatusEndpoint)(nil)

func (e *QueueStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/queue/status", e.handler
}

func (e *QueueStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}

	writeJSON(w, http.StatusOK, engine.GetStatus(r.Context()))
}

func (e *QueueStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var snap queue.Snapshot
			if err := client.Get(cmd.Context(), "/api/queue/status", &snap); err != nil {
				return err
			}

			fmt.Printf("Running: %v\n", snap.Running)
			fmt.Printf("Items: %d total (%d pending, %d processing, %d completed, %d failed)\n",
				snap.Counts.Total, snap.Counts.Pending, snap.Counts.Processing,
				snap.Counts.Completed, snap.Counts.Failed)

			if !verbose {
				return nil
			}
			for _, item := range snap.Items {
				fmt.Printf("  %s  %-10s  %s", item.ID, item.Status, item.Filename)
				if item.Gating != nil {
					fmt.Printf("  [%s/%s %.2f]", item.Gating.ModelTier, item.Gating.Reason, item.Gating.CompositeScore)
				}
				if item.Error != "" {
					fmt.Printf("  error: %s", item.Error)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-item details")
	return cmd
}
