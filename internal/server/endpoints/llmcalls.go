package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/awilliams/curator/internal/api"
	"github.com/awilliams/curator/internal/llmcall"
	"github.com/awilliams/curator/internal/svcctx"
)

// LLMCallsResponse is the response for LLM call listings.
type LLMCallsResponse struct {
	Calls  []llmcall.Call `json:"calls"`
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts_by_model"`
}

// ListLLMCallsEndpoint handles GET /api/llmcalls.
type ListLLMCallsEndpoint struct{}

var _ api.Endpoint = (*ListLLMCallsEndpoint)(nil)

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls", e.handler
}

func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	recorder := svcctx.RecorderFrom(r.Context())
	if recorder == nil {
		writeError(w, http.StatusServiceUnavailable, "call recorder not initialized")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q must be a positive integer", v))
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, LLMCallsResponse{
		Calls:  recorder.Recent(limit),
		Total:  recorder.TotalCalls(),
		Counts: recorder.CountByModel(),
	})
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "llmcalls",
		Short: "List recent LLM calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LLMCallsResponse
			path := fmt.Sprintf("/api/llmcalls?limit=%d", limit)
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}

			fmt.Printf("Total calls: %d\n", resp.Total)
			for model, n := range resp.Counts {
				fmt.Printf("  %s: %d\n", model, n)
			}
			for _, call := range resp.Calls {
				status := "ok"
				if !call.Success {
					status = "failed"
				}
				fmt.Printf("%s  %-28s  %-24s  %5dms  %s\n",
					call.Timestamp.Format("15:04:05"), call.Model, call.PromptKey,
					call.LatencyMs, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum calls to list")
	return cmd
}
