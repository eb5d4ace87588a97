package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/awilliams/curator/internal/api"
	"github.com/awilliams/curator/internal/queue"
	"github.com/awilliams/curator/internal/svcctx"
)

// StartRunResponse is the response for starting a run.
type StartRunResponse struct {
	Started bool `json:"started"`
}

// StartRunEndpoint handles POST /api/queue/start.
type StartRunEndpoint struct{}

var _ api.Endpoint = (*StartRunEndpoint)(nil)

func (e *StartRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/queue/start", e.handler
}

func (e *StartRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}

	err := engine.StartRun(r.Context())
	if err != nil && !errors.Is(err, queue.ErrAlreadyRunning) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StartRunResponse{Started: err == nil})
}

func (e *StartRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a processing run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StartRunResponse
			if err := client.Post(cmd.Context(), "/api/queue/start", nil, &resp); err != nil {
				return err
			}
			if resp.Started {
				fmt.Println("Run started")
			} else {
				fmt.Println("A run is already in progress")
			}
			return nil
		},
	}
}

// CancelRunEndpoint handles POST /api/queue/cancel. Cancellation is
// cooperative: the in-flight batch finishes, no further batch starts.
type CancelRunEndpoint struct{}

var _ api.Endpoint = (*CancelRunEndpoint)(nil)

func (e *CancelRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/queue/cancel", e.handler
}

func (e *CancelRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}

	engine.CancelRun()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

func (e *CancelRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active run (current batch finishes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/api/queue/cancel", nil, nil); err != nil {
				return err
			}
			fmt.Println("Cancellation requested")
			return nil
		},
	}
}

// ForceUnlockEndpoint handles POST /api/queue/unlock. Operator escape
// hatch: unconditionally clears the run lock.
type ForceUnlockEndpoint struct{}

var _ api.Endpoint = (*ForceUnlockEndpoint)(nil)

func (e *ForceUnlockEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/queue/unlock", e.handler
}

func (e *ForceUnlockEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}

	engine.ForceUnlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

func (e *ForceUnlockEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Force-clear the run lock",
		Long: `Unconditionally clears the queue's run lock.

Use this only when the queue reports a run in progress but nothing is
actually processing and automatic recovery has not fired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/api/queue/unlock", nil, nil); err != nil {
				return err
			}
			fmt.Println("Run lock cleared")
			return nil
		},
	}
}
