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

// ClearQueueEndpoint handles DELETE /api/queue/items. Rejected while a run
// is in flight.
type ClearQueueEndpoint struct{}

var _ api.Endpoint = (*ClearQueueEndpoint)(nil)

func (e *ClearQueueEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/queue/items", e.handler
}

func (e *ClearQueueEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}

	if err := engine.ClearAll(); err != nil {
		if errors.Is(err, queue.ErrRunInFlight) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (e *ClearQueueEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/queue/items"); err != nil {
				return err
			}
			fmt.Println("Queue cleared")
			return nil
		},
	}
}

// RemoveItemEndpoint handles DELETE /api/queue/items/{id}. Processing items
// cannot be removed.
type RemoveItemEndpoint struct{}

var _ api.Endpoint = (*RemoveItemEndpoint)(nil)

func (e *RemoveItemEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/queue/items/{id}", e.handler
}

func (e *RemoveItemEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	engine := svcctx.EngineFrom(r.Context())
	if engine == nil {
		writeError(w, http.StatusServiceUnavailable, "queue engine not initialized")
		return
	}

	id := r.PathValue("id")
	switch err := engine.Remove(id); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "id": id})
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, queue.ErrItemProcessing):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (e *RemoveItemEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/queue/items/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		},
	}
}
