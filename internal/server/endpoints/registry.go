package endpoints

import (
	"github.com/awilliams/curator/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Document endpoints
		&UploadEndpoint{},
		&DownloadEndpoint{},

		// Queue endpoints
		&StartRunEndpoint{},
		&QueueStatusEndpoint{},
		&CancelRunEndpoint{},
		&ClearQueueEndpoint{},
		&RemoveItemEndpoint{},
		&ForceUnlockEndpoint{},

		// Observability
		&ListLLMCallsEndpoint{},
	}
}

// QueueCommands returns the endpoints grouped under "queue" in the CLI.
func QueueCommands() []api.Endpoint {
	return []api.Endpoint{
		&StartRunEndpoint{},
		&QueueStatusEndpoint{},
		&CancelRunEndpoint{},
		&ClearQueueEndpoint{},
		&RemoveItemEndpoint{},
		&ForceUnlockEndpoint{},
	}
}

// DocumentCommands returns the endpoints grouped under "documents" in the CLI.
func DocumentCommands() []api.Endpoint {
	return []api.Endpoint{
		&UploadEndpoint{},
		&DownloadEndpoint{},
	}
}
