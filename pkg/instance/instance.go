package instance

import (
	"os"

	"github.com/angelmondragon/estore-backend/pkg/env"
)

// GetID identifies this process in logs: ESTORE_WORKER_ID when set, else the
// host name, else "worker-0".
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
