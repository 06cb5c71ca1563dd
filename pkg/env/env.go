package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable read by the estore binaries.
const Prefix = "ESTORE_"

// Get returns ESTORE_<key>, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	return fallback
}
