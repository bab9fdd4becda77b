package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const serverIDPrefix = "aztyping-"

// GetPersistentServerID returns a stable ID for this server, used to tell
// its own relayed broadcasts apart from other instances'.
// Order: override, <storagePath>/.server_id, hostname, then a generated id
// that is saved for the next start.
func GetPersistentServerID(override, storagePath string) string {
	if override != "" {
		return override
	}

	idFile := filepath.Join(storagePath, ".server_id")
	if data, err := os.ReadFile(idFile); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" && hostname != "localhost" {
		cleanHost := strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
				return r
			}
			return -1
		}, hostname)
		if cleanHost != "" {
			return serverIDPrefix + cleanHost
		}
	}

	newID := serverIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	_ = os.MkdirAll(storagePath, 0755)
	_ = os.WriteFile(idFile, []byte(newID), 0644)
	return newID
}
