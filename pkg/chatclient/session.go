package chatclient

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionFileName = "session-id"

// GetOrCreateSessionID returns the durable per-installation session token,
// minting and persisting it on first use. The token is only a rate-limit
// partition key, never a credential. It never fails: if persistence is not
// possible the fresh token is still returned, it just won't survive the
// process.
func GetOrCreateSessionID() string {
	return sessionIDFromDir(sessionDir())
}

func sessionIDFromDir(dir string) string {
	path := filepath.Join(dir, sessionFileName)

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := newSessionID()
	if err := os.MkdirAll(dir, 0o755); err == nil {
		_ = os.WriteFile(path, []byte(id+"\n"), 0o600)
	}
	return id
}

func sessionDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "habib-portfolio")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".habib-portfolio")
}

func newSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	// Weak fallback for when the system randomness source is unavailable.
	return fmt.Sprintf("session-%s-%d", strconv.FormatInt(rand.Int63(), 36), time.Now().UnixMilli())
}
