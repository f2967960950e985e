// Package recording downloads call audio artifacts. Retrieval is best
// effort: any failure is logged and reported as an empty path, never as
// an error that could abort persisting the attempt.
package recording

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dialscout/internal/logging"
)

// maxNameLen bounds the sanitized practice-name portion of a filename.
const maxNameLen = 50

// Fetcher downloads recordings into a local directory.
type Fetcher struct {
	dir        string
	httpClient *http.Client
}

// NewFetcher creates a fetcher writing into dir.
func NewFetcher(dir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{
		dir:        dir,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the recording at url and returns the local path, or ""
// on any failure. An empty url yields "" immediately.
func (f *Fetcher) Fetch(url, practiceName, callID string) string {
	if url == "" {
		return ""
	}
	log := logging.Get(logging.CategoryRecording)

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		log.Warn("cannot create recordings dir %s: %v", f.dir, err)
		return ""
	}

	path := filepath.Join(f.dir, Filename(practiceName, callID))

	resp, err := f.httpClient.Get(url)
	if err != nil {
		log.Warn("recording download failed for %s: %v", callID, err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn("recording download for %s returned %d", callID, resp.StatusCode)
		return ""
	}

	out, err := os.Create(path)
	if err != nil {
		log.Warn("cannot create recording file %s: %v", path, err)
		return ""
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		log.Warn("recording write failed for %s: %v", callID, err)
		os.Remove(path)
		return ""
	}

	logging.Recording("saved %s", path)
	return path
}

// Filename builds a safe, length-bounded storage key from a practice
// name and call ID.
func Filename(practiceName, callID string) string {
	safe := sanitize(practiceName)
	if len(safe) > maxNameLen {
		safe = safe[:maxNameLen]
	}
	id := callID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s.mp3", safe, id)
}

// sanitize replaces everything outside a printable safe subset with
// underscores.
func sanitize(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
