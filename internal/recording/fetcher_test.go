package recording

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFilenameSanitization(t *testing.T) {
	tests := []struct {
		name     string
		practice string
		callID   string
		want     string
	}{
		{"Clean", "Sunrise Clinic", "abcdef1234", "Sunrise Clinic_abcdef12.mp3"},
		{"Unsafe", "Dr. Köhler & Co / Clinic", "id12345678", "Dr_ K_hler _ Co _ Clinic_id123456.mp3"},
		{"ShortID", "A", "x1", "A_x1.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.practice, tt.callID); got != tt.want {
				t.Errorf("Filename = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilenameLengthBound(t *testing.T) {
	long := strings.Repeat("A", 200)
	got := Filename(long, "call1234")
	if len(got) > maxNameLen+len("_call1234.mp3")+1 {
		t.Errorf("filename too long: %d chars", len(got))
	}
	if !strings.HasSuffix(got, "_call1234.mp3") {
		t.Errorf("unexpected suffix: %s", got)
	}
}

func TestFetchSuccess(t *testing.T) {
	audio := []byte("not-really-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(audio)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(dir, 5*time.Second)

	path := f.Fetch(srv.URL, "Test Practice", "call-abc-123")
	if path == "" {
		t.Fatal("expected a local path")
	}
	if filepath.Dir(path) != dir {
		t.Errorf("recording outside target dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("saved file unreadable: %v", err)
	}
	if string(data) != string(audio) {
		t.Error("saved bytes differ from served bytes")
	}
}

func TestFetchFailuresYieldEmptyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 5*time.Second)

	if got := f.Fetch(srv.URL, "P", "c1"); got != "" {
		t.Errorf("non-200 should yield empty path, got %q", got)
	}
	if got := f.Fetch("", "P", "c1"); got != "" {
		t.Errorf("empty url should yield empty path, got %q", got)
	}
	if got := f.Fetch("http://127.0.0.1:1/none", "P", "c1"); got != "" {
		t.Errorf("connection error should yield empty path, got %q", got)
	}
}
