package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ballotbox/internal/platform/artifacts"
)

// pagesHandler serves the voting front end from StaticDir. With no directory
// configured every path is a 404.
func (s *Server) pagesHandler() http.Handler {
	dir := strings.TrimSpace(s.options.StaticDir)
	if dir == "" {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.Dir(dir))
}

// artifactsHandler serves compiled artifacts from ArtifactsDir and falls back
// to the built-in ballot artifact for /artifacts/Ballot.json.
func (s *Server) artifactsHandler() http.Handler {
	var files http.Handler = http.NotFoundHandler()
	dir := strings.TrimSpace(s.options.ArtifactsDir)
	if dir != "" {
		files = http.FileServer(http.Dir(dir))
	}
	files = http.StripPrefix("/artifacts", files)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/artifacts/")
		if name == artifacts.FileName && !s.artifactOnDisk(name) {
			raw := s.artifact.Raw()
			if len(raw) == 0 {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if r.Method != http.MethodHead {
				_, _ = w.Write(raw)
			}
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) artifactOnDisk(name string) bool {
	dir := strings.TrimSpace(s.options.ArtifactsDir)
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
	return err == nil && !info.IsDir()
}
