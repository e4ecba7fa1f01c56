package httpapi

import (
	"log/slog"
	"net/http"
	"os"
)

// NewMux returns a mux with the health check and, when staticDir exists, the
// static file server mounted at /static/.
func NewMux(store Pinger, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store)
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		} else {
			slog.Debug("static dir not mounted", "dir", staticDir)
		}
	}
	return mux
}
