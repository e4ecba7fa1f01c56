package httpapi

import (
	"net/http"
	"time"

	"habitat-monitor/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestID(cors(cfg.CORSOrigin, requestLogger(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
