package server

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder wraps http.ResponseWriter to capture the response
// status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// LogRequest is middleware that logs incoming HTTP requests.
func LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := statusRecorder{ResponseWriter: w}
		next.ServeHTTP(&rec, r)

		attrs := slog.Group("request",
			"method", r.Method,
			"url", r.URL.String(),
			"duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond),
			"status_code", rec.status,
			"ip", r.RemoteAddr,
		)

		if rec.status >= 400 {
			slog.Error("Request", attrs)
		} else {
			slog.Info("Request", attrs)
		}
	})
}

// Handler returns the gateway's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Upload negotiation
	mux.HandleFunc("POST /storage/upload/sharding", s.handleSharding)
	mux.HandleFunc("POST /storage/upload/init", s.handleInit)
	mux.HandleFunc("POST /storage/upload/complete/{fileKey}", s.handleComplete)
	mux.HandleFunc("PUT /storage/upload/image/{fileKey}", s.handleUploadImage)

	// Read side
	mux.HandleFunc("GET /storage/download/{fileKey}", s.handleDownload)
	mux.HandleFunc("GET /storage/image/{fileKey}", s.handleImage)
	mux.HandleFunc("GET /storage/preview/{fileKey}", s.handlePreview)
	mux.HandleFunc("GET /storage/failure", s.handleFailure)

	mux.HandleFunc("DELETE /storage/{fileKey}", s.handleRemove)

	return LogRequest(mux)
}
