package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/1broseidon/dtop/internal/requestlog"
)

const maxLoggedBody = 1 << 20

// requestLogMiddleware records every request with its raw body and final
// status. Logging failures are reported but never affect the response.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload string
		if r.Body != nil {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
			if err == nil {
				r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(body))
				if len(body) > maxLoggedBody {
					body = body[:maxLoggedBody]
				}
				payload = strings.ToValidUTF8(string(body), "�")
			}
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := requestlog.Entry{
			Endpoint: r.URL.Path,
			Method:   r.Method,
			Status:   status,
			Payload:  &payload,
		}
		if err := s.opts.Requests.Record(entry); err != nil {
			s.logger.Warn("failed to record request", "path", r.URL.Path, "error", err)
		}
		if err := s.opts.Requests.Access(r.Method, r.URL.Path); err != nil {
			s.logger.Warn("failed to write access log", "path", r.URL.Path, "error", err)
		}
	})
}
