// Package idempotency replays the response of a request repeated with the
// same Idempotency-Key header.
package idempotency

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/httpx"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/identity"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

var ErrInFlight = apperr.Conflict("request_in_progress", "a request with this idempotency key is still being processed")

type Backend interface {
	Begin(ctx context.Context, key string) (bool, error)
	Load(ctx context.Context, key string) (Record, bool, error)
	Complete(ctx context.Context, key string, rec Record) error
	Abandon(ctx context.Context, key string) error
}

// Middleware stores the first response for each (caller, route, key) and
// replays it for repeats. Requests without the header pass through. A 5xx
// response is not stored so the client may retry, and neither is a request
// whose handler panicked.
func Middleware(log *slog.Logger, backend Backend) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(HeaderKey)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := "idem:" + identity.UserID(ctx) + ":" + r.Method + ":" + r.URL.Path + ":" + header

			claimed, err := backend.Begin(ctx, key)
			if err != nil {
				httpx.WriteError(w, log, r, err)
				return
			}
			if !claimed {
				replay(w, r, log, backend, key)
				return
			}

			bg := context.WithoutCancel(ctx)
			defer func() {
				if v := recover(); v != nil {
					if err := backend.Abandon(bg, key); err != nil {
						log.Error("idempotency abandon failed", "key", header, "err", err)
					}
					panic(v)
				}
			}()

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				if err := backend.Abandon(bg, key); err != nil {
					log.Error("idempotency abandon failed", "key", header, "err", err)
				}
				return
			}
			err = backend.Complete(bg, key, Record{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				log.Error("idempotency store failed", "key", header, "err", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, log *slog.Logger, backend Backend, key string) {
	rec, done, err := backend.Load(r.Context(), key)
	if err != nil {
		httpx.WriteError(w, log, r, err)
		return
	}
	if !done {
		httpx.WriteError(w, log, r, ErrInFlight)
		return
	}
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
