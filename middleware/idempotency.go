package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Dosada05/matchday/idempotency"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

// IdempotencyGate replays the stored response for a repeated Idempotency-Key
// instead of running the handler again. Requests without the header pass through.
type IdempotencyGate struct {
	store  idempotency.Store
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done chan struct{}
	rec  *idempotency.Record
}

func NewIdempotencyGate(store idempotency.Store, logger *slog.Logger) *IdempotencyGate {
	return &IdempotencyGate{
		store:    store,
		logger:   logger,
		inflight: make(map[string]*inflightCall),
	}
}

func (g *IdempotencyGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		// Ленивая очистка: просроченные записи удаляются при каждом вызове.
		if _, err := g.store.Sweep(ctx); err != nil {
			g.logger.WarnContext(ctx, "idempotency sweep failed", slog.Any("error", err))
		}

		for {
			rec, ok, err := g.store.Get(ctx, token)
			if err != nil {
				g.logger.ErrorContext(ctx, "idempotency lookup failed", slog.String("token", token), slog.Any("error", err))
				writeGateError(w)
				return
			}
			if ok {
				replay(w, rec)
				return
			}

			g.mu.Lock()
			call, running := g.inflight[token]
			if !running {
				call = &inflightCall{done: make(chan struct{})}
				g.inflight[token] = call
				g.mu.Unlock()

				// Предыдущий владелец токена мог сохранить запись и уйти из inflight
				// между нашим Get и регистрацией: проверяем хранилище ещё раз.
				rec, ok, err := g.store.Get(ctx, token)
				if err != nil || ok {
					g.release(token, call, rec)
					if err != nil {
						g.logger.ErrorContext(ctx, "idempotency lookup failed", slog.String("token", token), slog.Any("error", err))
						writeGateError(w)
						return
					}
					replay(w, rec)
					return
				}
				g.execute(w, r, token, call, next)
				return
			}
			g.mu.Unlock()

			select {
			case <-call.done:
			case <-ctx.Done():
				return
			}
			if call.rec != nil {
				replay(w, call.rec)
				return
			}
			// The first request did not produce a record (e.g. it panicked): try again.
		}
	})
}

func (g *IdempotencyGate) execute(w http.ResponseWriter, r *http.Request, token string, call *inflightCall, next http.Handler) {
	var rec *idempotency.Record
	defer func() { g.release(token, call, rec) }()

	var body bytes.Buffer
	ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Tee(&body)

	next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	// Запись сохраняется даже если клиент уже отключился.
	ctx := context.WithoutCancel(r.Context())
	stored, _, err := g.store.PutIfAbsent(ctx, idempotency.Record{
		Token:       token,
		StatusCode:  status,
		ContentType: ww.Header().Get("Content-Type"),
		Body:        body.Bytes(),
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to store idempotency record", slog.String("token", token), slog.Any("error", err))
		return
	}
	rec = stored
}

// release hands rec to waiters and frees the token. rec may be nil.
func (g *IdempotencyGate) release(token string, call *inflightCall, rec *idempotency.Record) {
	call.rec = rec
	g.mu.Lock()
	delete(g.inflight, token)
	g.mu.Unlock()
	close(call.done)
}

func replay(w http.ResponseWriter, rec *idempotency.Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
}

func writeGateError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"message": "the server encountered a problem and could not process your request"},
	})
}
