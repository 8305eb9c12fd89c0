package api

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"shopmap/internal/apperr"
	"shopmap/internal/live"
	"shopmap/internal/middleware"
	"shopmap/internal/models"
)

const defaultKeepalive = 25 * time.Second

// StreamHandler serves live location snapshots as server-sent events.
type StreamHandler struct {
	hub       *live.Hub
	done      <-chan struct{}
	keepalive time.Duration
}

// NewStreamHandler creates a stream handler. Open streams end when done is
// closed.
func NewStreamHandler(hub *live.Hub, done <-chan struct{}) *StreamHandler {
	return &StreamHandler{hub: hub, done: done, keepalive: defaultKeepalive}
}

// queryFor checks that actor may watch scope.
func queryFor(actor models.Actor, scope live.Scope) (live.Query, error) {
	switch scope {
	case live.ScopeMine:
		if actor.IsAnonymous() {
			return live.Query{}, apperr.New(apperr.CodeUnauthorized, "sign in to watch your locations")
		}
		return live.Query{Scope: scope, OwnerID: actor.ID}, nil
	case live.ScopeAll:
		if actor.IsAnonymous() {
			return live.Query{}, apperr.New(apperr.CodeUnauthorized, "sign in to continue")
		}
		if !actor.IsAdmin() {
			return live.Query{}, apperr.New(apperr.CodeForbidden, "admin access required")
		}
		return live.Query{Scope: scope}, nil
	default:
		return live.Query{Scope: live.ScopePublic}, nil
	}
}

// writeEvent writes one SSE frame and flushes it.
func writeEvent(w *bufio.Writer, event string, id uint64, data []byte) error {
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data); err != nil {
		return err
	}
	return w.Flush()
}

// Stream sends the current snapshot for ?scope=public|mine|all and a new one
// after every change. Each event carries the complete record set.
func (h *StreamHandler) Stream(c fiber.Ctx) error {
	scope, err := live.ParseScope(c.Query("scope"))
	if err != nil {
		return Error(c, apperr.Wrap(apperr.CodeValidation, err, err.Error()))
	}

	q, err := queryFor(middleware.GetActor(c), scope)
	if err != nil {
		return Error(c, err)
	}

	// The writer outlives the handler, so the subscription gets its own context.
	ctx, cancel := context.WithCancel(context.Background())
	snapshots, err := h.hub.Subscribe(ctx, q)
	if err != nil {
		cancel()
		return Error(c, apperr.Wrap(apperr.CodePersistence, err, "failed to load locations"))
	}

	encode := c.App().Config().JSONEncoder
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(h.keepalive)
		defer ticker.Stop()

		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				data, err := encode(snap)
				if err != nil {
					log.Error().Err(err).Msg("failed to encode snapshot")
					return
				}
				if err := writeEvent(w, "snapshot", snap.Seq, data); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-h.done:
				return
			}
		}
	})
}
