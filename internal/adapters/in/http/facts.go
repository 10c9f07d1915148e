package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cafe/internal/core/application/reconcile"

	"github.com/labstack/echo/v4"
)

// StreamFacts handles GET /api/v1/merchants/{merchantId}/facts as a
// server-sent event stream. A new client first receives the feed's current
// snapshot as new_order events, then every reconciled change. The stream
// ends when the client disconnects.
func (s *Server) StreamFacts(c echo.Context) error {
	merchantID, err := pathUUID(c, "merchantId")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()

	sub, err := s.deps.Facts.Observe(ctx, reconcile.MerchantFilter{MerchantID: merchantID})
	if err != nil {
		return writeError(c, err)
	}
	defer sub.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	log := s.logger.With("merchant_id", merchantID.String())
	log.DebugContext(ctx, "fact stream opened")
	defer log.DebugContext(ctx, "fact stream closed", "dropped", sub.Dropped())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case fact, ok := <-sub.Facts():
			if !ok {
				return nil
			}
			if err := writeFact(w, fact); err != nil {
				log.WarnContext(ctx, "fact stream write failed", "error", err)
				return nil
			}
			w.Flush()
		}
	}
}

func writeFact(w *echo.Response, fact reconcile.ChangeFact) error {
	data, err := json.Marshal(toFactResponse(fact))
	if err != nil {
		return err
	}
	key := fact.Key()
	_, err = fmt.Fprintf(w, "id: %s:%s:%d\nevent: %s\ndata: %s\n\n",
		key.OrderID, key.Status, key.At, fact.Kind, data)
	return err
}
