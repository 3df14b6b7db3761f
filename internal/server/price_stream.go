package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/agrisage/agrisage/internal/modules/market"
)

const (
	// WebSocket write and keepalive constants
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second

	// Per-subscriber send buffer; a subscriber that falls this far behind
	// starts losing updates instead of stalling the recording path
	streamSendBuffer = 16
)

// PriceStream broadcasts freshly recorded mandi prices to WebSocket
// subscribers on /api/prices/stream. It implements the market handlers'
// PriceBroadcaster interface.
type PriceStream struct {
	log  zerolog.Logger
	mu   sync.RWMutex
	subs map[*streamSubscriber]struct{}
}

type streamSubscriber struct {
	send chan market.MandiPrice
}

// NewPriceStream creates a new price stream hub
func NewPriceStream(log zerolog.Logger) *PriceStream {
	return &PriceStream{
		log:  log.With().Str("component", "price_stream").Logger(),
		subs: make(map[*streamSubscriber]struct{}),
	}
}

// Broadcast queues a recorded price for every connected subscriber.
// Slow subscribers are skipped, never waited on.
func (ps *PriceStream) Broadcast(p market.MandiPrice) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for sub := range ps.subs {
		select {
		case sub.send <- p:
		default:
			ps.log.Warn().
				Str("crop", p.Crop).
				Str("market", p.Market).
				Msg("Subscriber buffer full, dropping price update")
		}
	}
}

// SubscriberCount returns the number of connected subscribers
func (ps *PriceStream) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}

func (ps *PriceStream) subscribe() *streamSubscriber {
	sub := &streamSubscriber{
		send: make(chan market.MandiPrice, streamSendBuffer),
	}

	ps.mu.Lock()
	ps.subs[sub] = struct{}{}
	ps.mu.Unlock()

	return sub
}

func (ps *PriceStream) unsubscribe(sub *streamSubscriber) {
	ps.mu.Lock()
	delete(ps.subs, sub)
	ps.mu.Unlock()
}

// ServeHTTP handles GET /api/prices/stream requests (WebSocket).
func (ps *PriceStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		ps.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	sub := ps.subscribe()
	defer ps.unsubscribe(sub)

	ps.log.Info().Msg("Client connected to price stream")
	defer ps.log.Info().Msg("Client disconnected from price stream")

	// The stream is write-only; CloseRead keeps control frames serviced and
	// cancels the context when the peer goes away
	ctx := conn.CloseRead(r.Context())

	pingTicker := time.NewTicker(streamPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case price := <-sub.send:
			if err := ps.writePrice(ctx, conn, price); err != nil {
				ps.log.Debug().Err(err).Msg("Price stream write failed")
				return
			}

		case <-pingTicker.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				ps.log.Debug().Err(err).Msg("Price stream ping failed")
				return
			}
		}
	}
}

func (ps *PriceStream) writePrice(ctx context.Context, conn *websocket.Conn, p market.MandiPrice) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal price update: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send price update: %w", err)
	}
	return nil
}
