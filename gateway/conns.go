package gateway

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/sync"
	"github.com/imtaco/watch-party/party"
)

// Directory maps connection ids to live connections for fan-out.
type Directory struct {
	conns  *sync.Map[string, jsonrpc.Conn[Session]]
	logger *log.Logger
}

func NewDirectory(logger *log.Logger) *Directory {
	return &Directory{
		conns:  sync.NewMap[string, jsonrpc.Conn[Session]](),
		logger: logger,
	}
}

func (d *Directory) Add(connID string, conn jsonrpc.Conn[Session]) {
	d.conns.Store(connID, conn)
	d.logger.Debug("Connection added", log.ConnID(connID))
}

func (d *Directory) Remove(connID string) {
	if _, ok := d.conns.LoadAndDelete(connID); ok {
		d.logger.Debug("Connection removed", log.ConnID(connID))
	}
}

func (d *Directory) Len() int {
	return d.conns.Len()
}

// Notify sends one event to connID. It reports false when the connection
// is unknown or its write queue rejected the frame.
func (d *Directory) Notify(connID, method string, params any) bool {
	conn, ok := d.conns.Load(connID)
	if !ok {
		return false
	}
	return d.send(conn, connID, method, params)
}

// Broadcast sends one event to every member and returns how many took it.
func (d *Directory) Broadcast(members []party.Member, method string, params any) int {
	sent := 0
	for _, m := range members {
		conn, ok := d.conns.Load(m.ConnID)
		if !ok {
			// member disconnected; its leave is being processed
			continue
		}
		if d.send(conn, m.ConnID, method, params) {
			sent++
		}
	}
	return sent
}

func (d *Directory) send(conn jsonrpc.Conn[Session], connID, method string, params any) bool {
	ctx := context.Background()
	if sess := conn.Context().Get(); sess != nil && sess.reqCtx != nil {
		ctx = sess.reqCtx
	}
	attrs := metric.WithAttributes(attribute.String("method", method))

	if err := conn.Notify(ctx, method, params); err != nil {
		notificationsFailed.Add(ctx, 1, attrs)
		d.logger.Warn("Failed to send to client",
			log.ConnID(connID),
			log.Event(method),
			log.Error(err))
		return false
	}
	notificationsSent.Add(ctx, 1, attrs)
	return true
}
