// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/meridian-ai/meridian/services/orchestrator/hub"
	"github.com/meridian-ai/meridian/services/orchestrator/observability"
)

// Event channels a socket client can subscribe to.
const (
	ChannelEvent  = "event" // routing artifacts
	ChannelHealth = "health"
	ChannelBudget = "budget"
	ChannelCache  = "cache"
)

const (
	wsPingInterval = 30 * time.Second
	wsPongWait     = wsPingInterval + 10*time.Second
	wsWriteWait    = 10 * time.Second

	// New connections per IP per minute, then a 5 minute block.
	wsConnPerMinute = 10
	wsBlockDuration = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Envelope is the wire frame for every socket message, both directions.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConnLimiter throttles new socket connections per source IP.
type ConnLimiter struct {
	mu      sync.Mutex
	perIP   map[string]*rate.Limiter
	blocked map[string]time.Time
	now     func() time.Time
}

// NewConnLimiter returns a limiter with the shipped thresholds.
func NewConnLimiter() *ConnLimiter {
	return &ConnLimiter{
		perIP:   make(map[string]*rate.Limiter),
		blocked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether ip may open another connection. Exhausting the
// per-minute budget blocks the ip for wsBlockDuration.
func (l *ConnLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.blocked[ip]; ok {
		if now.Before(until) {
			return false
		}
		delete(l.blocked, ip)
	}

	lim, ok := l.perIP[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/wsConnPerMinute), wsConnPerMinute)
		l.perIP[ip] = lim
	}
	if !lim.AllowN(now, 1) {
		l.blocked[ip] = now.Add(wsBlockDuration)
		slog.Warn("socket connection rate exceeded, blocking", "ip", ip, "for", wsBlockDuration)
		return false
	}
	return true
}

// SocketGateway fans hub events out to websocket clients.
//
// Clients are subscribed to every channel on connect and can narrow
// with {type:"subscribe"|"unsubscribe", channel}. The server pings on
// wsPingInterval; a client that stops answering is dropped.
type SocketGateway struct {
	events  *hub.Hub
	token   string
	limiter *ConnLimiter
	clients atomic.Int64
}

// NewSocketGateway returns a gateway over the hub. An empty token
// disables authentication.
func NewSocketGateway(events *hub.Hub, token string) *SocketGateway {
	return &SocketGateway{
		events:  events,
		token:   token,
		limiter: NewConnLimiter(),
	}
}

// Clients returns the number of connected sockets.
func (g *SocketGateway) Clients() int { return int(g.clients.Load()) }

// authorized checks the bearer token in the header or ?token=.
func (g *SocketGateway) authorized(c *gin.Context) bool {
	if g.token == "" {
		return true
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") && strings.TrimPrefix(header, "Bearer ") == g.token {
		return true
	}
	return c.Query("token") == g.token
}

// Handle upgrades the connection and runs the session.
func (g *SocketGateway) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.authorized(c) {
			c.JSON(http.StatusUnauthorized, ErrorBody{
				Error: "unauthorized", Code: CodeInvalidInput,
				Message: "missing or invalid token", StatusCode: http.StatusUnauthorized,
			})
			return
		}
		if !g.limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, ErrorBody{
				Error: "rate limited", Code: CodeBudgetExceeded,
				Message: "too many connections from this address", StatusCode: http.StatusTooManyRequests,
			})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		g.clients.Add(1)
		observability.WSClients.Inc()
		defer func() {
			g.clients.Add(-1)
			observability.WSClients.Dec()
		}()
		g.run(ws)
	}
}

// clientMessage is what a socket client may send.
type clientMessage struct {
	Type    string `json:"type"` // "subscribe", "unsubscribe", "ping"
	Channel string `json:"channel,omitempty"`
}

func (g *SocketGateway) run(ws *websocket.Conn) {
	defer ws.Close()

	artifactSub := g.events.Artifacts.Subscribe()
	defer artifactSub.Cancel()
	healthSub := g.events.Health.Subscribe()
	defer healthSub.Cancel()
	budgetSub := g.events.Budget.Subscribe()
	defer budgetSub.Cancel()
	cacheSub := g.events.Cache.Subscribe()
	defer cacheSub.Cancel()

	var mu sync.Mutex
	active := map[string]bool{
		ChannelEvent:  true,
		ChannelHealth: true,
		ChannelBudget: true,
		ChannelCache:  true,
	}
	isActive := func(channel string) bool {
		mu.Lock()
		defer mu.Unlock()
		return active[channel]
	}

	outbox := make(chan Envelope, 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	// Single writer goroutine; gorilla allows one concurrent writer.
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			var env Envelope
			select {
			case <-done:
				return
			case <-ticker.C:
				ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
				continue
			case env = <-outbox:
			case a := <-artifactSub.C:
				if !isActive(ChannelEvent) {
					continue
				}
				env = Envelope{Type: ChannelEvent, Data: a, Timestamp: time.Now()}
			case h := <-healthSub.C:
				if !isActive(ChannelHealth) {
					continue
				}
				env = Envelope{Type: ChannelHealth, Data: h, Timestamp: time.Now()}
			case b := <-budgetSub.C:
				if !isActive(ChannelBudget) {
					continue
				}
				env = Envelope{Type: ChannelBudget, Data: b, Timestamp: time.Now()}
			case e := <-cacheSub.C:
				if !isActive(ChannelCache) {
					continue
				}
				env = Envelope{Type: ChannelCache, Data: e, Timestamp: time.Now()}
			}
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteJSON(env); err != nil {
				slog.Warn("socket write failed", "error", err)
				return
			}
		}
	}()
	defer close(done)

	// send never blocks past the writer's lifetime.
	send := func(env Envelope) {
		select {
		case outbox <- env:
		case <-writerDone:
		}
	}

	send(Envelope{Type: "connected", Timestamp: time.Now()})

	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var msg clientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			slog.Info("socket client disconnected", "error", err.Error())
			return
		}
		switch msg.Type {
		case "subscribe", "unsubscribe":
			if !validChannel(msg.Channel) {
				send(Envelope{Type: "error", Data: "unknown channel: " + msg.Channel, Timestamp: time.Now()})
				continue
			}
			mu.Lock()
			active[msg.Channel] = msg.Type == "subscribe"
			mu.Unlock()
			send(Envelope{Type: msg.Type + "d", Channel: msg.Channel, Timestamp: time.Now()})
		case "ping":
			send(Envelope{Type: "pong", Timestamp: time.Now()})
		}
	}
}

func validChannel(channel string) bool {
	switch channel {
	case ChannelEvent, ChannelHealth, ChannelBudget, ChannelCache:
		return true
	}
	return false
}
