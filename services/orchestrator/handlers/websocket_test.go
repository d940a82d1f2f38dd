// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/meridian-ai/meridian/services/orchestrator/hub"
)

func dialGateway(t *testing.T, gateway *SocketGateway, query string) *websocket.Conn {
	t.Helper()
	router := gin.New()
	router.GET("/api/ws", gateway.Handle())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestSocketGateway_ConnectAndReceiveArtifact(t *testing.T) {
	events := hub.New(0)
	gateway := NewSocketGateway(events, "")

	ws := dialGateway(t, gateway, "")

	env := readEnvelope(t, ws)
	assert.Equal(t, "connected", env.Type)

	// Subscription is established during the upgrade, before "connected"
	// is queued, so this publish cannot be lost.
	events.Artifacts.Publish(datatypes.RoutingArtifact{
		Id:   "a-1",
		Type: datatypes.ArtifactRouteDecision,
	})

	env = readEnvelope(t, ws)
	assert.Equal(t, ChannelEvent, env.Type)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a-1", data["id"])
}

func TestSocketGateway_SubscribeUnsubscribe(t *testing.T) {
	events := hub.New(0)
	gateway := NewSocketGateway(events, "")
	ws := dialGateway(t, gateway, "")

	require.Equal(t, "connected", readEnvelope(t, ws).Type)

	require.NoError(t, ws.WriteJSON(clientMessage{Type: "unsubscribe", Channel: ChannelEvent}))
	env := readEnvelope(t, ws)
	assert.Equal(t, "unsubscribed", env.Type)
	assert.Equal(t, ChannelEvent, env.Channel)

	// The ack proves the filter is applied; this artifact must be
	// swallowed and the pong must be the next frame.
	events.Artifacts.Publish(datatypes.RoutingArtifact{Id: "a-2"})
	require.NoError(t, ws.WriteJSON(clientMessage{Type: "ping"}))
	env = readEnvelope(t, ws)
	assert.Equal(t, "pong", env.Type)

	require.NoError(t, ws.WriteJSON(clientMessage{Type: "subscribe", Channel: ChannelEvent}))
	assert.Equal(t, "subscribed", readEnvelope(t, ws).Type)

	events.Artifacts.Publish(datatypes.RoutingArtifact{Id: "a-3"})
	env = readEnvelope(t, ws)
	assert.Equal(t, ChannelEvent, env.Type)
}

func TestSocketGateway_UnknownChannel(t *testing.T) {
	events := hub.New(0)
	gateway := NewSocketGateway(events, "")
	ws := dialGateway(t, gateway, "")

	require.Equal(t, "connected", readEnvelope(t, ws).Type)

	require.NoError(t, ws.WriteJSON(clientMessage{Type: "subscribe", Channel: "bogus"}))
	env := readEnvelope(t, ws)
	assert.Equal(t, "error", env.Type)
}

func TestSocketGateway_AuthToken(t *testing.T) {
	events := hub.New(0)
	gateway := NewSocketGateway(events, "secret")

	router := gin.New()
	router.GET("/api/ws", gateway.Handle())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(base+"?token=secret", nil)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, "connected", readEnvelope(t, ws).Type)
}

func TestSocketGateway_ClientCount(t *testing.T) {
	events := hub.New(0)
	gateway := NewSocketGateway(events, "")

	assert.Equal(t, 0, gateway.Clients())
	ws := dialGateway(t, gateway, "")
	require.Equal(t, "connected", readEnvelope(t, ws).Type)
	assert.Equal(t, 1, gateway.Clients())

	ws.Close()
	assert.Eventually(t, func() bool { return gateway.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnLimiter_BlocksAfterBudget(t *testing.T) {
	l := NewConnLimiter()
	clock := time.Now()
	l.now = func() time.Time { return clock }

	for i := 0; i < wsConnPerMinute; i++ {
		require.True(t, l.Allow("10.0.0.1"), "connection %d within budget", i)
	}
	assert.False(t, l.Allow("10.0.0.1"), "11th connection exhausts the budget")

	// Other addresses are unaffected.
	assert.True(t, l.Allow("10.0.0.2"))

	// Still blocked shy of the block duration, free afterwards.
	clock = clock.Add(wsBlockDuration - time.Second)
	assert.False(t, l.Allow("10.0.0.1"))
	clock = clock.Add(2 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}
