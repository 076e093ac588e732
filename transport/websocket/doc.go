// Package websocket provides WebSocket transport for the puzzle server.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after every change made through the API
//   - Named event broadcasting (win, load, reset)
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Client bookkeeping lives on the hub's Run
// goroutine; every other method talks to it over channels. Each client has
// a read pump and a write pump goroutine.
//
// Message Protocol:
//
// Messages are JSON objects, one per frame:
//   - {"session_id": "ab12", "event": "state_update", "game_state": {...}}
//   - {"session_id": "ab12", "event": "win", "data": {...}}
//
// Incoming frames are read and discarded.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/api/sessions/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, mux.Vars(r)["id"])
//	})
//
// Shutdown:
//
// Cancelling Run's context closes every client with a close frame. After
// that, broadcasts are dropped and ClientCount returns zero.
package websocket
