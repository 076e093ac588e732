// Package api provides the HTTP REST API for rulegrid sessions.
//
// The api package implements:
//   - Session management endpoints
//   - Turn operations (move, bulk move, undo, reset, rescan)
//   - Level editing (place and remove entities)
//   - Save slots and reload
//   - Level listing, retrieval and upload
//   - WebSocket upgrade for live session updates
//
// Endpoints:
//
// Session Management:
//   - POST   /api/sessions                    - Create session {"level_id": "intro"}
//   - GET    /api/sessions                    - List sessions (?sort=created|accessed&order=asc|desc&limit=N&level=ID)
//   - GET    /api/sessions/{id}               - Get session
//   - DELETE /api/sessions/{id}               - Delete session and its save slots
//
// Turn Operations:
//   - GET    /api/sessions/{id}/state         - Current game state
//   - POST   /api/sessions/{id}/move          - {"direction": "up|down|left|right"}
//   - POST   /api/sessions/{id}/bulk-move     - {"moves": ["right", "up"]}, at most 50
//   - POST   /api/sessions/{id}/undo          - Revert the last committed turn
//   - POST   /api/sessions/{id}/reset         - Rebuild the level
//   - POST   /api/sessions/{id}/rescan        - Re-derive rules now
//   - POST   /api/sessions/{id}/clear-history - Drop undo frames
//   - DELETE /api/sessions/{id}/win           - Read and clear the win flag
//   - GET    /api/sessions/{id}/history       - Turn history (?page=1&limit=20&order=desc)
//
// Editing:
//   - POST   /api/sessions/{id}/place         - {"name": "WALL", "x": 1, "y": 2, "orientation": 0, "side": 1}
//   - POST   /api/sessions/{id}/remove        - {"category": "object", "x": 1, "y": 2}
//
// Save Slots:
//   - GET    /api/sessions/{id}/slots         - Describe slots 1..3
//   - PUT    /api/sessions/{id}/slots/{slot}  - Save into a slot
//   - POST   /api/sessions/{id}/slots/{slot}  - Load a slot
//   - POST   /api/sessions/{id}/reload        - Load the current slot again
//
// Levels:
//   - GET    /api/levels                      - List level files
//   - GET    /api/levels/{name}               - Level definition
//   - POST   /api/levels                      - Validate and store a level
//
// Live Updates:
//   - GET    /api/sessions/{id}/ws            - WebSocket; receives "state_update" and "win" messages
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the service
// error: 404 for unknown sessions, levels and empty slots, 400 for bad
// input, 422 for undecodable save data and 501 when save slots are not
// configured.
//
//	{
//	  "error": "session not found: abcd",
//	  "code": 404
//	}
//
// Usage:
//
//	server := api.NewServer(gameService, hub, logger)
//	http.ListenAndServe(":8080", server)
package api
