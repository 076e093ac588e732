// Package mcp exposes rulegrid to AI agents over the Model Context Protocol.
//
// The Client registers MCP tools and forwards every call to the REST API
// (package api), so an agent sees exactly the sessions a browser or script
// sees. Tool failures are returned as error results, never as protocol
// errors.
//
// MCP Tools:
//   - create_session, get_session, list_sessions: session management
//   - game_state: board, active rules, YOU entities
//   - move, bulk_move: play turns; both take an optional "intent"
//   - undo, reset_game, rescan_rules, clear_history: turn control
//   - turn_history: paginated turn log
//   - place_entity, remove_entity: level editing
//   - save_game, load_game, list_slots: save slots 1..3
//   - list_levels, describe_cell, game_instructions: discovery
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST JSON-RPC messages to /mcp on the main server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
