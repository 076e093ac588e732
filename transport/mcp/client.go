package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/rulegrid/game/engine"
	"github.com/wricardo/rulegrid/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"rulegrid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`rulegrid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Rules are sentences made of word tiles on the grid, like BABA IS YOU.
Push the words to rewrite the rules, then bring a YOU entity onto a WIN
entity.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions: manage sessions
- game_state: board, rules and entities
- move / bulk_move: play turns (requires intent explanation)
- undo / reset_game / rescan_rules / clear_history: turn control
- turn_history: past turns
- place_entity / remove_entity: edit the level
- save_game / load_game / list_slots: save slots 1..3
- list_levels: available levels
- describe_cell: everything standing on one cell
- game_instructions: full rules

NOTE: The 'intent' parameter on move/bulk_move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally on a specific level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level_id": map[string]interface{}{
					"type":        "string",
					"description": "Level to play (optional, see list_levels)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session"), c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(sessionTool("game_state", "Get the board, active rules and entities"), c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move every YOU entity one cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Direction to move",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: "Play several moves in sequence; stops when blocked or on a win",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"up", "down", "left", "right"},
					},
					"description": fmt.Sprintf("Array of moves (at most %d)", service.MaxBulkMoves),
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(sessionTool("undo", "Revert the last committed turn"), c.handleUndo)
	c.mcpServer.AddTool(sessionTool("reset_game", "Rebuild the level from scratch"), c.handleReset)
	c.mcpServer.AddTool(sessionTool("rescan_rules", "Re-derive the rules from the words on the grid"), c.handleRescan)
	c.mcpServer.AddTool(sessionTool("clear_history", "Drop all undo frames"), c.handleClearHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "turn_history",
		Description: "Get past turns with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default: 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Turns per page (default: 20)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default: desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTurnHistory)

	// Editing
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_entity",
		Description: "Place an entity (e.g. ROCK, WORD_ROCK, PUSH, WALL) on a cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Catalog name of the entity",
				},
				"x": map[string]interface{}{"type": "number", "description": "Column"},
				"y": map[string]interface{}{"type": "number", "description": "Row"},
				"orientation": map[string]interface{}{
					"type":        "number",
					"description": "Wall orientation (walls only)",
				},
				"side": map[string]interface{}{
					"type":        "number",
					"description": "Wall side (walls only)",
				},
			},
			Required: []string{"session_id", "name", "x", "y"},
		},
	}, c.handlePlace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_entity",
		Description: "Remove the entity of a category from a cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"category": map[string]interface{}{
					"type": "string",
					"enum": []string{"word", "tile", "object", "character"},
				},
				"x": map[string]interface{}{"type": "number", "description": "Column"},
				"y": map[string]interface{}{"type": "number", "description": "Row"},
			},
			Required: []string{"session_id", "category", "x", "y"},
		},
	}, c.handleRemove)

	// Save slots
	slotTool := func(name, description string) mcp.Tool {
		tool := sessionTool(name, description)
		tool.InputSchema.Properties["slot"] = map[string]interface{}{
			"type":        "number",
			"description": fmt.Sprintf("Save slot (1-%d)", service.SaveSlots),
		}
		tool.InputSchema.Required = append(tool.InputSchema.Required, "slot")
		return tool
	}
	c.mcpServer.AddTool(slotTool("save_game", "Save the world into a slot"), c.handleSave)
	c.mcpServer.AddTool(slotTool("load_game", "Load a slot; undo history is cleared"), c.handleLoad)
	c.mcpServer.AddTool(sessionTool("list_slots", "Describe the save slots"), c.handleListSlots)

	// Levels and help
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "List every entity standing on a cell with its properties",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x":          map[string]interface{}{"type": "number", "description": "Column"},
				"y":          map[string]interface{}{"type": "number", "description": "Row"},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// arguments returns the tool call arguments, empty when absent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	id := stringArg(args, "session_id")
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]string{}
	if levelID := stringArg(args, "level_id"); levelID != "" {
		body["level_id"] = levelID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n%s", session.ID, formatSessionInfo(&session))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %s, Last active: %s)\n",
			s.ID, s.LevelID, s.LastAccessedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]string{"direction": stringArg(args, "direction")}
	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := formatMoveResult(&result)
	if intent := stringArg(args, "intent"); intent != "" {
		response = fmt.Sprintf("Intent: %s\n%s", intent, response)
	}
	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/bulk-move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, _ := args["moves"].([]interface{})
	moves := make([]string, 0, len(raw))
	for _, m := range raw {
		if s, ok := m.(string); ok {
			moves = append(moves, s)
		}
	}
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves must be a non-empty array of directions"), nil
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", path, map[string][]string{"moves": moves}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := formatBulkMoveResult(stringArg(args, "session_id"), &result)
	if intent := stringArg(args, "intent"); intent != "" {
		response = fmt.Sprintf("Intent: %s\n%s", intent, response)
	}
	return mcp.NewToolResultText(response), nil
}

// command posts to a session endpoint returning a CommandResult
func (c *Client) command(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.CommandResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result.Message + "\n\n" + formatGameState(result.GameState)), nil
}

func (c *Client) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.command(ctx, request, "/undo")
}

func (c *Client) handleRescan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.command(ctx, request, "/rescan")
}

func (c *Client) handleClearHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.command(ctx, request, "/clear-history")
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatGameState(response.State)), nil
}

func (c *Client) handleTurnHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		query.Set("order", order)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handlePlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/place")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	x, _ := intArg(args, "x")
	y, _ := intArg(args, "y")
	req := service.PlaceRequest{Name: stringArg(args, "name"), X: x, Y: y}
	if o, ok := intArg(args, "orientation"); ok {
		req.Orientation = &o
	}
	if s, ok := intArg(args, "side"); ok {
		req.Side = &s
	}

	var result service.EditResult
	if err := c.apiCall(ctx, "POST", path, req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Placed %s at (%d,%d) as %s\n\n%s",
		req.Name, x, y, result.Handle, formatGameState(result.GameState))), nil
}

func (c *Client) handleRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/remove")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	x, _ := intArg(args, "x")
	y, _ := intArg(args, "y")
	req := service.RemoveRequest{Category: stringArg(args, "category"), X: x, Y: y}

	var result service.EditResult
	if err := c.apiCall(ctx, "POST", path, req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %s from (%d,%d)\n\n%s",
		result.Handle, x, y, formatGameState(result.GameState))), nil
}

func slotPath(args map[string]interface{}) (string, error) {
	slot, ok := intArg(args, "slot")
	if !ok {
		return "", fmt.Errorf("slot is required")
	}
	return sessionPath(args, fmt.Sprintf("/slots/%d", slot))
}

func (c *Client) handleSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := slotPath(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SlotInfo
	if err := c.apiCall(ctx, "PUT", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved to slot %d (%s, %s)", info.Slot, info.Level, info.CreatedAt)), nil
}

func (c *Client) handleLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := slotPath(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.LoadResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	header := fmt.Sprintf("Loaded slot %d", result.Slot)
	if result.Skipped > 0 {
		header += fmt.Sprintf(" (%d entities could not be restored)", result.Skipped)
	}
	return mcp.NewToolResultText(header + "\n\n" + formatGameState(result.GameState)), nil
}

func (c *Client) handleListSlots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/slots")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Slots []service.SlotInfo `json:"slots"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Save Slots:\n\n")
	for _, s := range response.Slots {
		marker := " "
		if s.Current {
			marker = "*"
		}
		if s.Empty {
			fmt.Fprintf(&b, "%s %d. (empty)\n", marker, s.Slot)
			continue
		}
		fmt.Fprintf(&b, "%s %d. %s saved %s\n", marker, s.Slot, s.Level, s.CreatedAt)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Levels (%d):\n\n", len(levels))
	for _, l := range levels {
		fmt.Fprintf(&b, "- %s: %s (%dx%d)", l.LevelID, l.Name, l.Cols, l.Rows)
		if l.Description != "" {
			fmt.Fprintf(&b, " - %s", l.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `# rulegrid

## Rules are words
The grid holds word tiles. Three words in a line, reading left to right or
top to bottom, form a rule: NOUN IS PROPERTY or NOUN IS NOUN.

  BABA IS YOU     - BABA entities follow your moves
  FLAG IS WIN     - touching a FLAG with a YOU entity wins
  ROCK IS PUSH    - ROCKs are shoved along when walked into
  WALL IS STOP    - WALLs block movement
  WATER IS SINK   - whatever enters WATER sinks along with it
  SKULL IS DEFEAT - YOU entities touching a SKULL are destroyed
  ROCK IS FLAG    - every ROCK turns into a FLAG

Rules are re-derived whenever the board settles, so pushing a word out of
line breaks its rule and lining words up creates a new one.

## Board legend (game_state)
  Upper case letter - character or object (B = BABA, F = FLAG, R = ROCK)
  Lower case letter - word tile (b = BABA word, i = IS, y = YOU)
  #                 - wall
  ~                 - other tiles
  .                 - empty

## Turns
Each move moves every YOU entity one cell. Moving off the grid or into a
STOP entity is blocked. PUSH entities in the way are shoved, in a chain;
the whole chain is blocked if its end cannot move. Words are not pushable
unless the level says so.

A move that changes the world creates an undo frame (up to 50). Use undo,
reset_game, save_game and load_game freely.

## Winning
Win when a YOU entity overlaps a WIN entity, or is both YOU and WIN.`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if x < 0 || y < 0 || x >= state.Cols || y >= state.Rows {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid size is %dx%d",
			x, y, state.Cols, state.Rows)), nil
	}

	return mcp.NewToolResultText(describeCell(&state, x, y)), nil
}

// Formatting helpers

func describeCell(state *engine.GameState, x, y int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell (%d,%d):\n", x, y)

	found := 0
	for _, e := range state.Entities {
		if e.X != x || e.Y != y {
			continue
		}
		found++
		fmt.Fprintf(&b, "- %s [%s] facing %s", e.Name, e.Kind, e.Direction)
		if len(e.Properties) > 0 {
			fmt.Fprintf(&b, " is %s", strings.Join(e.Properties, ", "))
		}
		if e.Orientation != nil && e.Side != nil {
			fmt.Fprintf(&b, " (orientation %d, side %d)", *e.Orientation, *e.Side)
		}
		b.WriteString("\n")
	}
	if found == 0 {
		b.WriteString("(empty)\n")
	}
	return b.String()
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %s\nCreated: %s\n\n%s",
		session.ID, session.LevelID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s | %dx%d | Turns: %d | Undo: %d\n\n",
		state.Level, state.Cols, state.Rows, state.TotalTurns, state.UndoDepth)

	b.WriteString("Rules:\n")
	if len(state.Rules) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, r := range state.Rules {
		fmt.Fprintf(&b, "  %s\n", r)
	}
	b.WriteString("\n")

	for _, row := range state.Board {
		b.WriteString(row + "\n")
	}

	var you []string
	for _, e := range state.Entities {
		for _, p := range e.Properties {
			if p == "YOU" {
				you = append(you, fmt.Sprintf("%s(%d,%d)", e.Name, e.X, e.Y))
			}
		}
	}
	if len(you) > 0 {
		fmt.Fprintf(&b, "\nYOU: %s", strings.Join(you, " "))
	} else {
		b.WriteString("\nNothing is YOU")
	}

	if state.Win {
		b.WriteString("\n\nLEVEL WON!")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ Moved %s (%d entities)\n", result.Direction, len(result.Moved))
	} else {
		fmt.Fprintf(&b, "✗ Blocked moving %s\n", result.Direction)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s: executed %d/%d moves", sessionID, result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")

	for _, s := range result.Steps {
		status := "✓"
		if !s.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %s moved=%d", s.Idx, s.Dir, status, s.Moved)
		if s.Removed > 0 {
			fmt.Fprintf(&b, " removed=%d", s.Removed)
		}
		if s.Win {
			b.WriteString(" WIN")
		}
		b.WriteString("\n")
	}

	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d [%s]: %s\n", result.StoppedOnMove, result.StopReasonCode, result.StoppedReason)
	}

	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalTurns)

	for _, turn := range history.Turns {
		status := "✓"
		if !turn.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %s [moved: %d]\n", turn.Turn, turn.Action, status, turn.Moved)
	}
	return b.String()
}
