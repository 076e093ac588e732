// Package config provides level management for the puzzle server.
//
// The config package handles:
//   - Loading levels from JSON and YAML files
//   - Level validation against the entity catalog
//   - Default level selection
//   - Level discovery and listing
//   - Watching the level directory for edits
//
// Level Format:
//
// Levels are stored as .json, .yaml or .yml files in the levels directory;
// the file name without extension is the level ID. Each level defines:
//   - Grid geometry (cols, rows, tile_size) and animation speed
//   - A character layout mapped through a legend to entity names
//   - Explicit placements, including wall orientation and side
//   - Optional background tiles with per-type collision flags
//
// Default Level:
//
// The default is "intro" when present, otherwise the first valid level in
// the directory, otherwise the built-in engine.DefaultLevel under the ID
// "default".
//
// Usage:
//
//	manager, err := config.NewManager("configs", config.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific level
//	level, err := manager.LoadLevel("intro")
//
//	// Get the default level
//	id, level := manager.GetDefault()
//
//	// Drop cached levels when their files change
//	go manager.Watch(ctx)
package config
