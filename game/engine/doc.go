// Package engine provides the core simulation of a tile-grid puzzle whose
// rules are written on the board itself.
//
// The engine package implements:
//   - A World of fixed slots in four categories: words, interactive tiles,
//     objects and characters
//   - Rule derivation from NOUN IS PREDICATE sentences read down columns
//     and across rows
//   - Push cascades with STOP blocking and cycle detection
//   - Contact effects: SINK, DEFEAT, WIN and collision flags
//   - A bounded undo stack that animates entities back to where they were
//   - Save records with "NULL" empty slots and staged loading
//   - Level configuration loading and validation (JSON or YAML)
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. World holds the entities, RuleEngine,
// MovementResolver and InteractionResolver act on it each tick, and
// StateStack keeps the undo history. LevelConfig describes a starting layout.
//
// Usage:
//
//	config, err := engine.LoadLevelConfig("configs/intro.yaml", engine.NewCatalog())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Play one turn and read the result
//	outcome := gameEngine.Move(engine.Right)
//	state := gameEngine.GetState()
//
// Ticks:
//
// Tick is the fixed-step entry point. Each tick advances in-flight
// entities, resolves contacts for those that arrived, removes the dead,
// applies the tick's command and rescans rules once nothing is moving.
// Move, Undo and Settle drive whole turns for callers that do not run a
// frame loop.
package engine
