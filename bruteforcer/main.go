// Command bruteforcer solves a level by breadth-first search over the
// engine, then replays the winning moves against a running server.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/wricardo/rulegrid/game/service"
	"go.uber.org/zap"
)

const sessionFile = ".session"

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	levelID := flag.String("level", "", "Level to play (server default when empty)")
	continueSession := flag.String("continue", "", "Resume playing an existing session by ID")
	maxStates := flag.Int("max-states", 200000, "Maximum distinct states to explore")
	dryRun := flag.Bool("dry-run", false, "Print the solution without replaying it")
	verbose := flag.Bool("v", false, "Verbose output")
	delayMs := flag.Int("delay", 0, "Delay between move batches in milliseconds (0 = no delay)")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	if !*verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	base, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defer base.Sync()
	log := base.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Infof("Connecting to game server at %s", *serverURL)
	client := NewClient(*serverURL)

	savedSessionID := *continueSession
	if savedSessionID == "" && *levelID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedSessionID = string(bytes.TrimSpace(data))
		}
	}

	session, err := resumeOrCreate(client, savedSessionID, *levelID, log)
	if err != nil {
		log.Fatalf("Failed to get a session: %v", err)
	}
	if session.LevelConfig == nil {
		log.Fatalf("Session %s did not include its level", client.sessionID)
	}
	levelName := session.LevelID
	if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
		log.Warnf("Failed to save session ID: %v", err)
	}

	log.Infof("Solving %s (%dx%d)...", levelName, session.LevelConfig.Cols, session.LevelConfig.Rows)
	started := time.Now()
	path, err := NewSolver(session.LevelConfig, *maxStates, log).Solve(ctx)
	if err != nil {
		if errors.Is(err, ErrSearchLimit) {
			log.Errorf("Gave up: %v (raise -max-states)", err)
		} else {
			log.Errorf("Failed to solve: %v", err)
		}
		os.Exit(1)
	}
	moves := directionNames(path)
	log.Infof("Solution (%d moves, %s): %s", len(moves), time.Since(started).Round(time.Millisecond), strings.Join(moves, " "))

	if *dryRun {
		return
	}

	log.Infof("Resetting session %s...", client.sessionID)
	if _, err := client.Reset(); err != nil {
		log.Fatalf("Failed to reset game: %v", err)
	}

	result, err := client.Replay(moves, time.Duration(*delayMs)*time.Millisecond)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
	if result != nil && result.Win {
		log.Infof("VICTORY! %s won with %d moves. Session: %s", levelName, len(moves), client.sessionID)
		return
	}
	log.Errorf("Replay finished without a win. Session: %s", client.sessionID)
	os.Exit(1)
}

// resumeOrCreate reuses sessionID when it still exists, else starts a new
// session on levelID
func resumeOrCreate(client *Client, sessionID, levelID string, log *zap.SugaredLogger) (*service.SessionInfo, error) {
	if sessionID != "" {
		client.sessionID = sessionID
		session, err := client.GetSession()
		if err == nil {
			log.Infof("Resuming session: %s", client.sessionID)
			return session, nil
		}
		log.Warnf("Failed to resume session (may be expired): %v", err)
	}

	session, err := client.CreateSession(levelID)
	if err != nil {
		return nil, err
	}
	log.Infof("Session created: %s", client.sessionID)
	return session, nil
}
