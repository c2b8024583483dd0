package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/api"
	"parley/internal/auth"
	"parley/internal/cache"
	"parley/internal/config"
	"parley/internal/store"
	"parley/internal/transport"
	"parley/internal/ui"
)

const version = "1.0.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "-v", "--version":
			fmt.Printf("Parley v%s\n", version)
			return
		case "help", "-h", "--help":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// the TUI owns stdout, so the log goes to a file
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Printf("Error: opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)

	apiClient := api.New(cfg.APIURL, http.DefaultClient)
	tr := transport.NewClient(cfg.WSURL, logger,
		transport.WithRetryPolicy(config.ReconnectAttempts, config.ReconnectDelay))
	st := store.New()
	creds := auth.NewStore(cfg.DataDir)

	// offline cache is best effort: the app runs without it
	var c *cache.Cache
	if c, err = cache.Open(cfg.CachePath()); err != nil {
		logger.Printf("main: opening cache: %v", err)
		c = nil
	} else {
		defer c.Close()
	}

	app := ui.NewApp(cfg, logger, apiClient, tr, st, creds, c)

	p := tea.NewProgram(ui.NewBootstrapModel(app), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	help := `Parley - Terminal Chat Client

Usage:
  parley             Start the chat client
  parley version     Show version information
  parley help        Show this help message

Environment:
  PARLEY_API_URL     Chat server base URL (default http://localhost:5000)
  PARLEY_WS_URL      WebSocket URL (default ws://localhost:5000/ws)
  PARLEY_DATA_DIR    Data directory (default ~/.parley)

Navigation:
  ↑/↓ or j/k        Navigate lists
  Enter             Select/Open item
  ESC               Go back
  q                 Quit from current view
  ctrl+c            Force quit

Chats:
  /                 Search threads
  n                 Start a direct chat
  R                 Create a room
  r                 Refresh thread list
  ctrl+l            Sign out

Messages:
  ctrl+s            Send message (while composing)
  pgup              Load older messages
  ↑/↓               Scroll messages

Storage:
  Credentials are stored in ~/.parley/credentials.yml
  A local cache of threads and messages lives in ~/.parley/cache.db
  The log is written to ~/.parley/parley.log
`
	fmt.Print(help)
}
