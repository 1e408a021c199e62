package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"signalsift/demo/tui"
)

func main() {
	// Load environment
	_ = godotenv.Load()

	// Parse command-line flags
	apiURL := flag.String("url", "http://localhost:8080", "signalsift API URL")
	feed := flag.String("feed", "bbc", "feed preset name or URL to ingest")
	count := flag.Int("count", 10, "number of articles to ingest")
	flag.Parse()

	// Create TUI model
	m := tui.NewModel(*apiURL, *feed, *count)

	// Create the tea program
	program := tea.NewProgram(m)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		program.Quit()
	}()

	// Run the program
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
