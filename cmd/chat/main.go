package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maximotodev/bitcoin-chatbot/internal/chat"
	"github.com/maximotodev/bitcoin-chatbot/internal/config"
	"github.com/maximotodev/bitcoin-chatbot/internal/httpx"
	"github.com/maximotodev/bitcoin-chatbot/internal/llm"
	"github.com/maximotodev/bitcoin-chatbot/internal/logger"
	"github.com/maximotodev/bitcoin-chatbot/internal/quote"
)

var version = "dev"

func main() {
	var configPath string
	var historyWindow int

	root := &cobra.Command{
		Use:     "btcchat",
		Short:   "Interactive terminal client for the Bitcoin chatbot",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(configPath, historyWindow)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to config.yaml (optional)")
	root.Flags().IntVar(&historyWindow, "history", 12, "number of prior turns kept as context")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runChat(configPath string, historyWindow int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(config.Log{Level: "error", Format: "console", Environment: "dev"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	gecko := quote.NewCoinGeckoClient(cfg.Price.Currency,
		quote.WithBaseURL(cfg.Price.Endpoint),
		quote.WithHTTPClient(httpClient),
	)
	cache := quote.NewCache(gecko,
		time.Duration(cfg.Price.TTLSeconds)*time.Second,
		time.Duration(cfg.Price.TimeoutSec)*time.Second,
		log,
	)

	gemini, err := llm.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.Model,
		llm.WithBaseURL(cfg.Gemini.Endpoint),
		llm.WithHTTPClient(httpClient),
		llm.WithTimeout(time.Duration(cfg.Gemini.TimeoutSec)*time.Second),
	)
	if err != nil {
		return err
	}

	bot := chat.NewBot(gemini, cache, chat.DefaultLinkRules(), log)

	fmt.Println("--- Bitcoin Chatbot ---")
	fmt.Println("Ask me anything about Bitcoin! Type 'quit', 'exit', or 'bye' to end.")

	var history []chat.Turn
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		switch strings.ToLower(question) {
		case "quit", "exit", "bye":
			fmt.Println("Chatbot: Goodbye!")
			return nil
		}

		answer := bot.Answer(context.Background(), question, history)
		fmt.Printf("\nChatbot: %s\n", answer)

		history = append(history,
			chat.Turn{Role: chat.RoleUser, Text: question},
			chat.Turn{Role: chat.RoleBot, Text: answer},
		)
		if historyWindow > 0 && len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
	}
	return scanner.Err()
}
