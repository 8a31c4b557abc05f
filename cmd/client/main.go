package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chatter/internal/client"
	"chatter/internal/logging"

	"go.uber.org/zap"
)

func main() {
	serverURL := flag.String("url", "ws://localhost:9876/ws", "Gateway websocket URL")
	userID := flag.String("user", "", "User id to connect as when the server allows anonymous ids")
	token := flag.String("token", os.Getenv("CHATTER_TOKEN"), "Access token (default: $CHATTER_TOKEN)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if err := run(*serverURL, *userID, *token, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "chatter-client:", err)
		os.Exit(1)
	}
}

func run(serverURL, userID, token string, verbose bool) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	if userID == "" && token == "" {
		return errors.New("either -user or -token is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := client.Dial(ctx, serverURL, userID, token, log)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.Start()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("connected; type /help for commands")
	for {
		select {
		case <-ctx.Done():
			return nil

		case env, ok := <-ws.Events():
			if !ok {
				return fmt.Errorf("connection closed by server")
			}
			fmt.Println(client.FormatEvent(env))

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit":
				return nil
			case "/help":
				fmt.Println(client.Help())
				continue
			}

			cmd, err := client.ParseCommand(line)
			if err != nil {
				fmt.Println("!", err)
				continue
			}
			if err := ws.Send(cmd.Event, cmd.Payload); err != nil {
				log.Error("send failed", zap.Error(err))
				return err
			}
		}
	}
}
