package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/topcenter/portal-realtime/internal/adapters/secondary/terminal"
	"github.com/topcenter/portal-realtime/internal/adapters/secondary/wsclient"
	"github.com/topcenter/portal-realtime/internal/config"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	"github.com/topcenter/portal-realtime/internal/core/services"
	"github.com/topcenter/portal-realtime/internal/infrastructure/logging"
)

const appName = "portal-chat"

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := config.LoadReconnect()

	return &cli.App{
		Name:    appName,
		Usage:   "Terminal client for the TopCenter portal chat",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "gateway websocket URL (http, https, ws or wss)",
				EnvVars: []string{"CHAT_URL"},
				Value:   defaults.URL,
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "portal access token",
				EnvVars: []string{"CHAT_TOKEN"},
				Value:   defaults.Token,
			},
			&cli.StringFlag{
				Name:    "conversation",
				Aliases: []string{"c"},
				Usage:   "conversation to join (defaults to your own)",
				EnvVars: []string{"CHAT_CONVERSATION"},
				Value:   defaults.ConversationID,
			},
			&cli.DurationFlag{
				Name:    "handshake-timeout",
				EnvVars: []string{"CHAT_HANDSHAKE_TIMEOUT"},
				Value:   defaults.HandshakeTimeout,
			},
			&cli.BoolFlag{
				Name:  "background",
				Usage: "start hidden, as if the portal tab were in the background",
			},
			&cli.StringFlag{
				Name:  "permission",
				Usage: "initial native notification permission (default, granted or denied)",
				Value: string(domain.PermissionDefault),
			},
			&cli.BoolFlag{
				Name:  "no-native",
				Usage: "deny native notifications when requested",
			},
			&cli.BoolFlag{
				Name:    "no-color",
				EnvVars: []string{"NO_COLOR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "warn",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	rc := config.ReconnectConfig{
		URL:              c.String("url"),
		Token:            c.String("token"),
		ConversationID:   c.String("conversation"),
		HandshakeTimeout: c.Duration("handshake-timeout"),
		WriteWait:        config.LoadReconnect().WriteWait,
	}
	if err := rc.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logger := logging.NewLogger(logging.Config{
		Level:       c.String("log-level"),
		Format:      "text",
		Output:      c.App.ErrWriter,
		ServiceName: appName,
		Environment: "client",
	})

	endpoint, err := wsclient.Endpoint(rc.URL, rc.Token, rc.ConversationID)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := terminal.NewSink(c.App.Writer, !c.Bool("no-color"), logger)
	visibility := terminal.NewVisibility(c.Bool("background"))
	registry := services.NewNotificationRegistry(
		sink,
		terminal.NewPermissions(domain.ParsePermission(c.String("permission")), !c.Bool("no-native")),
		visibility,
		logger,
	)

	analyzer, err := services.NewIntentAnalyzer()
	if err != nil {
		return fmt.Errorf("build intent analyzer: %w", err)
	}

	manager := wsclient.NewManager(
		wsclient.Config{Endpoint: endpoint, WriteWait: rc.WriteWait},
		registry,
		visibility,
		logger,
		wsclient.WithDialer(wsclient.NewGorillaDialer(rc.HandshakeTimeout)),
		wsclient.WithMessageHandler(func(msg domain.ChatMessage) {
			_ = sink.Println(formatMessage(msg))
		}),
	)
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Debug("close connection", "error", err)
		}
	}()

	// A failed first dial is not fatal: the manager is already in backoff and
	// keeps retrying until Close.
	if err := manager.Connect(ctx); err != nil {
		logger.Warn("gateway unreachable, retrying in background", "error", err)
	}

	s := newSession(manager, registry, analyzer, visibility, sink)
	_ = sink.Println("Tapez /help pour les commandes.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.App.Reader)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.handleLine(ctx, line); quit {
				return nil
			}
		}
	}
}

func formatMessage(msg domain.ChatMessage) string {
	return fmt.Sprintf("[%s] %s: %s", msg.SentAt().Local().Format(time.TimeOnly), msg.Sender, msg.Content)
}
