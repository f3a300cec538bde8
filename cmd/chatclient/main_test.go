package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/topcenter/portal-realtime/internal/core/domain"
)

func TestRun_GatewayDownKeepsSessionAlive(t *testing.T) {
	var out, errOut bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader("/status\n/quit\n")
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	done := make(chan error, 1)
	go func() {
		done <- app.Run([]string{appName,
			"--url", "ws://127.0.0.1:1/api/v1/ws",
			"--token", "x",
			"--no-color",
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not exit on /quit")
	}

	text := out.String()
	assert.Contains(t, text, "[ERROR] Erreur de connexion")
	assert.Contains(t, text, "Tapez /help pour les commandes.")
	assert.Contains(t, text, "Connexion : "+domain.PhaseBackoff.String())
	assert.Contains(t, errOut.String(), "retrying in background")
}

func TestRun_MissingToken(t *testing.T) {
	t.Setenv("CHAT_TOKEN", "")
	var errOut bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader("")
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run([]string{appName, "--url", "ws://127.0.0.1:1/api/v1/ws"})

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "CHAT_TOKEN is required")
}
