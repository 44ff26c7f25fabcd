package main

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokertable/internal/client"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()
	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"INFO":  log.InfoLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"bogus": log.InfoLevel,
	}
	for level, want := range tests {
		assert.Equal(t, want, newLogger(io.Discard, level).GetLevel(), level)
	}
}

func TestRunCommand(t *testing.T) {
	t.Parallel()
	// Not connected: sends only queue.
	ws := client.NewClient("http://localhost:0", log.NewWithOptions(io.Discard, log.Options{}))
	ws.SetTableID("main")

	tests := []struct {
		line   string
		quit   bool
		errMsg string
	}{
		{line: ""},
		{line: "list"},
		{line: "join main"},
		{line: "join main 500"},
		{line: "join main lots", errMsg: "invalid syntax"},
		{line: "join", errMsg: "needs a table"},
		{line: "fold"},
		{line: "ALLIN"},
		{line: "raise 40"},
		{line: "bet", errMsg: "needs an amount"},
		{line: "dance", errMsg: "unknown command"},
		{line: "quit", quit: true},
	}
	for _, tt := range tests {
		quit, err := runCommand(ws, tt.line, 200)
		assert.Equal(t, tt.quit, quit, tt.line)
		if tt.errMsg == "" {
			assert.NoError(t, err, tt.line)
		} else {
			require.Error(t, err, tt.line)
			assert.Contains(t, err.Error(), tt.errMsg, tt.line)
		}
	}
}
