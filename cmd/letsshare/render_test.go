package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/letsshare/file"
	"github.com/opd-ai/letsshare/history"
	"github.com/opd-ai/letsshare/session"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(events ...session.Event) <-chan session.Event {
	ch := make(chan session.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch
}

func TestRenderEvents_Completed(t *testing.T) {
	var out bytes.Buffer
	err := renderEvents(feed(
		session.Event{Kind: session.EventStatus, Status: session.StatusAwaitingPeer, Message: "Waiting for connection..."},
		session.Event{Kind: session.EventStatus, Status: session.StatusConnected, Message: "Connected with 192.168.1.20"},
		session.Event{Kind: session.EventStatus, Status: session.StatusTransferring, Message: "Receiving a.bin (2.00 KB)"},
		session.Event{Kind: session.EventProgress, Progress: file.Progress{Transferred: 1024, Total: 2048, Percentage: 50}},
		session.Event{Kind: session.EventProgress, Progress: file.Progress{Transferred: 2048, Total: 2048, Percentage: 100}},
		session.Event{Kind: session.EventStatus, Status: session.StatusCompleted},
		session.Event{Kind: session.EventCompleted, Message: "a.bin received successfully"},
	), &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Waiting for connection...")
	assert.Contains(t, out.String(), "Connected with 192.168.1.20")
	assert.Contains(t, out.String(), "a.bin received successfully")
}

func TestRenderEvents_Failed(t *testing.T) {
	failure := errors.New("boom")
	err := renderEvents(feed(
		session.Event{Kind: session.EventProgress, Progress: file.Progress{Transferred: 1, Total: 2}},
		session.Event{Kind: session.EventStatus, Status: session.StatusFailed, Message: "boom"},
		session.Event{Kind: session.EventFailed, Err: failure},
	), &bytes.Buffer{})
	assert.ErrorIs(t, err, failure)
}

func TestRenderEvents_Disconnected(t *testing.T) {
	err := renderEvents(feed(
		session.Event{Kind: session.EventStatus, Status: session.StatusDisconnected},
	), &bytes.Buffer{})
	assert.ErrorIs(t, err, session.ErrCancelled)

	err = renderEvents(feed(), &bytes.Buffer{})
	assert.ErrorIs(t, err, session.ErrSessionClosed)
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	require.NoError(t, setupLogging("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	require.NoError(t, setupLogging("warn", "TEXT"))
	assert.Error(t, setupLogging("loud", "text"))
	assert.Error(t, setupLogging("info", "xml"))
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs.txt")
	sink := history.NewFileSink(logPath)
	require.NoError(t, sink.AppendRecord(history.Record{
		Time:      time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local),
		Operation: history.OperationSend,
		Peer:      "192.168.1.20",
		FileName:  "notes.txt",
		Size:      "1.50 KB",
	}))

	configPath := filepath.Join(dir, "letsshare.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("history_path: "+logPath+"\n"), 0o644))

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--config", configPath})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "OPERATION")
	assert.Contains(t, out.String(), "notes.txt")
	assert.Contains(t, out.String(), "2026-05-01 12:00:00")
}

func TestSendCommand_RejectsInvalidAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o644))

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"send", "999.1.1.1", path})
	err := root.Execute()
	assert.ErrorIs(t, err, session.ErrInvalidAddress)
}
