package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBadgerLogger_Levels(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger := newBadgerLogger(log)

	// When badger logs at every level
	logger.Infof("Replaying file id: %d\n", 7)
	logger.Warningf("Value log truncated: %s\n", "000001.vlog")
	logger.Errorf("Compaction failed: %v", "boom")
	logger.Debugf("noise")

	// Then info and debug lines are filtered out
	out := buf.String()
	req.NotContains(out, "Replaying")
	req.NotContains(out, "noise")
	req.Contains(out, "Value log truncated: 000001.vlog")
	req.Contains(out, "Compaction failed: boom")
	req.Contains(out, "component=badger")
	req.NotContains(out, `\n`)
}
