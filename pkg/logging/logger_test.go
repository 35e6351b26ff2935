// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Writer: &buf})

	logger.Info("compute started", "run_id", "abc123")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "compute started", record["msg"])
	assert.Equal(t, "abc123", record["run_id"])
	assert.Equal(t, "cession", record["component"])
}

func TestNewTextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf, Component: "pricing"})

	logger.Warn("degraded mode")

	out := buf.String()
	assert.Contains(t, out, "degraded mode")
	assert.Contains(t, out, "component=pricing")
}

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Writer: &buf})

	logger.Debug("noise")
	logger.Info("also noise")
	logger.Error("kept")

	out := buf.String()
	assert.NotContains(t, out, "noise")
	assert.Contains(t, out, "kept")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNewOmitsComponentWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Writer: &buf, Component: "-"})

	logger.Info("bare")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	_, present := record["component"]
	assert.False(t, present)
}
