// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package anthropic

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/llxcore/pkg/core"
)

func TestConvertTools_SanitizesMCPNamespacedNames(t *testing.T) {
	out := convertTools([]core.ToolSchema{
		{Name: "vantage-mcp:execute_sql"},
		{Name: "read_file"},
	})
	assert.Equal(t, "vantage-mcp_execute_sql", out[0].Name)
	assert.Equal(t, "read_file", out[1].Name)
}

func TestStreamBody_ReversesSanitizedToolCallName(t *testing.T) {
	toolNames := map[string]string{"vantage-mcp_execute_sql": "vantage-mcp:execute_sql"}
	events := make(chan core.Event, 4)
	body := "event: content_block_start\n" +
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"vantage-mcp_execute_sql"}}` + "\n"

	go func() {
		streamBody(context.Background(), strings.NewReader(body), events, toolNames)
		close(events)
	}()

	var got core.Event
	for ev := range events {
		if ev.Kind == core.EventToolCallFragment {
			got = ev
		}
	}
	assert.Equal(t, "vantage-mcp:execute_sql", got.Fragment.NameDelta)
}
