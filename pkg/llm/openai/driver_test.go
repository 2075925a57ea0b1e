// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package openai

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
	assert.Equal(t, "vantage-mcp_execute_sql", out[0].Function.Name)
	assert.Equal(t, "read_file", out[1].Function.Name)
}

func TestStreamBody_ReversesSanitizedToolCallName(t *testing.T) {
	toolNames := map[string]string{"vantage-mcp_execute_sql": "vantage-mcp:execute_sql"}
	events := make(chan core.Event, 4)
	body := `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"vantage-mcp_execute_sql","arguments":"{}"}}]}}]}
data: [DONE]
`
	streamBody(context.Background(), strings.NewReader(body), events, toolNames)
	close(events)

	var got core.Event
	for ev := range events {
		if ev.Kind == core.EventToolCallFragment {
			got = ev
		}
	}
	assert.Equal(t, "vantage-mcp:execute_sql", got.Fragment.NameDelta)
}
