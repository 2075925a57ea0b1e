// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package toolcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/llxcore/pkg/core"
)

func TestAssembler_NameLastWriteWinsArgsConcatenate(t *testing.T) {
	a := NewAssembler()
	a.AddFragment(core.ToolCallFragment{Index: 0, CallID: "call_1", NameDelta: "read_fi"})
	a.AddFragment(core.ToolCallFragment{Index: 0, NameDelta: "read_file"})
	a.AddFragment(core.ToolCallFragment{Index: 0, ArgsDelta: `{"path":`})
	a.AddFragment(core.ToolCallFragment{Index: 0, ArgsDelta: `"a.go"}`})

	out := a.Close()
	require.Len(t, out, 1)
	assert.Equal(t, "call_1", out[0].CallID)
	assert.Equal(t, "read_file", out[0].Name)
	assert.Equal(t, "a.go", out[0].Args["path"])
}

func TestAssembler_DuplicateArgsFragmentSuppressed(t *testing.T) {
	a := NewAssembler()
	a.AddFragment(core.ToolCallFragment{Index: 0, CallID: "call_1", NameDelta: "shell", ArgsDelta: `{"cmd":"ls"}`})
	a.AddFragment(core.ToolCallFragment{Index: 0, ArgsDelta: `{"cmd":"ls"}`}) // exact duplicate repeat

	out := a.Close()
	require.Len(t, out, 1)
	assert.Equal(t, "ls", out[0].Args["cmd"])
}

func TestAssembler_MalformedArgsWrappedAsValue(t *testing.T) {
	a := NewAssembler()
	a.AddFragment(core.ToolCallFragment{Index: 0, CallID: "call_1", NameDelta: "shell", ArgsDelta: `not json`})

	out := a.Close()
	require.Len(t, out, 1)
	assert.Equal(t, "not json", out[0].Args["value"])
}

func TestAssembler_MultipleIndicesPreserveOrder(t *testing.T) {
	a := NewAssembler()
	a.AddFragment(core.ToolCallFragment{Index: 0, CallID: "call_1", NameDelta: "a", ArgsDelta: `{}`})
	a.AddFragment(core.ToolCallFragment{Index: 1, CallID: "call_2", NameDelta: "b", ArgsDelta: `{}`})

	out := a.Close()
	require.Len(t, out, 2)
	assert.Equal(t, "call_1", out[0].CallID)
	assert.Equal(t, "call_2", out[1].CallID)
}

func TestAssembler_NoTwoIdenticalCallIDs(t *testing.T) {
	a := NewAssembler()
	a.AddFragment(core.ToolCallFragment{Index: 0, CallID: "call_1", NameDelta: "shell", ArgsDelta: `{}`})
	// a second, unrelated slot that happens to carry the same callId (known upstream bug)
	a.AddFragment(core.ToolCallFragment{Index: 1, CallID: "call_1", NameDelta: "shell", ArgsDelta: `{}`})

	out := a.Close()
	assert.Len(t, out, 1)
}

func TestAssembler_SlotWithNoNameIsSkipped(t *testing.T) {
	a := NewAssembler()
	a.AddFragment(core.ToolCallFragment{Index: 0, CallID: "call_1", ArgsDelta: `{}`})

	out := a.Close()
	assert.Len(t, out, 0)
}

func TestAssembler_EmptyCloseYieldsNoCalls(t *testing.T) {
	a := NewAssembler()
	out := a.Close()
	assert.Len(t, out, 0)
}
