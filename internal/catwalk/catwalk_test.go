// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package catwalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetProvider_FindsKnownProvider(t *testing.T) {
	p := GetProvider(InferenceProviderAnthropic)
	if assert.NotNil(t, p) {
		assert.Equal(t, "Anthropic", p.Name)
		assert.Equal(t, TypeAnthropic, p.Type)
	}
}

func TestGetProvider_ReturnsNilForUnknownProvider(t *testing.T) {
	assert.Nil(t, GetProvider(InferenceProvider("does-not-exist")))
}
