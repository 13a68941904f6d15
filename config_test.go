// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	require.NotNil(t, config)
	assert.NotNil(t, config.ErrClassifier)
	assert.NotNil(t, config.TimeNow)
	assert.False(t, config.TimeNow().IsZero())
}
