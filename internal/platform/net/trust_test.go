// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package net

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDRs(t *testing.T) {
	nets, err := ParseCIDRs([]string{"10.0.0.0/8", " 192.168.1.5 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, nets, 3)

	assert.True(t, IPAllowed(net.ParseIP("10.1.2.3"), nets))
	assert.True(t, IPAllowed(net.ParseIP("192.168.1.5"), nets))
	assert.False(t, IPAllowed(net.ParseIP("192.168.1.6"), nets))
	assert.True(t, IPAllowed(net.ParseIP("::1"), nets))

	_, err = ParseCIDRs([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseCIDRs([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestRemoteIP(t *testing.T) {
	assert.Equal(t, "127.0.0.1", RemoteIP("127.0.0.1:5555").String())
	assert.Equal(t, "::1", RemoteIP("[::1]:80").String())
	assert.Nil(t, RemoteIP("garbage"))
}
