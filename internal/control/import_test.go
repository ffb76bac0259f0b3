// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package control

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/ManuGH/knotlink"

// TestLayering keeps the dependency graph pointing one way: the HTTP layer
// never reaches the daemon, and the domain packages never reach HTTP.
func TestLayering(t *testing.T) {
	rules := []struct {
		pattern   string
		forbidden []string
	}{
		{modulePath + "/internal/control/...", []string{modulePath + "/internal/daemon", modulePath + "/cmd"}},
		{modulePath + "/internal/proxy", []string{modulePath + "/internal/control", modulePath + "/internal/linkflow"}},
		{modulePath + "/internal/knot", []string{modulePath + "/internal/control", modulePath + "/internal/proxy"}},
		{modulePath + "/internal/linkflow", []string{modulePath + "/internal/control"}},
	}

	for _, rule := range rules {
		t.Run(rule.pattern, func(t *testing.T) {
			cmd := exec.Command("go", "list", "-deps", rule.pattern)
			cmd.Env = append(os.Environ(), "GOWORK=off")
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			require.NoError(t, cmd.Run(), "go list -deps: %s", stderr.String())

			for _, d := range strings.Split(stdout.String(), "\n") {
				d = strings.TrimSpace(d)
				for _, prefix := range rule.forbidden {
					assert.False(t, strings.HasPrefix(d, prefix), "%s depends on %s", rule.pattern, d)
				}
			}
		})
	}
}
