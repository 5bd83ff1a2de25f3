package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestHealthcheckCommand(t *testing.T) {
	resetFlags()
	srv := newFakeServer(t)

	var buf bytes.Buffer
	rootCmd.SetArgs([]string{"healthcheck", "--verbose", "--config", srv.configFor(t)})
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("healthcheck failed: %v\n%s", err, buf.String())
	}

	output := buf.String()
	for _, want := range []string{"Server reachable", "Version: IRIS 2025.1", "Token minted", "/csp/user", "Health check passed"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got:\n%s", want, output)
		}
	}
}

func TestHealthcheckUnreachableServer(t *testing.T) {
	resetFlags()
	srv := newFakeServer(t)
	config := srv.configFor(t)
	srv.Close()

	var buf bytes.Buffer
	rootCmd.SetArgs([]string{"healthcheck", "--config", config})
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("healthcheck should fail when the server is down")
	}
	if !strings.Contains(buf.String(), "Server unreachable") {
		t.Errorf("output should report the server, got:\n%s", buf.String())
	}
}
