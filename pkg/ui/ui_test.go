package ui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetNoColor(true)
}

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return NewConsole(strings.NewReader(input), &out), &out
}

func TestConsole_Ask(t *testing.T) {
	c, out := newTestConsole("  acme  \nwww")

	v, err := c.Ask(context.Background(), "corpName")
	require.NoError(t, err)
	assert.Equal(t, "acme", v)
	assert.Contains(t, out.String(), "corpName:")

	v, err = c.Ask(context.Background(), "siteShortName")
	require.NoError(t, err)
	assert.Equal(t, "www", v)

	_, err = c.Ask(context.Background(), "fastlySID")
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestConsole_AskCancelled(t *testing.T) {
	c, out := newTestConsole("acme\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Ask(ctx, "corpName")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestConsole_AskCancelledWhileWaiting(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewConsole(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Ask(ctx, "corpName")
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return after cancellation")
	}

	// the line typed after the cancelled prompt goes to the next one
	go func() { _, _ = io.WriteString(w, "acme\n") }()
	v, err := c.Ask(context.Background(), "corpName")
	require.NoError(t, err)
	assert.Equal(t, "acme", v)
}

func TestConsole_ConfirmCancelledWhileWaiting(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewConsole(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := c.Confirm(ctx, "Continue?")

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConsole_AskSecretWithoutTerminal(t *testing.T) {
	c, _ := newTestConsole("s3cret\n")
	assert.False(t, c.Interactive())

	v, err := c.AskSecret(context.Background(), "SIGSCI_TOKEN")

	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)
}

func TestConsole_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			c, out := newTestConsole(tt.input)
			got, err := c.Confirm(context.Background(), "Continue?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestConsole_Output(t *testing.T) {
	c, out := newTestConsole("")

	c.Banner("1.2.3")
	c.Menu([]MenuItem{{Key: "1", Title: "Create edge deployment"}, {Key: "q", Title: "Quit", Hint: "exit"}})
	c.Success("done")
	c.Warn("careful")
	c.Error("broken")
	c.Info("hello")
	c.Notice("This can take up to 3 minutes")
	c.Attempt(2, 503, "503 Service Unavailable", "not_ready", "", 3*time.Second)
	c.Attempt(4, 429, "", "not_ready", "", time.Second)
	c.Attempt(3, 0, "", "transport", "dial tcp 10.0.0.1:443: connect: connection refused", 3*time.Second)
	c.Attempt(5, 0, "", "empty_reply", "", time.Second)
	c.Fields("Profile", []Field{{Label: "corpName", Value: "acme"}, {Label: "site", Value: "www"}})
	c.Payload([]byte(`{"ok":true}`))
	c.Payload(nil)

	s := out.String()
	assert.Contains(t, s, "v1.2.3")
	assert.Contains(t, s, "[1]  Create edge deployment")
	assert.Contains(t, s, "[q]  Quit  exit")
	assert.Contains(t, s, "[+] done")
	assert.Contains(t, s, "[!] careful")
	assert.Contains(t, s, "[X] broken")
	assert.Contains(t, s, "This can take up to 3 minutes")
	assert.Contains(t, s, "attempt 2: received 503 Service Unavailable, retrying in 3s")
	assert.Contains(t, s, "attempt 3: transport: dial tcp 10.0.0.1:443: connect: connection refused, retrying in 3s")
	assert.Contains(t, s, "attempt 5: empty_reply, retrying in 1s")
	assert.Contains(t, s, "attempt 4: received status 429, retrying in 1s")
	assert.Contains(t, s, ":: corpName : acme")
	assert.Contains(t, s, ":: site     : www")
	assert.Contains(t, s, "{\n  \"ok\": true\n}")
}

func TestConsole_PayloadNotJSON(t *testing.T) {
	c, out := newTestConsole("")

	c.Payload([]byte("plain text"))

	assert.Contains(t, out.String(), "plain text")
}

func TestSetNoColor(t *testing.T) {
	SetNoColor(true)
	assert.Equal(t, "x", StatusCodeStyle(503).Render("x"))
}
