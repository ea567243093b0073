package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgebind/edgebind/pkg/engine"
)

func validProfile(name string) *Profile {
	return &Profile{
		Name:      name,
		Email:     "ops@example.com",
		Token:     "sig-token-1234",
		CDNKey:    "cdn-key-5678",
		Corp:      "acme",
		Site:      "www",
		ServiceID: "SID123",
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"":          ".env",
		"default":   ".env",
		".env":      ".env",
		"acme-www":  "acme-www.env",
		"prod.env":  "prod.env",
		" staging ": "staging.env",
	}
	for in, want := range tests {
		assert.Equal(t, want, FileName(in), "input %q", in)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	store := NewStore(dir)

	path, err := store.Save(validProfile("acme-www"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "acme-www.env"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	loaded, err := store.Load("acme-www")
	require.NoError(t, err)
	assert.Equal(t, validProfile("acme-www"), loaded)

	loaded, err = store.Load("acme-www.env")
	require.NoError(t, err)
	assert.Equal(t, "acme-www", loaded.Name)
	assert.True(t, store.Exists("acme-www"))
}

func TestStore_LoadOriginalFormat(t *testing.T) {
	dir := t.TempDir()
	content := `SIGSCI_EMAIL="ops@example.com"
SIGSCI_TOKEN="sig-token-1234"
FASTLY_KEY="cdn-key-5678"
corpName="acme"
siteShortName="www"
fastlySID="SID123"`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0600))

	p, err := NewStore(dir).Load("")

	require.NoError(t, err)
	assert.Equal(t, validProfile(DefaultProfile), p)
	assert.Equal(t, engine.Target{Corp: "acme", Site: "www", ServiceID: "SID123"}, p.Target())
}

func TestStore_LoadMissing(t *testing.T) {
	_, err := NewStore(t.TempDir()).Load("nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

func TestStore_LoadInvalid(t *testing.T) {
	dir := t.TempDir()
	content := "SIGSCI_EMAIL=ops@example.com\nSIGSCI_TOKEN=same\nFASTLY_KEY=same\ncorpName=acme\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.env"), []byte(content), 0600))

	_, err := NewStore(dir).Load("broken")

	require.Error(t, err)
	assert.True(t, engine.IsPrecondition(err))
	var ee *engine.EngineError
	require.ErrorAs(t, err, &ee)
	assert.ElementsMatch(t, []string{KeyToken, KeySite, KeyServiceID}, ee.Details["keys"])
	assert.Contains(t, ee.Message, "the wrong key was entered")
	assert.Contains(t, ee.Message, "siteShortName is required")
}

func TestStore_RejectsTraversal(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("../etc/passwd")
	assert.Error(t, err)

	_, err = store.Save(validProfile("a/b"))
	assert.Error(t, err)
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Save(validProfile(DefaultProfile))
	require.NoError(t, err)
	_, err = store.Save(validProfile("prod"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.yaml"), []byte("delay: 1s\n"), 0600))

	names, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "prod"}, names)

	missing, err := NewStore(filepath.Join(dir, "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestProfile_Redacted(t *testing.T) {
	r := validProfile("x").Redacted()

	assert.Equal(t, "**********1234", r[KeyToken])
	assert.Equal(t, "********5678", r[KeyCDNKey])
	assert.Equal(t, "acme", r[KeyCorp])
	assert.Equal(t, "***", mask("abc"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]byte(`
delay: 5s
max_attempts: 60
max_elapsed: 10m
success_statuses: [200, 204]
fatal_statuses: [401, 403]
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, p.Delay)
	assert.Equal(t, 60, p.MaxAttempts)
	assert.Equal(t, 10*time.Minute, p.MaxElapsed)
	assert.Equal(t, []int{200, 204}, p.SuccessStatuses)
	assert.Equal(t, []int{401, 403}, p.FatalStatuses)
}

func TestParsePolicy_Defaults(t *testing.T) {
	p, err := ParsePolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultPolicy(), p)

	p, err = ParsePolicy([]byte("max_attempts: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultDelay, p.Delay)
	assert.Equal(t, []int{200}, p.SuccessStatuses)
	assert.Equal(t, 3, p.MaxAttempts)
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "retries: 3\n"},
		{"negative attempts", "max_attempts: -1\n"},
		{"negative delay", "delay: -1s\n"},
		{"zero delay", "delay: 0s\n"},
		{"bad status", "fatal_statuses: [42]\n"},
		{"not yaml", "delay: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, engine.IsPrecondition(err))
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()

	p, err := LoadPolicy(PolicyPath(dir), false)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultPolicy(), p)

	_, err = LoadPolicy(PolicyPath(dir), true)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(PolicyPath(dir), []byte("delay: 1s\n"), 0600))
	p, err = LoadPolicy(PolicyPath(dir), true)
	require.NoError(t, err)
	assert.Equal(t, time.Second, p.Delay)
}

// scriptedPrompter answers prompts from a queue.
type scriptedPrompter struct {
	answers  []string
	confirms []bool
	secrets  []string
}

func (p *scriptedPrompter) Ask(_ context.Context, label string) (string, error) {
	if len(p.answers) == 0 {
		return "", errors.New("unexpected prompt " + label)
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) AskSecret(ctx context.Context, label string) (string, error) {
	p.secrets = append(p.secrets, label)
	return p.Ask(ctx, label)
}

func (p *scriptedPrompter) Confirm(context.Context, string) (bool, error) {
	if len(p.confirms) == 0 {
		return false, errors.New("unexpected confirmation")
	}
	c := p.confirms[0]
	p.confirms = p.confirms[1:]
	return c, nil
}

func TestBootstrap(t *testing.T) {
	answers := []string{"ops@example.com", "sig-token-1234", "cdn-key-5678", "acme", "www", "SID123"}

	t.Run("named after corp and site", func(t *testing.T) {
		store := NewStore(t.TempDir())
		prompter := &scriptedPrompter{answers: append([]string(nil), answers...), confirms: []bool{true}}

		p, path, err := Bootstrap(context.Background(), prompter, store, "")

		require.NoError(t, err)
		assert.Equal(t, "acme-www", p.Name)
		assert.Equal(t, store.Path("acme-www"), path)
		assert.Equal(t, []string{KeyToken, KeyCDNKey}, prompter.secrets)
	})

	t.Run("default profile", func(t *testing.T) {
		store := NewStore(t.TempDir())
		prompter := &scriptedPrompter{answers: append([]string(nil), answers...), confirms: []bool{false}}

		p, _, err := Bootstrap(context.Background(), prompter, store, "")

		require.NoError(t, err)
		assert.Equal(t, DefaultProfile, p.Name)
		assert.True(t, store.Exists(DefaultProfile))
	})

	t.Run("explicit name skips naming question", func(t *testing.T) {
		store := NewStore(t.TempDir())
		prompter := &scriptedPrompter{answers: append([]string(nil), answers...)}

		p, _, err := Bootstrap(context.Background(), prompter, store, "staging")

		require.NoError(t, err)
		assert.Equal(t, "staging", p.Name)
	})

	t.Run("token equal to key", func(t *testing.T) {
		store := NewStore(t.TempDir())
		bad := append([]string(nil), answers...)
		bad[2] = bad[1]
		prompter := &scriptedPrompter{answers: bad}

		_, _, err := Bootstrap(context.Background(), prompter, store, "")

		require.Error(t, err)
		assert.True(t, engine.IsPrecondition(err))
		assert.False(t, store.Exists(DefaultProfile))
	})
}
