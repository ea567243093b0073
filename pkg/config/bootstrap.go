package config

import (
	"context"
	"errors"
	"fmt"
)

// Prompter asks the operator for values.
type Prompter interface {
	// Ask reads one line of input.
	Ask(ctx context.Context, label string) (string, error)

	// AskSecret reads one line of input without echoing it.
	AskSecret(ctx context.Context, label string) (string, error)

	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
}

// ErrBootstrapDeclined is returned when the operator refuses to create a profile.
var ErrBootstrapDeclined = errors.New("profile creation declined")

// Bootstrap prompts for a new profile and saves it.
//
// When name is empty or "default" the operator may choose to name the profile
// after the corp and site ("<corp>-<site>"), which lets several bindings live
// side by side.
func Bootstrap(ctx context.Context, prompter Prompter, store *Store, name string) (*Profile, string, error) {
	values := map[string]string{}
	fields := []struct {
		key    string
		secret bool
	}{
		{KeyEmail, false},
		{KeyToken, true},
		{KeyCDNKey, true},
		{KeyCorp, false},
		{KeySite, false},
		{KeyServiceID, false},
	}

	for _, f := range fields {
		var (
			v   string
			err error
		)
		if f.secret {
			v, err = prompter.AskSecret(ctx, f.key)
		} else {
			v, err = prompter.Ask(ctx, f.key)
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", f.key, err)
		}
		values[f.key] = v
	}

	if name == "" {
		name = DefaultProfile
	}
	p := ProfileFromValues(name, values)
	if err := p.Validate(); err != nil {
		return nil, "", err
	}

	if name == DefaultProfile {
		named, err := prompter.Confirm(ctx, "Would you like to name this profile to switch between configurations?")
		if err != nil {
			return nil, "", err
		}
		if named {
			p.Name = p.Corp + "-" + p.Site
		}
	}

	path, err := store.Save(p)
	if err != nil {
		return nil, "", err
	}
	return p, path, nil
}
