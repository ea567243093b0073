package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edgebind/edgebind/pkg/engine"
)

// PolicyFileName is the policy file looked up in the profile directory.
const PolicyFileName = "policy.yaml"

var policyValidator = newValidator("yaml")

// PolicyPath returns the default policy file path inside dir.
func PolicyPath(dir string) string {
	return filepath.Join(dir, PolicyFileName)
}

// LoadPolicy reads a retry policy file on top of engine.DefaultPolicy.
//
// When required is false a missing file yields the default policy.
func LoadPolicy(path string, required bool) (engine.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return engine.DefaultPolicy(), nil
		}
		return engine.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML retry policy.
// Unknown keys are rejected.
func ParsePolicy(data []byte) (engine.Policy, error) {
	p := engine.DefaultPolicy()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return engine.Policy{}, engine.NewPermanentError("invalid policy file", err).
			WithCode(engine.ErrCodePrecondition)
	}

	if err := policyValidator.Struct(p); err != nil {
		return engine.Policy{}, toPrecondition("invalid policy file", err, describePolicyField)
	}
	return p, nil
}

func describePolicyField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
	}
}
