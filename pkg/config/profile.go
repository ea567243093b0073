package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edgebind/edgebind/pkg/engine"
)

// Dotenv keys of a profile file.
const (
	KeyEmail     = "SIGSCI_EMAIL"
	KeyToken     = "SIGSCI_TOKEN"
	KeyCDNKey    = "FASTLY_KEY"
	KeyCorp      = "corpName"
	KeySite      = "siteShortName"
	KeyServiceID = "fastlySID"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

// Profile is one set of credentials and binding identifiers.
type Profile struct {
	// Name is the profile name, not stored in the file.
	Name string `env:"-" validate:"-"`

	// Email is the security authority API user.
	Email string `env:"SIGSCI_EMAIL" validate:"required"`

	// Token is the security authority API token.
	Token string `env:"SIGSCI_TOKEN" validate:"required,nefield=CDNKey"`

	// CDNKey is the CDN API key.
	CDNKey string `env:"FASTLY_KEY" validate:"required"`

	// Corp is the security corporation identifier.
	Corp string `env:"corpName" validate:"required"`

	// Site is the site short name inside the corp.
	Site string `env:"siteShortName" validate:"required"`

	// ServiceID is the CDN service to bind.
	ServiceID string `env:"fastlySID" validate:"required"`
}

// Target returns the binding target described by the profile.
func (p *Profile) Target() engine.Target {
	return engine.Target{Corp: p.Corp, Site: p.Site, ServiceID: p.ServiceID}
}

// Values returns the profile as dotenv key/value pairs.
func (p *Profile) Values() map[string]string {
	return map[string]string{
		KeyEmail:     p.Email,
		KeyToken:     p.Token,
		KeyCDNKey:    p.CDNKey,
		KeyCorp:      p.Corp,
		KeySite:      p.Site,
		KeyServiceID: p.ServiceID,
	}
}

// ProfileFromValues builds a profile from dotenv key/value pairs.
func ProfileFromValues(name string, values map[string]string) *Profile {
	return &Profile{
		Name:      name,
		Email:     strings.TrimSpace(values[KeyEmail]),
		Token:     strings.TrimSpace(values[KeyToken]),
		CDNKey:    strings.TrimSpace(values[KeyCDNKey]),
		Corp:      strings.TrimSpace(values[KeyCorp]),
		Site:      strings.TrimSpace(values[KeySite]),
		ServiceID: strings.TrimSpace(values[KeyServiceID]),
	}
}

// Redacted returns a display copy with secrets masked.
func (p *Profile) Redacted() map[string]string {
	values := p.Values()
	values[KeyToken] = mask(p.Token)
	values[KeyCDNKey] = mask(p.CDNKey)
	return values
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// ValidationError describes one invalid profile or policy value.
type ValidationError struct {
	// Key is the dotenv or YAML key at fault.
	Key string `json:"key"`

	// Message is the human-readable error message.
	Message string `json:"message"`
}

// newValidator returns a validator that reports fields by their file key.
func newValidator(tag string) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var profileValidator = newValidator("env")

// Validate checks that every value is present and that the security token
// is not a copy of the CDN key. The returned error is a precondition error
// listing every offending key.
func (p *Profile) Validate() error {
	err := profileValidator.Struct(p)
	if err == nil {
		return nil
	}
	name := p.Name
	if name == "" {
		name = DefaultProfile
	}
	return toPrecondition("profile "+name+" is incomplete or invalid", err, describeProfileField)
}

func describeProfileField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "nefield":
		return fmt.Sprintf("%s is equal to %s, the wrong key was entered", fe.Field(), KeyCDNKey)
	default:
		return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
	}
}

// toPrecondition converts validator errors into a precondition EngineError.
func toPrecondition(message string, err error, describe func(validator.FieldError) string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return engine.NewPermanentError(message, err).WithCode(engine.ErrCodePrecondition)
	}

	problems := make([]ValidationError, 0, len(verrs))
	keys := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, ValidationError{Key: fe.Field(), Message: describe(fe)})
		keys = append(keys, fe.Field())
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(problems))
	for _, pr := range problems {
		msgs = append(msgs, pr.Message)
	}

	return engine.NewPermanentError(message+": "+strings.Join(msgs, "; "), nil).
		WithCode(engine.ErrCodePrecondition).
		WithDetail("keys", keys).
		WithDetail("problems", problems)
}
