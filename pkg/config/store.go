package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultDirName is the profile directory created under the user's home.
const DefaultDirName = ".edgebind"

// ErrProfileNotFound is returned when the profile file does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// Store reads and writes profiles in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns ~/.edgebind.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// Dir returns the profile directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName maps a profile name to its file name.
// "default" and "" map to ".env"; "x" and "x.env" map to "x.env".
func FileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == DefaultProfile || name == ".env" {
		return ".env"
	}
	return strings.TrimSuffix(name, ".env") + ".env"
}

// profileName is the inverse of FileName.
func profileName(file string) string {
	if file == ".env" {
		return DefaultProfile
	}
	return strings.TrimSuffix(file, ".env")
}

// checkName rejects names that would escape the profile directory.
func checkName(name string) error {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid profile name %q", name)
	}
	return nil
}

// Path returns the file path of a profile.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, FileName(name))
}

// Exists reports whether the profile file exists.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Load reads and validates a profile.
func (s *Store) Load(name string) (*Profile, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultProfile
	}

	path := s.Path(name)
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrProfileNotFound, name, path)
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	p := ProfileFromValues(profileName(FileName(name)), values)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save validates and writes a profile with owner-only permissions.
func (s *Store) Save(p *Profile) (string, error) {
	if err := checkName(p.Name); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}

	content, err := godotenv.Marshal(p.Values())
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	path := s.Path(p.Name)
	if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0600); err != nil {
		return "", fmt.Errorf("failed to restrict profile permissions: %w", err)
	}
	return path, nil
}

// List returns the names of all profiles in the directory, sorted.
// A missing directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".env") {
			continue
		}
		names = append(names, profileName(e.Name()))
	}
	sort.Strings(names)
	return names, nil
}
