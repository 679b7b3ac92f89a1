// Package profile loads named request definitions from a yaml file so
// repeated invocations of the fetch tool can share them.
package profile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is one named request in the registry file. Headers hold
// "Name: Value" lines; BodyFile, when set, wins over Body.
type Profile struct {
	Name     string   `yaml:"name"`
	Method   string   `yaml:"method"`
	URL      string   `yaml:"url"`
	Headers  []string `yaml:"headers"`
	Body     string   `yaml:"body"`
	BodyFile string   `yaml:"body_file"`
}

type registry struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load reads the profile registry at path.
func Load(path string) ([]Profile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("profiles file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var reg registry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	if len(reg.Profiles) == 0 {
		return nil, errors.New("profiles file contains no profiles entries")
	}

	seen := make(map[string]bool, len(reg.Profiles))
	for i := range reg.Profiles {
		p := sanitize(reg.Profiles[i])
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("profile[%d]: %w", i, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true
		reg.Profiles[i] = p
	}
	return reg.Profiles, nil
}

// Find returns the profile named name.
func Find(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

func sanitize(p Profile) Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	p.URL = strings.TrimSpace(p.URL)
	if p.Method == "" {
		p.Method = "GET"
	}
	return p
}

func validate(p Profile) error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.URL == "" {
		return fmt.Errorf("url is required for profile %q", p.Name)
	}
	if p.Body != "" && p.BodyFile != "" {
		return fmt.Errorf("profile %q sets both body and body_file", p.Name)
	}
	for _, h := range p.Headers {
		if _, _, err := splitHeaderLine(h); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	return nil
}

// HeaderPairs splits the profile's header lines into name/value
// pairs.
func (p Profile) HeaderPairs() [][2]string {
	pairs := make([][2]string, 0, len(p.Headers))
	for _, h := range p.Headers {
		name, value, err := splitHeaderLine(h)
		if err != nil {
			continue // rejected at Load
		}
		pairs = append(pairs, [2]string{name, value})
	}
	return pairs
}

// ResolveBody returns the request body, reading BodyFile when set.
func (p Profile) ResolveBody() ([]byte, error) {
	if p.BodyFile != "" {
		b, err := os.ReadFile(p.BodyFile)
		if err != nil {
			return nil, fmt.Errorf("read body_file for profile %q: %w", p.Name, err)
		}
		return b, nil
	}
	if p.Body == "" {
		return nil, nil
	}
	return []byte(p.Body), nil
}

func splitHeaderLine(line string) (name, value string, err error) {
	name, value, ok := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if !ok || name == "" {
		return "", "", fmt.Errorf("malformed header line %q (want \"Name: Value\")", line)
	}
	return name, value, nil
}
