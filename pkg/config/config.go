package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/savvy-web/silk-sync-action/pkg/github"
)

// DesiredConfig is the centrally declared desired state for the fleet: an
// ordered list of label definitions and a sparse set of settings values.
// It is loaded once and immutable for the run.
type DesiredConfig struct {
	Labels   []github.Label  `yaml:"labels"`
	Settings DesiredSettings `yaml:"settings"`
}

// DesiredSettings is a sparse selection of the syncable settings whitelist.
// Nil fields carry no opinion and never appear in a computed delta.
type DesiredSettings struct {
	HasIssues           *bool `yaml:"has_issues,omitempty"`
	HasWiki             *bool `yaml:"has_wiki,omitempty"`
	HasProjects         *bool `yaml:"has_projects,omitempty"`
	HasDiscussions      *bool `yaml:"has_discussions,omitempty"`
	AllowSquashMerge    *bool `yaml:"allow_squash_merge,omitempty"`
	AllowMergeCommit    *bool `yaml:"allow_merge_commit,omitempty"`
	AllowRebaseMerge    *bool `yaml:"allow_rebase_merge,omitempty"`
	DeleteBranchOnMerge *bool `yaml:"delete_branch_on_merge,omitempty"`
	AllowAutoMerge      *bool `yaml:"allow_auto_merge,omitempty"`
}

// labelColorPattern matches the 6-hex-digit color form GitHub stores,
// without a leading '#'.
var labelColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// Validate validates the desired configuration. Two desired labels collapsing
// to the same lowercased name is a configuration error, not something to
// silently drop: label identity is case-insensitive for the whole engine.
func (c *DesiredConfig) Validate() error {
	var errs github.ValidationErrors

	seen := make(map[string]string, len(c.Labels))
	for i, label := range c.Labels {
		field := fmt.Sprintf("labels[%d]", i)

		if label.Name == "" {
			errs.Add(field+".name", "", "label name is required")
			continue
		}
		if len(label.Name) > 50 {
			errs.Add(field+".name", label.Name, "label name must be 50 characters or less")
		}
		if !labelColorPattern.MatchString(label.Color) {
			errs.Add(field+".color", label.Color, "label color must be exactly 6 hex digits without '#'")
		}
		if len(label.Description) > 100 {
			errs.Add(field+".description", label.Description, "label description must be 100 characters or less")
		}

		lower := strings.ToLower(label.Name)
		if prev, ok := seen[lower]; ok {
			errs.Add(field+".name", label.Name,
				fmt.Sprintf("collides with label %q: names are matched case-insensitively", prev))
		}
		seen[lower] = label.Name
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// HasSettings reports whether the configuration carries any settings opinion
func (c *DesiredConfig) HasSettings() bool {
	s := c.Settings
	return s.HasIssues != nil || s.HasWiki != nil || s.HasProjects != nil ||
		s.HasDiscussions != nil || s.AllowSquashMerge != nil ||
		s.AllowMergeCommit != nil || s.AllowRebaseMerge != nil ||
		s.DeleteBranchOnMerge != nil || s.AllowAutoMerge != nil
}

// Load parses a desired configuration document. Unknown keys are rejected so
// a typo in a settings key fails the run instead of silently syncing nothing.
func Load(data []byte) (*DesiredConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg DesiredConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads a desired configuration document from a file
func LoadFromFile(filename string) (*DesiredConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Load(data)
}
