// Package event models the external descriptor that triggers a pipeline run
// and decides which jobs it admits into the graph.
package event

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/specialistvlad/gridci/internal/config"
	"gopkg.in/yaml.v3"
)

// Descriptor identifies the external occurrence a run was started for: the
// event type plus the git ref it happened on.
type Descriptor struct {
	Event string `yaml:"event"`
	Ref   string `yaml:"ref"`
}

// FromFile loads a descriptor from a YAML file.
func FromFile(filePath string) (*Descriptor, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse event file %s: %w", filePath, err)
	}
	if d.Event == "" {
		return nil, fmt.Errorf("event file %s does not set 'event'", filePath)
	}
	return &d, nil
}

// Branch strips the refs/heads/ prefix from the ref, if present.
func (d *Descriptor) Branch() string {
	return strings.TrimPrefix(d.Ref, "refs/heads/")
}

// Matches reports whether a job's trigger admits this descriptor. A nil
// trigger, and any empty filter list, matches everything.
func (d *Descriptor) Matches(t *config.Trigger) bool {
	if t == nil {
		return true
	}
	if len(t.Events) > 0 && !contains(t.Events, d.Event) {
		return false
	}
	if len(t.Branches) > 0 && !matchesBranch(t.Branches, d.Branch()) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// matchesBranch checks the branch against each pattern, supporting shell-style
// globs such as "release/*".
func matchesBranch(patterns []string, branch string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, branch); err == nil && ok {
			return true
		}
		if pattern == branch {
			return true
		}
	}
	return false
}
