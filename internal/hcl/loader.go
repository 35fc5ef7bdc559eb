// Package hcl implements the config.Loader interface for HCL pipeline files.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridci/internal/config"
	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/fsutil"
	"github.com/specialistvlad/gridci/internal/schema"
)

// Loader is the HCL-specific implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load discovers all .hcl files under the given paths, decodes them, and
// merges their job blocks into a single model. Job order follows file
// discovery order, then declaration order within each file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	var hclFiles []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		for _, f := range found {
			if _, dup := seen[f]; !dup {
				hclFiles = append(hclFiles, f)
				seen[f] = struct{}{}
			}
		}
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var jobs []*config.JobDefinition
	names := make(map[string]string)

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.PipelineConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, job := range root.Jobs {
			if prev, dup := names[job.Name]; dup {
				return nil, fmt.Errorf("duplicate job %q in %s (first declared in %s)", job.Name, file, prev)
			}
			names[job.Name] = file

			def, err := l.translateJob(ctx, job)
			if err != nil {
				return nil, fmt.Errorf("in file %s: %w", file, err)
			}
			jobs = append(jobs, def)
		}
	}

	logger.Debug("HCL loading complete.", "jobs", len(jobs))
	return config.NewModel(jobs), nil
}
