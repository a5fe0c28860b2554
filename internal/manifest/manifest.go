// Package manifest loads HCL run manifests. A manifest describes one or
// more named runs, each binding a set of QASM files to execution settings,
// so repeatable batches don't need long command lines.
package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Run is one named batch inside a manifest.
type Run struct {
	Name      string      `hcl:"name,label"`
	Files     []string    `hcl:"files"`
	Shots     *int        `hcl:"shots"`
	Backend   *string     `hcl:"backend"`
	Format    *string     `hcl:"format,optional"`
	SaveJSON  *bool       `hcl:"save_json,optional"`
	Visualize *bool       `hcl:"visualize,optional"`
	Options   *runOptions `hcl:"options,block"`

	// Tags holds the decoded options block, forwarded to the platform as
	// job tags.
	Tags map[string]string
}

// runOptions captures the free-form options block; its attributes become
// job tags.
type runOptions struct {
	Remain hcl.Body `hcl:",remain"`
}

// Manifest is the decoded document.
type Manifest struct {
	Runs []*Run `hcl:"run,block"`
}

// JSONOutput reports whether the run asked for JSON output.
func (r *Run) JSONOutput() bool {
	return r.Format != nil && *r.Format == "json"
}

// Load parses and decodes the manifest at path. File entries are resolved
// relative to the manifest's directory.
func Load(path string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}

	var m Manifest
	if diags := gohcl.DecodeBody(file.Body, nil, &m); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Runs))
	for _, run := range m.Runs {
		if seen[run.Name] {
			return nil, fmt.Errorf("duplicate run block %q in %s", run.Name, path)
		}
		seen[run.Name] = true

		if len(run.Files) == 0 {
			return nil, fmt.Errorf("run %q lists no files", run.Name)
		}
		for i, f := range run.Files {
			if !filepath.IsAbs(f) {
				run.Files[i] = filepath.Join(base, f)
			}
		}
		if run.Format != nil && *run.Format != "text" && *run.Format != "json" {
			return nil, fmt.Errorf("run %q: format must be \"text\" or \"json\", got %q", run.Name, *run.Format)
		}

		tags, err := decodeOptions(run.Options)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", run.Name, err)
		}
		run.Tags = tags
	}
	return &m, nil
}

// decodeOptions flattens the free-form options block into string tags.
// Values are converted through cty so numbers and bools are accepted.
func decodeOptions(opts *runOptions) (map[string]string, error) {
	if opts == nil {
		return nil, nil
	}
	attrs, diags := opts.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid options block: %w", diags)
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("option %q: %w", name, diags)
		}
		strVal, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, fmt.Errorf("option %q is not convertible to a string: %w", name, err)
		}
		tags[name] = strVal.AsString()
	}
	return tags, nil
}
