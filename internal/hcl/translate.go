// This file translates the HCL schema structs into the format-agnostic
// configuration model defined in the config package.

package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridci/internal/config"
	"github.com/specialistvlad/gridci/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// excludeAttr is the one matrix attribute that is not an axis.
const excludeAttr = "exclude"

// translateJob converts an HCL job block into the agnostic model, validating
// the pieces that must hold regardless of syntax.
func (l *Loader) translateJob(ctx context.Context, s *schema.Job) (*config.JobDefinition, error) {
	def := &config.JobDefinition{
		Name:     s.Name,
		Needs:    s.Needs,
		RunsOn:   s.RunsOn,
		FailFast: s.FailFast,
	}

	if s.On != nil {
		def.Trigger = &config.Trigger{
			Events:   s.On.Events,
			Branches: s.On.Branches,
		}
	}

	if s.Matrix != nil {
		matrix, err := l.translateMatrix(s.Matrix.Body)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", s.Name, err)
		}
		def.Matrix = matrix
	}

	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("job %q declares no steps", s.Name)
	}
	for _, step := range s.Steps {
		translated, err := l.translateStep(step)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", s.Name, err)
		}
		def.Steps = append(def.Steps, translated)
	}

	return def, nil
}

// translateStep converts one step block, enforcing that it is either an
// action invocation or a shell command, never both, never neither.
func (l *Loader) translateStep(s *schema.Step) (*config.Step, error) {
	hasRun := s.Run != nil && !exprIsNull(s.Run)
	hasUses := s.Uses != ""

	if hasRun == hasUses {
		return nil, fmt.Errorf("step %q must set exactly one of 'run' or 'uses'", s.Name)
	}
	if s.With != nil && !hasUses {
		return nil, fmt.Errorf("step %q sets 'with' without 'uses'", s.Name)
	}

	step := &config.Step{
		Name: s.Name,
		Uses: s.Uses,
	}
	if hasRun {
		step.Run = s.Run
	}
	if s.With != nil {
		step.With = extractBodyAttributes(s.With.Body)
	}
	return step, nil
}

// translateMatrix reads the matrix block body: every attribute except
// 'exclude' is an axis. Axis declaration order is recovered from source
// positions so expansion order is reproducible.
func (l *Loader) translateMatrix(body hcl.Body) (*config.Matrix, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid matrix block: %w", diags)
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Range.Start, ordered[j].Range.Start
		if ri.Line != rj.Line {
			return ri.Line < rj.Line
		}
		return ri.Column < rj.Column
	})

	matrix := &config.Matrix{}
	for _, attr := range ordered {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("matrix attribute %q: %w", attr.Name, diags)
		}

		if attr.Name == excludeAttr {
			exclude, err := excludeList(val)
			if err != nil {
				return nil, fmt.Errorf("matrix attribute %q: %w", attr.Name, err)
			}
			matrix.Exclude = exclude
			continue
		}

		values, err := stringList(val)
		if err != nil {
			return nil, fmt.Errorf("matrix axis %q: %w", attr.Name, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("matrix axis %q has no values", attr.Name)
		}
		matrix.Axes = append(matrix.Axes, config.Axis{Name: attr.Name, Values: values})
	}

	if len(matrix.Axes) == 0 {
		return nil, fmt.Errorf("matrix block declares no axes")
	}
	return matrix, nil
}

// stringList converts a cty list or tuple value to a string slice.
func stringList(val cty.Value) ([]string, error) {
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		return nil, fmt.Errorf("expected a list, got %s", val.Type().FriendlyName())
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		str, err := convert.Convert(elem, cty.String)
		if err != nil {
			return nil, fmt.Errorf("value is not convertible to string: %w", err)
		}
		out = append(out, str.AsString())
	}
	return out, nil
}

// excludeList converts the 'exclude' value into partial axis assignments.
func excludeList(val cty.Value) ([]map[string]string, error) {
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		return nil, fmt.Errorf("expected a list of objects, got %s", val.Type().FriendlyName())
	}
	var out []map[string]string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if !elem.Type().IsObjectType() && !elem.Type().IsMapType() {
			return nil, fmt.Errorf("exclude entry must be an object, got %s", elem.Type().FriendlyName())
		}
		entry := make(map[string]string)
		for inner := elem.ElementIterator(); inner.Next(); {
			k, v := inner.Element()
			str, err := convert.Convert(v, cty.String)
			if err != nil {
				return nil, fmt.Errorf("exclude value for %q is not convertible to string: %w", k.AsString(), err)
			}
			entry[k.AsString()] = str.AsString()
		}
		out = append(out, entry)
	}
	return out, nil
}

// extractBodyAttributes lifts a block body into a map of named, unevaluated
// expressions.
func extractBodyAttributes(body hcl.Body) map[string]hcl.Expression {
	if body == nil {
		return nil
	}
	attrs, _ := body.JustAttributes()
	if len(attrs) == 0 {
		return nil
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}

// exprIsNull reports whether an optional expression attribute was absent.
// gohcl decodes a missing expression attribute as a literal null.
func exprIsNull(expr hcl.Expression) bool {
	val, diags := expr.Value(nil)
	return !diags.HasErrors() && val.IsNull()
}
