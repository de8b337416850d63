package query

import (
	"fmt"
	"strconv"

	"procurement-query-pipeline/internal/schema"
)

// Substitution records one field-name normalization applied to the query.
type Substitution struct {
	Path string `json:"path"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Rejection records one clause the validator refused.
type Rejection struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result is the outcome of validating one query document. Pass is true
// exactly when no clause was rejected. Normalized always holds the best
// repaired form of the query, even on failure, so the caller can decide
// whether a partially valid query is still worth running.
type Result struct {
	Pass          bool           `json:"pass"`
	Substitutions []Substitution `json:"substitutions,omitempty"`
	Rejections    []Rejection    `json:"rejections,omitempty"`
	Normalized    *Document      `json:"-"`
}

// Validator checks query documents against the schema registry and
// normalizes field names to the canonical snake_case form. It never returns
// an error and never panics: every problem is reported as a rejected clause.
type Validator struct {
	reg *schema.Registry
}

// NewValidator creates a validator over the given registry.
func NewValidator(reg *schema.Registry) *Validator {
	return &Validator{reg: reg}
}

// walkMode controls how map keys are interpreted during the recursive walk.
type walkMode int

const (
	// modeFilter - keys are schema fields or operators (find filters, $match).
	modeFilter walkMode = iota
	// modeProjection - keys are caller-chosen output names ($group, $project,
	// $addFields); they are snake_cased but never rejected.
	modeProjection
	// modeExpression - values inside accumulators and expression operators;
	// bare keys such as $cond's if/then/else are tolerated.
	modeExpression
	// modeSort - keys may be schema fields or computed names from earlier
	// stages; known fields normalize, unknown names pass through.
	modeSort
)

// Validate walks the document, normalizing field names and type-checking
// leaf values. The input document is not modified.
func (v *Validator) Validate(doc *Document) Result {
	res := Result{Pass: true}
	if doc == nil {
		res.Pass = false
		res.Rejections = append(res.Rejections, Rejection{Path: "", Name: "", Reason: "nil query document"})
		return res
	}

	normalized := &Document{Aggregate: doc.Aggregate}
	if doc.Aggregate {
		normalized.Pipeline = make([]map[string]any, 0, len(doc.Pipeline))
		for i, stage := range doc.Pipeline {
			path := fmt.Sprintf("pipeline[%d]", i)
			normalized.Pipeline = append(normalized.Pipeline, v.walkStage(path, stage, &res))
		}
	} else {
		normalized.Filter = v.walkMap("", doc.Filter, modeFilter, &res)
	}

	res.Normalized = normalized
	res.Pass = len(res.Rejections) == 0
	return res
}

// walkStage validates a single pipeline stage document.
func (v *Validator) walkStage(path string, stage map[string]any, res *Result) map[string]any {
	out := make(map[string]any, len(stage))
	for key, value := range stage {
		keyPath := join(path, key)
		if !v.reg.IsPipelineStage(key) {
			res.Rejections = append(res.Rejections, Rejection{
				Path: keyPath, Name: key, Reason: "unknown pipeline stage",
			})
			continue
		}
		switch key {
		case "$match":
			if m, ok := value.(map[string]any); ok {
				out[key] = v.walkMap(keyPath, m, modeFilter, res)
			} else {
				res.Rejections = append(res.Rejections, Rejection{
					Path: keyPath, Name: key, Reason: "$match requires a filter document",
				})
			}
		case "$group", "$project", "$addFields":
			if m, ok := value.(map[string]any); ok {
				out[key] = v.walkMap(keyPath, m, modeProjection, res)
			} else {
				res.Rejections = append(res.Rejections, Rejection{
					Path: keyPath, Name: key, Reason: key + " requires a document",
				})
			}
		case "$sort":
			if m, ok := value.(map[string]any); ok {
				out[key] = v.walkMap(keyPath, m, modeSort, res)
			} else {
				res.Rejections = append(res.Rejections, Rejection{
					Path: keyPath, Name: key, Reason: "$sort requires a document",
				})
			}
		default:
			// $limit, $skip, $count, $unwind, $lookup - walk values for
			// field references but leave structure alone.
			out[key] = v.walkValue(keyPath, value, modeExpression, res)
		}
	}
	return out
}

// walkMap validates the keys and values of one document level.
func (v *Validator) walkMap(path string, m map[string]any, mode walkMode, res *Result) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		keyPath := join(path, key)

		if len(key) > 0 && key[0] == '$' {
			if !v.reg.IsOperator(key) {
				res.Rejections = append(res.Rejections, Rejection{
					Path: keyPath, Name: key, Reason: "unknown operator",
				})
				continue
			}
			out[key] = v.walkValue(keyPath, value, operandMode(mode, key), res)
			continue
		}

		switch mode {
		case modeFilter:
			field, resolved, known := v.reg.Resolve(key)
			if !known {
				res.Rejections = append(res.Rejections, Rejection{
					Path: keyPath, Name: key, Reason: "unknown field",
				})
				continue
			}
			if resolved != key {
				res.Substitutions = append(res.Substitutions, Substitution{Path: keyPath, From: key, To: resolved})
			}
			out[resolved] = v.walkLeaf(join(path, resolved), field, value, res)

		case modeProjection, modeSort:
			resolved := key
			if key != "_id" {
				if _, name, known := v.reg.Resolve(key); known {
					resolved = name
				} else if mode == modeProjection {
					// Output names stay caller-chosen but follow the
					// database's snake_case convention.
					resolved = schema.ToSnakeCase(key)
				}
				if resolved != key {
					res.Substitutions = append(res.Substitutions, Substitution{Path: keyPath, From: key, To: resolved})
				}
			}
			out[resolved] = v.walkValue(join(path, resolved), value, modeExpression, res)

		default: // modeExpression: bare keys like $cond's if/then/else
			out[key] = v.walkValue(keyPath, value, modeExpression, res)
		}
	}
	return out
}

// walkValue validates an arbitrary value, recursing into containers and
// normalizing "$field" references.
func (v *Validator) walkValue(path string, value any, mode walkMode, res *Result) any {
	switch val := value.(type) {
	case map[string]any:
		return v.walkMap(path, val, mode, res)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = v.walkValue(fmt.Sprintf("%s[%d]", path, i), item, mode, res)
		}
		return out
	case string:
		return v.normalizeFieldRef(path, val, res)
	default:
		return value
	}
}

// walkLeaf type-checks a filter value against its field's declared type.
// The value may be a scalar, an operator document ({"$gt": 10000}), or an
// array for membership tests.
func (v *Validator) walkLeaf(path string, field schema.Field, value any, res *Result) any {
	switch val := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for op, operand := range val {
			opPath := join(path, op)
			if len(op) == 0 || op[0] != '$' {
				res.Rejections = append(res.Rejections, Rejection{
					Path: opPath, Name: op, Reason: "expected an operator in field condition",
				})
				continue
			}
			if !v.reg.IsOperator(op) {
				res.Rejections = append(res.Rejections, Rejection{
					Path: opPath, Name: op, Reason: "unknown operator",
				})
				continue
			}
			switch op {
			case "$in", "$nin":
				if arr, ok := operand.([]any); ok {
					coerced := make([]any, len(arr))
					for i, item := range arr {
						coerced[i] = v.coerceScalar(fmt.Sprintf("%s[%d]", opPath, i), field, item, res)
					}
					out[op] = coerced
				} else {
					res.Rejections = append(res.Rejections, Rejection{
						Path: opPath, Name: op, Reason: op + " requires an array",
					})
				}
			case "$exists", "$type", "$regex", "$options":
				out[op] = operand
			case "$not":
				out[op] = v.walkLeaf(opPath, field, operand, res)
			default:
				out[op] = v.coerceScalar(opPath, field, operand, res)
			}
		}
		return out

	case []any:
		coerced := make([]any, len(val))
		for i, item := range val {
			coerced[i] = v.coerceScalar(fmt.Sprintf("%s[%d]", path, i), field, item, res)
		}
		return coerced

	default:
		return v.coerceScalar(path, field, value, res)
	}
}

// coerceScalar checks a scalar against the field type, converting numeric
// strings for number fields where the conversion is lossless.
func (v *Validator) coerceScalar(path string, field schema.Field, value any, res *Result) any {
	switch field.Type {
	case schema.TypeNumber:
		switch n := value.(type) {
		case float64:
			return n
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
			res.Rejections = append(res.Rejections, Rejection{
				Path: path, Name: field.Name,
				Reason: fmt.Sprintf("expected a number for %s, got %q", field.Name, n),
			})
			return value
		default:
			res.Rejections = append(res.Rejections, Rejection{
				Path: path, Name: field.Name,
				Reason: fmt.Sprintf("expected a number for %s, got %T", field.Name, value),
			})
			return value
		}

	case schema.TypeBool:
		if _, ok := value.(bool); !ok {
			res.Rejections = append(res.Rejections, Rejection{
				Path: path, Name: field.Name,
				Reason: fmt.Sprintf("expected a boolean for %s, got %T", field.Name, value),
			})
		}
		return value

	case schema.TypeString, schema.TypeStringArray:
		if _, ok := value.(string); !ok {
			res.Rejections = append(res.Rejections, Rejection{
				Path: path, Name: field.Name,
				Reason: fmt.Sprintf("expected a string for %s, got %T", field.Name, value),
			})
		}
		return value

	default:
		// Date fields accept string forms; the database does the parsing.
		return value
	}
}

// normalizeFieldRef rewrites "$fieldName" value references to the canonical
// field name. Unknown references are kept in snake_case form rather than
// rejected, since they may name computed fields from earlier stages.
func (v *Validator) normalizeFieldRef(path, s string, res *Result) string {
	if len(s) < 2 || s[0] != '$' || s[1] == '$' {
		return s
	}
	name := s[1:]
	if _, resolved, known := v.reg.Resolve(name); known {
		if resolved != name {
			res.Substitutions = append(res.Substitutions, Substitution{Path: path, From: s, To: "$" + resolved})
		}
		return "$" + resolved
	}
	converted := schema.ToSnakeCase(name)
	if converted != name {
		res.Substitutions = append(res.Substitutions, Substitution{Path: path, From: s, To: "$" + converted})
	}
	return "$" + converted
}

// operandMode decides how to walk an operator's operand given the mode its
// parent document was walked in. Only boolean combinators in a filter contain
// filter documents; expression operators such as $expr, $cond, and
// $dateToString carry structural keys (if/then/else, format/date) that must
// not be resolved as schema fields.
func operandMode(mode walkMode, op string) walkMode {
	if mode != modeFilter {
		return modeExpression
	}
	switch op {
	case "$and", "$or", "$nor", "$not":
		return modeFilter
	}
	return modeExpression
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
