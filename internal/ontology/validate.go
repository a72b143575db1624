package ontology

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/persistorai/relgraph/internal/models"
)

// ValidationError is one problem found in a mapping document.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements error.
func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

// ValidationErrors aggregates every problem of a mapping. It matches
// models.ErrInvalidMapping under errors.Is.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error implements error.
func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}

	return fmt.Sprintf("%s: %s", models.ErrInvalidMapping, strings.Join(msgs, "; "))
}

// Is reports whether target is models.ErrInvalidMapping.
func (e *ValidationErrors) Is(target error) bool {
	return target == models.ErrInvalidMapping
}

var (
	tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	// Key types are interpolated into casts, so only plain type names pass.
	keyTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*( [a-z][a-z0-9_]*)?(\(\d+(,\d+)?\))?$`)
)

var numericTypes = map[string]bool{
	"int": true, "integer": true, "int2": true, "int4": true, "int8": true,
	"smallint": true, "bigint": true, "numeric": true, "decimal": true,
	"real": true, "float": true, "float4": true, "float8": true,
	"double": true, "double precision": true, "money": true,
}

// mappingValidate checks field presence; nested structs are validated along
// with their parent.
var mappingValidate *validator.Validate

func init() {
	mappingValidate = validator.New()

	_ = mappingValidate.RegisterValidation("numeric_type", func(fl validator.FieldLevel) bool {
		return numericTypes[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
	})
}

type collector struct {
	errs []ValidationError
}

func (c *collector) add(path, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) structErrs(path string, v any) {
	err := mappingValidate.Struct(v)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.add(path, "%v", err)
		return
	}

	for _, fe := range fieldErrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}

		c.add(path+"."+yamlPath(ns), "failed %q check", fe.Tag())
	}
}

// ident rejects non-identifiers. Empty names are left to the required checks.
func (c *collector) ident(path, s string) {
	if s != "" && !models.IsColumnName(s) {
		c.add(path, "invalid column name %q", s)
	}
}

// validate checks a document and resolves its internal references.
// Resolution results are stored on the relationships only when the whole
// document is valid.
func validate(doc *Document) []ValidationError {
	c := &collector{}
	c.structErrs("mapping", doc)

	for _, name := range sortedKeys(doc.Entities) {
		e := doc.Entities[name]
		path := "entities." + name

		if e == nil {
			c.add(path, "empty entity")
			continue
		}

		validateEntity(c, path, e)
	}

	type resolved struct {
		rel    *Relationship
		ops    OpSet
		domain *Entity
		target Target
	}

	var out []resolved

	for _, name := range sortedKeys(doc.Relationships) {
		r := doc.Relationships[name]
		path := "relationships." + name

		if r == nil {
			c.add(path, "empty relationship")
			continue
		}

		ops, domain, target := validateRelationship(c, path, r, doc.Entities)
		out = append(out, resolved{rel: r, ops: ops, domain: domain, target: target})
	}

	if len(c.errs) > 0 {
		return c.errs
	}

	for _, res := range out {
		res.rel.ops = res.ops
		res.rel.domain = res.domain
		res.rel.target = res.target
	}

	return nil
}

func validateEntity(c *collector, path string, e *Entity) {
	c.structErrs(path, e)

	if e.Table != "" && !tablePattern.MatchString(e.Table) {
		c.add(path+".table", "invalid table name %q", e.Table)
	}

	for i, col := range e.PrimaryKey {
		c.ident(fmt.Sprintf("%s.primary_key[%d]", path, i), col)
	}

	if len(e.KeyTypes) > 0 && len(e.KeyTypes) != len(e.PrimaryKey) {
		c.add(path+".key_types", "has %d types for %d key columns", len(e.KeyTypes), len(e.PrimaryKey))
	}

	for i, t := range e.KeyTypes {
		if !keyTypePattern.MatchString(strings.ToLower(t)) {
			c.add(fmt.Sprintf("%s.key_types[%d]", path, i), "unsupported key type %q", t)
		}
	}

	for i, col := range e.Identifier {
		c.ident(fmt.Sprintf("%s.identifier[%d]", path, i), col)
	}

	if e.SoftDelete != nil {
		c.ident(path+".soft_delete.column", e.SoftDelete.Column)
	}
}

func validateRelationship(c *collector, path string, r *Relationship, entities map[string]*Entity) (OpSet, *Entity, Target) {
	c.structErrs(path, r)

	if r.Table != "" && !tablePattern.MatchString(r.Table) {
		c.add(path+".table", "invalid table name %q", r.Table)
	}

	var ops OpSet

	for i, raw := range r.Operations {
		cat, err := ParseOpCategory(raw)
		if err != nil {
			c.add(fmt.Sprintf("%s.operations[%d]", path, i), "%v", err)
			continue
		}

		ops |= OpSet(cat)
	}

	domain := endpointEntity(c, path+".from", r.From, entities)

	var target Target

	if r.Discriminator != nil {
		target = polymorphicTarget(c, path, r, entities)
	} else if e := endpointEntity(c, path+".to", r.To, entities); e != nil {
		target = SingleTarget{Entity: e}
	}

	weights := make(map[string]bool, len(r.Weights))

	for i, w := range r.Weights {
		wp := fmt.Sprintf("%s.weights[%d]", path, i)
		if weights[w.Name] {
			c.add(wp, "duplicate weight %q", w.Name)
		}

		weights[w.Name] = true

		c.ident(wp+".column", w.ColumnName())
	}

	for i, a := range r.Attributes {
		c.ident(fmt.Sprintf("%s.attributes[%d]", path, i), a)
	}

	if r.Temporal != nil {
		c.ident(path+".temporal.valid_from", r.Temporal.ValidFrom)
		c.ident(path+".temporal.valid_to", r.Temporal.ValidTo)
	} else if ops.Has(OpTemporalTraversal) {
		c.add(path+".temporal", "required by %s", OpTemporalTraversal)
	}

	if r.SoftDelete != nil {
		c.ident(path+".soft_delete.column", r.SoftDelete.Column)
	}

	for i, p := range r.Filters {
		if err := p.Validate(); err != nil {
			c.add(fmt.Sprintf("%s.filters[%d]", path, i), "%v", err)
		}
	}

	selfRef := false
	if st, ok := target.(SingleTarget); ok && domain != nil && st.Entity == domain {
		selfRef = true
	}

	for _, cat := range []OpCategory{OpRecursiveTraversal, OpTemporalTraversal, OpPathAggregation, OpAlgorithm} {
		if ops.Has(cat) && target != nil && domain != nil && !selfRef {
			c.add(path+".operations", "%s needs a self-referential relationship", cat)
		}
	}

	return ops, domain, target
}

func endpointEntity(c *collector, path string, ep Endpoint, entities map[string]*Entity) *Entity {
	if ep.Entity == "" {
		c.add(path+".entity", "failed \"required\" check")
		return nil
	}

	e, ok := entities[ep.Entity]
	if !ok || e == nil {
		c.add(path+".entity", "references unknown entity %q", ep.Entity)
		return nil
	}

	identColumns(c, path, ep.Columns)
	checkArity(c, path, ep.Columns, e)

	return e
}

func identColumns(c *collector, path string, cols []string) {
	for i, col := range cols {
		c.ident(fmt.Sprintf("%s.columns[%d]", path, i), col)
	}
}

func checkArity(c *collector, path string, cols []string, e *Entity) {
	if len(cols) > 0 && len(cols) != len(e.PrimaryKey) {
		c.add(path+".columns", "has %d columns but %s has a %d-column key", len(cols), e.Name, len(e.PrimaryKey))
	}
}

func polymorphicTarget(c *collector, path string, r *Relationship, entities map[string]*Entity) Target {
	d := r.Discriminator
	dp := path + ".discriminator"

	c.ident(dp+".column", d.Column)
	identColumns(c, path+".to", r.To.Columns)

	byTag := make(map[string]*Entity, len(d.Targets))
	tags := make([]string, 0, len(d.Targets))

	for tag := range d.Targets {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	for _, tag := range tags {
		name := d.Targets[tag]

		e, ok := entities[name]
		if !ok || e == nil {
			c.add(dp+".targets."+tag, "references unknown entity %q", name)
			continue
		}

		checkArity(c, path+".to", r.To.Columns, e)
		byTag[tag] = e
	}

	if r.To.Entity != "" {
		if _, ok := entities[r.To.Entity]; !ok {
			c.add(path+".to.entity", "references unknown entity %q", r.To.Entity)
		}
	}

	if len(byTag) == 0 {
		return nil
	}

	return PolymorphicTarget{Column: d.Column, ByTag: byTag}
}

// yamlPath converts a validator namespace (Go field names) to snake_case.
func yamlPath(ns string) string {
	var b strings.Builder

	for i, r := range ns {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && ns[i-1] != '.' && ns[i-1] != '[' {
				b.WriteByte('_')
			}

			b.WriteRune(r - 'A' + 'a')

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}
