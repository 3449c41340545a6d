/*
Package requestkit – parameter generation and registration.
*/
package requestkit

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ParamGenerator issues unique value-placeholder names (":p0", ":p1",
// …) for one request-building session. Instances are independent;
// concurrent callers on one instance never receive the same name.
type ParamGenerator struct {
	n atomic.Int64
}

// Name returns the next generated placeholder name.
func (g *ParamGenerator) Name() string {
	return fmt.Sprintf(":p%d", g.n.Add(1)-1)
}

// Reset restarts the sequence at ":p0".
func (g *ParamGenerator) Reset() {
	g.n.Store(0)
}

// ParamTable holds the expression parameters of one builder: value
// placeholders (":x") mapped to wire values and name aliases ("#x")
// mapped to attribute names. Keys are unique; insertion order is kept
// for diagnostics.
type ParamTable struct {
	values    map[string]types.AttributeValue
	order     []string
	names     map[string]string
	nameOrder []string
	encrypted map[string]string // placeholder → field name
}

// NewParamTable returns an empty table.
func NewParamTable() *ParamTable {
	return &ParamTable{
		values: map[string]types.AttributeValue{},
		names:  map[string]string{},
	}
}

// SetValue registers a value placeholder. Names must start with ":" and
// be unique within the table.
func (t *ParamTable) SetValue(name string, av types.AttributeValue) error {
	if !strings.HasPrefix(name, ":") {
		return NewArgError(fmt.Sprintf("value placeholder %q must start with \":\"", name))
	}
	if _, ok := t.values[name]; ok {
		return NewArgError(fmt.Sprintf("duplicate value placeholder %q", name))
	}
	t.values[name] = av
	t.order = append(t.order, name)
	return nil
}

// SetName registers a name alias ("#x" → attribute name).
func (t *ParamTable) SetName(alias, attribute string) error {
	if !strings.HasPrefix(alias, "#") {
		return NewArgError(fmt.Sprintf("name alias %q must start with \"#\"", alias))
	}
	if _, ok := t.names[alias]; ok {
		return NewArgError(fmt.Sprintf("duplicate name alias %q", alias))
	}
	t.names[alias] = attribute
	t.nameOrder = append(t.nameOrder, alias)
	return nil
}

// MarkEncrypted flags a registered placeholder as requiring field
// encryption before the composed request is finalized.
func (t *ParamTable) MarkEncrypted(name, field string) error {
	if _, ok := t.values[name]; !ok {
		return NewArgError(fmt.Sprintf("unknown value placeholder %q", name))
	}
	if t.encrypted == nil {
		t.encrypted = map[string]string{}
	}
	t.encrypted[name] = field
	return nil
}

// Values returns the value placeholders, or nil when none exist.
func (t *ParamTable) Values() map[string]types.AttributeValue {
	if len(t.values) == 0 {
		return nil
	}
	return t.values
}

// Names returns the name aliases, or nil when none exist.
func (t *ParamTable) Names() map[string]string {
	if len(t.names) == 0 {
		return nil
	}
	return t.names
}

// Len returns the number of registered value placeholders.
func (t *ParamTable) Len() int { return len(t.values) }
