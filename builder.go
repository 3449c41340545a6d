/*
Package requestkit – single-item operation builders.

Each builder accumulates table name, key, expression strings, attribute
name aliases and parameter values, then either builds the typed SDK
input, executes it directly, or converts itself into an
OperationDescriptor for a composer. Builders are fluent: every setter
returns the builder. The first error latches the builder; a failed
builder must be discarded.
*/
package requestkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// builderCore is the state shared by every single-item builder.
type builderCore struct {
	client     DynamoClient
	table      string
	key        map[string]types.AttributeValue
	gen        *ParamGenerator
	params     *ParamTable
	fmtr       *ExpressionFormatter
	conditions []string
	err        error
}

func newCore() builderCore {
	gen := &ParamGenerator{}
	params := NewParamTable()
	return builderCore{
		key:    map[string]types.AttributeValue{},
		gen:    gen,
		params: params,
		fmtr:   NewExpressionFormatter(gen, params),
	}
}

func (c *builderCore) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *builderCore) setKey(name string, v any) {
	if c.err != nil {
		return
	}
	av, err := ToWire(v)
	if err != nil {
		c.fail(err)
		return
	}
	if av == nil {
		c.fail(NewArgError(fmt.Sprintf("key attribute %q must not be empty", name)))
		return
	}
	c.key[name] = av
}

func (c *builderCore) where(template string, args ...any) {
	if c.err != nil {
		return
	}
	s, err := c.fmtr.Format(template, args...)
	if err != nil {
		c.fail(err)
		return
	}
	c.conditions = append(c.conditions, s)
}

func (c *builderCore) alias(alias, attribute string) {
	if c.err != nil {
		return
	}
	if err := c.params.SetName(alias, attribute); err != nil {
		c.fail(err)
	}
}

func (c *builderCore) value(name string, v any, format string) {
	if c.err != nil {
		return
	}
	av, err := ToWireFormat(v, format)
	if err != nil {
		c.fail(err)
		return
	}
	if av == nil {
		c.fail(NewArgError("empty collections cannot be used as expression values"))
		return
	}
	if err := c.params.SetValue(name, av); err != nil {
		c.fail(err)
	}
}

// conditionExpr joins accumulated conditions, parenthesizing when more
// than one exists.
func (c *builderCore) conditionExpr() string {
	if len(c.conditions) == 0 {
		return ""
	}
	return joinTerms(c.conditions)
}

func (c *builderCore) checkTableAndKey() error {
	if c.err != nil {
		return c.err
	}
	if c.table == "" {
		return NewArgError("missing table name")
	}
	if len(c.key) == 0 {
		return NewArgError("missing key")
	}
	return nil
}

func (c *builderCore) resolveClient(explicit []DynamoClient) (DynamoClient, error) {
	if len(explicit) > 0 && explicit[0] != nil {
		return explicit[0], nil
	}
	if c.client != nil {
		return c.client, nil
	}
	return nil, NewError(
		"no DynamoDB client configured: call WithClient on the builder or pass one to Execute",
		WithCode(ErrMissingClient))
}

func copyAVMap(m map[string]types.AttributeValue) map[string]types.AttributeValue {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ─── Get ─────────────────────────────────────────────────────────────────────

// GetBuilder composes a single-item read.
type GetBuilder struct {
	core       builderCore
	projection string
	consistent bool
}

// Get starts a get-item builder.
func Get() *GetBuilder { return &GetBuilder{core: newCore()} }

func (b *GetBuilder) ForTable(name string) *GetBuilder { b.core.table = name; return b }

func (b *GetBuilder) WithClient(c DynamoClient) *GetBuilder { b.core.client = c; return b }

// WithKey adds one key attribute, converting the native value.
func (b *GetBuilder) WithKey(name string, v any) *GetBuilder {
	b.core.setKey(name, v)
	return b
}

// WithAttribute registers a "#alias" → attribute-name mapping.
func (b *GetBuilder) WithAttribute(alias, attribute string) *GetBuilder {
	b.core.alias(alias, attribute)
	return b
}

// Project sets the projection expression (attribute aliases allowed).
func (b *GetBuilder) Project(expr string) *GetBuilder {
	b.projection = expr
	return b
}

func (b *GetBuilder) Consistent(on bool) *GetBuilder { b.consistent = on; return b }

// Descriptor extracts the immutable operation shape.
func (b *GetBuilder) Descriptor() (*OperationDescriptor, error) {
	if err := b.core.checkTableAndKey(); err != nil {
		return nil, err
	}
	return &OperationDescriptor{
		Kind:                 OpGet,
		TableName:            b.core.table,
		Key:                  copyAVMap(b.core.key),
		ProjectionExpression: b.projection,
		AttributeNames:       copyStringMap(b.core.params.Names()),
		client:               b.core.client,
	}, nil
}

// Build produces the typed SDK input.
func (b *GetBuilder) Build() (*ddb.GetItemInput, error) {
	d, err := b.Descriptor()
	if err != nil {
		return nil, err
	}
	input := &ddb.GetItemInput{
		TableName:                aws.String(d.TableName),
		Key:                      d.Key,
		ExpressionAttributeNames: d.AttributeNames,
	}
	if d.ProjectionExpression != "" {
		input.ProjectionExpression = aws.String(d.ProjectionExpression)
	}
	if b.consistent {
		input.ConsistentRead = aws.Bool(true)
	}
	return input, nil
}

// Execute issues the read and returns the raw item, or nil when absent.
func (b *GetBuilder) Execute(ctx context.Context, client ...DynamoClient) (map[string]types.AttributeValue, error) {
	input, err := b.Build()
	if err != nil {
		return nil, err
	}
	c, err := b.core.resolveClient(client)
	if err != nil {
		return nil, err
	}
	out, err := c.GetItem(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("get", err)
	}
	return out.Item, nil
}

// ─── Put ─────────────────────────────────────────────────────────────────────

// PutBuilder composes a single-item write.
type PutBuilder struct {
	core      builderCore
	item      map[string]types.AttributeValue
	encrypted map[string]string
	returnOld bool
	condFail  types.ReturnValuesOnConditionCheckFailure
}

// Put starts a put-item builder.
func Put() *PutBuilder {
	return &PutBuilder{core: newCore(), item: map[string]types.AttributeValue{}}
}

func (b *PutBuilder) ForTable(name string) *PutBuilder { b.core.table = name; return b }

func (b *PutBuilder) WithClient(c DynamoClient) *PutBuilder { b.core.client = c; return b }

// WithItem replaces the item wholesale: a map of native values or a
// struct marshalled through the SDK.
func (b *PutBuilder) WithItem(v any) *PutBuilder {
	if b.core.err != nil {
		return b
	}
	switch tv := v.(type) {
	case map[string]types.AttributeValue:
		b.item = tv
	case map[string]any:
		m, err := wireItem(tv)
		if err != nil {
			b.core.fail(err)
			return b
		}
		b.item = m
	default:
		m, err := attributevalue.MarshalMap(v)
		if err != nil {
			b.core.fail(NewError(fmt.Sprintf("cannot marshal %T as an item", v),
				WithCode(ErrArgument), WithCause(err)))
			return b
		}
		b.item = m
	}
	return b
}

// WithItemValue sets one item attribute. Values converting to absence
// are omitted.
func (b *PutBuilder) WithItemValue(name string, v any) *PutBuilder {
	if b.core.err != nil {
		return b
	}
	av, err := ToWire(v)
	if err != nil {
		b.core.fail(err)
		return b
	}
	if av != nil {
		b.item[name] = av
	}
	return b
}

// WithEncryptedValue sets one item attribute and flags it for field
// encryption: a composer replaces it with ciphertext before executing.
func (b *PutBuilder) WithEncryptedValue(field string, v any) *PutBuilder {
	b.WithItemValue(field, v)
	if b.core.err != nil {
		return b
	}
	if b.encrypted == nil {
		b.encrypted = map[string]string{}
	}
	b.encrypted[field] = field
	return b
}

// Where adds a condition expression from a positional template.
func (b *PutBuilder) Where(template string, args ...any) *PutBuilder {
	b.core.where(template, args...)
	return b
}

// WithValue registers a caller-named expression parameter (":x").
func (b *PutBuilder) WithValue(name string, v any) *PutBuilder {
	b.core.value(name, v, "")
	return b
}

func (b *PutBuilder) WithAttribute(alias, attribute string) *PutBuilder {
	b.core.alias(alias, attribute)
	return b
}

// ReturnOld requests the previous item on success.
func (b *PutBuilder) ReturnOld() *PutBuilder { b.returnOld = true; return b }

// OnFailureReturnOld requests the old item when a transaction condition
// fails.
func (b *PutBuilder) OnFailureReturnOld() *PutBuilder {
	b.condFail = types.ReturnValuesOnConditionCheckFailureAllOld
	return b
}

func (b *PutBuilder) Descriptor() (*OperationDescriptor, error) {
	if b.core.err != nil {
		return nil, b.core.err
	}
	if b.core.table == "" {
		return nil, NewArgError("missing table name")
	}
	if len(b.item) == 0 {
		return nil, NewArgError("missing item")
	}
	return &OperationDescriptor{
		Kind:                     OpPut,
		TableName:                b.core.table,
		Item:                     copyAVMap(b.item),
		ConditionExpression:      b.core.conditionExpr(),
		AttributeNames:           copyStringMap(b.core.params.Names()),
		AttributeValues:          copyAVMap(b.core.params.Values()),
		ReturnOnConditionFailure: b.condFail,
		encrypted:                copyStringMap(b.encrypted),
		client:                   b.core.client,
	}, nil
}

func (b *PutBuilder) Build() (*ddb.PutItemInput, error) {
	d, err := b.Descriptor()
	if err != nil {
		return nil, err
	}
	input := &ddb.PutItemInput{
		TableName:                 aws.String(d.TableName),
		Item:                      d.Item,
		ExpressionAttributeNames:  d.AttributeNames,
		ExpressionAttributeValues: d.AttributeValues,
	}
	if d.ConditionExpression != "" {
		input.ConditionExpression = aws.String(d.ConditionExpression)
	}
	if b.returnOld {
		input.ReturnValues = types.ReturnValueAllOld
	}
	return input, nil
}

// Execute issues the write and returns the old attributes, if requested.
func (b *PutBuilder) Execute(ctx context.Context, client ...DynamoClient) (map[string]types.AttributeValue, error) {
	input, err := b.Build()
	if err != nil {
		return nil, err
	}
	c, err := b.core.resolveClient(client)
	if err != nil {
		return nil, err
	}
	out, err := c.PutItem(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("put", err)
	}
	return out.Attributes, nil
}

// ─── Update ──────────────────────────────────────────────────────────────────

// UpdateBuilder composes a single-item update.
type UpdateBuilder struct {
	core      builderCore
	sets      []string
	adds      []string
	removes   []string
	deletes   []string
	encrypted map[string]string
	returns   types.ReturnValue
	condFail  types.ReturnValuesOnConditionCheckFailure
}

// Update starts an update-item builder.
func Update() *UpdateBuilder { return &UpdateBuilder{core: newCore()} }

func (b *UpdateBuilder) ForTable(name string) *UpdateBuilder { b.core.table = name; return b }

func (b *UpdateBuilder) WithClient(c DynamoClient) *UpdateBuilder { b.core.client = c; return b }

func (b *UpdateBuilder) WithKey(name string, v any) *UpdateBuilder {
	b.core.setKey(name, v)
	return b
}

func (b *UpdateBuilder) clause(dst *[]string, template string, args []any) *UpdateBuilder {
	if b.core.err != nil {
		return b
	}
	s, err := b.core.fmtr.Format(template, args...)
	if err != nil {
		b.core.fail(err)
		return b
	}
	*dst = append(*dst, s)
	return b
}

// Set appends a SET action from a positional template.
func (b *UpdateBuilder) Set(template string, args ...any) *UpdateBuilder {
	return b.clause(&b.sets, template, args)
}

// Add appends an ADD action.
func (b *UpdateBuilder) Add(template string, args ...any) *UpdateBuilder {
	return b.clause(&b.adds, template, args)
}

// Remove appends a REMOVE action (an attribute path, no values).
func (b *UpdateBuilder) Remove(path string) *UpdateBuilder {
	b.removes = append(b.removes, path)
	return b
}

// Delete appends a DELETE action (set-element removal).
func (b *UpdateBuilder) Delete(template string, args ...any) *UpdateBuilder {
	return b.clause(&b.deletes, template, args)
}

func (b *UpdateBuilder) Where(template string, args ...any) *UpdateBuilder {
	b.core.where(template, args...)
	return b
}

func (b *UpdateBuilder) WithValue(name string, v any) *UpdateBuilder {
	b.core.value(name, v, "")
	return b
}

// WithFormattedValue registers a caller-named parameter converted with
// a format specifier.
func (b *UpdateBuilder) WithFormattedValue(name string, v any, format string) *UpdateBuilder {
	b.core.value(name, v, format)
	return b
}

// WithEncryptedValue registers the parameter ":field" and flags it for
// field encryption; reference it from a Set clause.
func (b *UpdateBuilder) WithEncryptedValue(field string, v any) *UpdateBuilder {
	name := ":" + field
	b.core.value(name, v, "")
	if b.core.err != nil {
		return b
	}
	if err := b.core.params.MarkEncrypted(name, field); err != nil {
		b.core.fail(err)
		return b
	}
	if b.encrypted == nil {
		b.encrypted = map[string]string{}
	}
	b.encrypted[name] = field
	return b
}

func (b *UpdateBuilder) WithAttribute(alias, attribute string) *UpdateBuilder {
	b.core.alias(alias, attribute)
	return b
}

func (b *UpdateBuilder) ReturnNew() *UpdateBuilder {
	b.returns = types.ReturnValueAllNew
	return b
}

func (b *UpdateBuilder) ReturnOld() *UpdateBuilder {
	b.returns = types.ReturnValueAllOld
	return b
}

func (b *UpdateBuilder) OnFailureReturnOld() *UpdateBuilder {
	b.condFail = types.ReturnValuesOnConditionCheckFailureAllOld
	return b
}

// updateExpression assembles the clause groups in the canonical order.
func (b *UpdateBuilder) updateExpression() string {
	var parts []string
	if len(b.adds) > 0 {
		parts = append(parts, "add "+strings.Join(b.adds, ", "))
	}
	if len(b.deletes) > 0 {
		parts = append(parts, "delete "+strings.Join(b.deletes, ", "))
	}
	if len(b.removes) > 0 {
		parts = append(parts, "remove "+strings.Join(b.removes, ", "))
	}
	if len(b.sets) > 0 {
		parts = append(parts, "set "+strings.Join(b.sets, ", "))
	}
	return strings.Join(parts, " ")
}

func (b *UpdateBuilder) Descriptor() (*OperationDescriptor, error) {
	if err := b.core.checkTableAndKey(); err != nil {
		return nil, err
	}
	expr := b.updateExpression()
	if expr == "" {
		return nil, NewArgError("update requires at least one set/add/remove/delete action")
	}
	return &OperationDescriptor{
		Kind:                     OpUpdate,
		TableName:                b.core.table,
		Key:                      copyAVMap(b.core.key),
		UpdateExpression:         expr,
		ConditionExpression:      b.core.conditionExpr(),
		AttributeNames:           copyStringMap(b.core.params.Names()),
		AttributeValues:          copyAVMap(b.core.params.Values()),
		ReturnOnConditionFailure: b.condFail,
		encrypted:                copyStringMap(b.encrypted),
		client:                   b.core.client,
	}, nil
}

func (b *UpdateBuilder) Build() (*ddb.UpdateItemInput, error) {
	d, err := b.Descriptor()
	if err != nil {
		return nil, err
	}
	input := &ddb.UpdateItemInput{
		TableName:                 aws.String(d.TableName),
		Key:                       d.Key,
		UpdateExpression:          aws.String(d.UpdateExpression),
		ExpressionAttributeNames:  d.AttributeNames,
		ExpressionAttributeValues: d.AttributeValues,
	}
	if d.ConditionExpression != "" {
		input.ConditionExpression = aws.String(d.ConditionExpression)
	}
	if b.returns != "" {
		input.ReturnValues = b.returns
	}
	return input, nil
}

func (b *UpdateBuilder) Execute(ctx context.Context, client ...DynamoClient) (map[string]types.AttributeValue, error) {
	input, err := b.Build()
	if err != nil {
		return nil, err
	}
	c, err := b.core.resolveClient(client)
	if err != nil {
		return nil, err
	}
	out, err := c.UpdateItem(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("update", err)
	}
	return out.Attributes, nil
}

// ─── Delete ──────────────────────────────────────────────────────────────────

// DeleteBuilder composes a single-item delete.
type DeleteBuilder struct {
	core      builderCore
	returnOld bool
	condFail  types.ReturnValuesOnConditionCheckFailure
}

// DeleteItem starts a delete-item builder.
func DeleteItem() *DeleteBuilder { return &DeleteBuilder{core: newCore()} }

func (b *DeleteBuilder) ForTable(name string) *DeleteBuilder { b.core.table = name; return b }

func (b *DeleteBuilder) WithClient(c DynamoClient) *DeleteBuilder { b.core.client = c; return b }

func (b *DeleteBuilder) WithKey(name string, v any) *DeleteBuilder {
	b.core.setKey(name, v)
	return b
}

func (b *DeleteBuilder) Where(template string, args ...any) *DeleteBuilder {
	b.core.where(template, args...)
	return b
}

func (b *DeleteBuilder) WithValue(name string, v any) *DeleteBuilder {
	b.core.value(name, v, "")
	return b
}

func (b *DeleteBuilder) WithAttribute(alias, attribute string) *DeleteBuilder {
	b.core.alias(alias, attribute)
	return b
}

func (b *DeleteBuilder) ReturnOld() *DeleteBuilder { b.returnOld = true; return b }

func (b *DeleteBuilder) OnFailureReturnOld() *DeleteBuilder {
	b.condFail = types.ReturnValuesOnConditionCheckFailureAllOld
	return b
}

func (b *DeleteBuilder) Descriptor() (*OperationDescriptor, error) {
	if err := b.core.checkTableAndKey(); err != nil {
		return nil, err
	}
	return &OperationDescriptor{
		Kind:                     OpDelete,
		TableName:                b.core.table,
		Key:                      copyAVMap(b.core.key),
		ConditionExpression:      b.core.conditionExpr(),
		AttributeNames:           copyStringMap(b.core.params.Names()),
		AttributeValues:          copyAVMap(b.core.params.Values()),
		ReturnOnConditionFailure: b.condFail,
		client:                   b.core.client,
	}, nil
}

func (b *DeleteBuilder) Build() (*ddb.DeleteItemInput, error) {
	d, err := b.Descriptor()
	if err != nil {
		return nil, err
	}
	input := &ddb.DeleteItemInput{
		TableName:                 aws.String(d.TableName),
		Key:                       d.Key,
		ExpressionAttributeNames:  d.AttributeNames,
		ExpressionAttributeValues: d.AttributeValues,
	}
	if d.ConditionExpression != "" {
		input.ConditionExpression = aws.String(d.ConditionExpression)
	}
	if b.returnOld {
		input.ReturnValues = types.ReturnValueAllOld
	}
	return input, nil
}

func (b *DeleteBuilder) Execute(ctx context.Context, client ...DynamoClient) (map[string]types.AttributeValue, error) {
	input, err := b.Build()
	if err != nil {
		return nil, err
	}
	c, err := b.core.resolveClient(client)
	if err != nil {
		return nil, err
	}
	out, err := c.DeleteItem(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("delete", err)
	}
	return out.Attributes, nil
}

// ─── ConditionCheck ──────────────────────────────────────────────────────────

// ConditionCheckBuilder composes a transaction condition check.
type ConditionCheckBuilder struct {
	core     builderCore
	condFail types.ReturnValuesOnConditionCheckFailure
}

// ConditionCheck starts a condition-check builder (transactions only).
func ConditionCheck() *ConditionCheckBuilder {
	return &ConditionCheckBuilder{core: newCore()}
}

func (b *ConditionCheckBuilder) ForTable(name string) *ConditionCheckBuilder {
	b.core.table = name
	return b
}

func (b *ConditionCheckBuilder) WithClient(c DynamoClient) *ConditionCheckBuilder {
	b.core.client = c
	return b
}

func (b *ConditionCheckBuilder) WithKey(name string, v any) *ConditionCheckBuilder {
	b.core.setKey(name, v)
	return b
}

func (b *ConditionCheckBuilder) Where(template string, args ...any) *ConditionCheckBuilder {
	b.core.where(template, args...)
	return b
}

func (b *ConditionCheckBuilder) WithValue(name string, v any) *ConditionCheckBuilder {
	b.core.value(name, v, "")
	return b
}

func (b *ConditionCheckBuilder) WithAttribute(alias, attribute string) *ConditionCheckBuilder {
	b.core.alias(alias, attribute)
	return b
}

func (b *ConditionCheckBuilder) OnFailureReturnOld() *ConditionCheckBuilder {
	b.condFail = types.ReturnValuesOnConditionCheckFailureAllOld
	return b
}

func (b *ConditionCheckBuilder) Descriptor() (*OperationDescriptor, error) {
	if err := b.core.checkTableAndKey(); err != nil {
		return nil, err
	}
	cond := b.core.conditionExpr()
	if cond == "" {
		return nil, NewArgError("condition check requires a condition expression")
	}
	return &OperationDescriptor{
		Kind:                     OpConditionCheck,
		TableName:                b.core.table,
		Key:                      copyAVMap(b.core.key),
		ConditionExpression:      cond,
		AttributeNames:           copyStringMap(b.core.params.Names()),
		AttributeValues:          copyAVMap(b.core.params.Values()),
		ReturnOnConditionFailure: b.condFail,
		client:                   b.core.client,
	}, nil
}
