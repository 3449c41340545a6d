/*
Package requestkit – request group composition.

A composer aggregates single-item operations into one multi-item batch
or transaction request and issues exactly one outbound call per
Execute, however many operations were added. Accumulation is
single-owner: Add is not safe for concurrent callers. Each instance
moves from empty through accumulating to composed (or failed); a failed
composer must be discarded.
*/
package requestkit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type groupKind string

const (
	groupBatchWrite    groupKind = "batchWrite"
	groupBatchGet      groupKind = "batchGet"
	groupTransactWrite groupKind = "transactWrite"
	groupTransactGet   groupKind = "transactGet"
)

// maxGroupSize returns the store's per-call operation limit.
func maxGroupSize(kind groupKind) int {
	if kind == groupBatchWrite {
		return 25
	}
	return 100
}

func allowedKinds(kind groupKind) map[OperationKind]bool {
	switch kind {
	case groupBatchWrite:
		return map[OperationKind]bool{OpPut: true, OpDelete: true}
	case groupTransactWrite:
		return map[OperationKind]bool{OpPut: true, OpUpdate: true, OpDelete: true, OpConditionCheck: true}
	default:
		return map[OperationKind]bool{OpGet: true}
	}
}

// RequestGroupComposer aggregates heterogeneous single-item operations
// into one batch or transaction request.
type RequestGroupComposer struct {
	kind groupKind
	ops  []*OperationDescriptor

	inferred DynamoClient
	override DynamoClient

	token      string
	capacity   types.ReturnConsumedCapacity
	metrics    types.ReturnItemCollectionMetrics
	consistent bool

	encryptor FieldEncryptor
	log       Logger

	err      error
	executed bool
}

// ComposerOption configures a composer at construction.
type ComposerOption func(*RequestGroupComposer)

// WithLogger supplies a logger; the default drops trace output.
func WithLogger(l Logger) ComposerOption {
	return func(c *RequestGroupComposer) { c.log = l }
}

// WithEncryptor supplies the field-encryption capability.
func WithEncryptor(e FieldEncryptor) ComposerOption {
	return func(c *RequestGroupComposer) { c.encryptor = e }
}

// WithIdempotencyToken fixes the transaction client request token; by
// default transact-write generates one.
func WithIdempotencyToken(token string) ComposerOption {
	return func(c *RequestGroupComposer) { c.token = token }
}

// WithConsumedCapacity requests capacity-consumption reporting for the
// whole composed request.
func WithConsumedCapacity(mode types.ReturnConsumedCapacity) ComposerOption {
	return func(c *RequestGroupComposer) { c.capacity = mode }
}

// WithItemMetrics requests size-metric reporting for the whole composed
// request.
func WithItemMetrics(mode types.ReturnItemCollectionMetrics) ComposerOption {
	return func(c *RequestGroupComposer) { c.metrics = mode }
}

// WithConsistentRead applies consistent reads to every table in a
// batch get.
func WithConsistentRead() ComposerOption {
	return func(c *RequestGroupComposer) { c.consistent = true }
}

func newComposer(kind groupKind, opts []ComposerOption) *RequestGroupComposer {
	c := &RequestGroupComposer{kind: kind, log: newDefaultLogger()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BatchWrite starts a batch-write composer (puts and deletes, up to 25).
func BatchWrite(opts ...ComposerOption) *RequestGroupComposer {
	return newComposer(groupBatchWrite, opts)
}

// BatchGet starts a batch-get composer (gets, up to 100).
func BatchGet(opts ...ComposerOption) *RequestGroupComposer {
	return newComposer(groupBatchGet, opts)
}

// TransactWrite starts a transact-write composer (puts, updates,
// deletes and condition checks, up to 100, committed in Add order).
func TransactWrite(opts ...ComposerOption) *RequestGroupComposer {
	return newComposer(groupTransactWrite, opts)
}

// TransactGet starts a transact-get composer (gets, up to 100, read in
// Add order).
func TransactGet(opts ...ComposerOption) *RequestGroupComposer {
	return newComposer(groupTransactGet, opts)
}

// Add extracts the operation's descriptor and accumulates it. The first
// operation carrying a client fixes the composer's inferred client; a
// later operation bound to a different client fails the composer
// immediately. Add returns the composer for chaining.
func (c *RequestGroupComposer) Add(op Operation) *RequestGroupComposer {
	if c.err != nil {
		return c
	}
	d, err := op.Descriptor()
	if err != nil {
		c.err = err
		return c
	}
	if !allowedKinds(c.kind)[d.Kind] {
		c.err = NewArgError(fmt.Sprintf("%s operations cannot be added to a %s request", d.Kind, c.kind))
		return c
	}
	if c.kind == groupBatchWrite && d.ConditionExpression != "" {
		c.err = NewArgError("condition expressions are not supported in batch writes")
		return c
	}
	if d.client != nil {
		if c.inferred == nil {
			c.inferred = d.client
		} else if c.inferred != d.client {
			c.err = NewError(
				"all operations in one request group must share a single client instance",
				WithCode(ErrClientMismatch))
			return c
		}
	}
	c.ops = append(c.ops, d)
	logTrace(c.log, "operation accumulated", map[string]any{
		"kind":  string(d.Kind),
		"table": d.TableName,
	})
	return c
}

// WithClient overrides the inferred client for this composition. An
// explicit client passed to Execute takes precedence over this, which
// takes precedence over the inferred one.
func (c *RequestGroupComposer) WithClient(client DynamoClient) *RequestGroupComposer {
	c.override = client
	return c
}

// Len returns the number of accumulated operations.
func (c *RequestGroupComposer) Len() int { return len(c.ops) }

// Err returns the first error latched during accumulation, so a failed
// Add is observable before Execute. A composer with a non-nil Err is
// unusable.
func (c *RequestGroupComposer) Err() error { return c.err }

func (c *RequestGroupComposer) validate() error {
	if c.err != nil {
		return c.err
	}
	if len(c.ops) == 0 {
		return NewArgError("no operations have been added to this request group")
	}
	limit := maxGroupSize(c.kind)
	if len(c.ops) > limit {
		msg := fmt.Sprintf("request group holds %d operations but a %s call accepts at most %d",
			len(c.ops), c.kind, limit)
		if c.kind == groupBatchWrite || c.kind == groupBatchGet {
			msg += fmt.Sprintf("; split the call into multiple requests of at most %d items", limit)
		}
		return NewError(msg, WithCode(ErrCapacity), WithContext(map[string]any{
			"count": len(c.ops),
			"max":   limit,
		}))
	}
	return nil
}

func (c *RequestGroupComposer) resolveClient(explicit []DynamoClient) (DynamoClient, error) {
	if len(explicit) > 0 && explicit[0] != nil {
		return explicit[0], nil
	}
	if c.override != nil {
		return c.override, nil
	}
	if c.inferred != nil {
		return c.inferred, nil
	}
	return nil, NewError(
		"no DynamoDB client available: set one with WithClient or pass one to Execute",
		WithCode(ErrMissingClient))
}

// Execute validates, composes and issues the one outbound call for this
// group, then demultiplexes the response into a positional GroupResponse.
func (c *RequestGroupComposer) Execute(ctx context.Context, client ...DynamoClient) (*GroupResponse, error) {
	if c.executed {
		return nil, NewArgError("request group has already been executed")
	}
	if err := c.validate(); err != nil {
		c.err = err
		return nil, err
	}
	resolved, err := c.resolveClient(client)
	if err != nil {
		c.err = err
		return nil, err
	}
	if err := c.encryptFlagged(ctx); err != nil {
		c.err = err
		return nil, err
	}
	c.executed = true

	logInfo(c.log, "executing request group", map[string]any{
		"kind":       string(c.kind),
		"operations": len(c.ops),
	})

	var resp *GroupResponse
	switch c.kind {
	case groupBatchWrite:
		resp, err = c.executeBatchWrite(ctx, resolved)
	case groupBatchGet:
		resp, err = c.executeBatchGet(ctx, resolved)
	case groupTransactWrite:
		resp, err = c.executeTransactWrite(ctx, resolved)
	default:
		resp, err = c.executeTransactGet(ctx, resolved)
	}
	if err != nil {
		logError(c.log, "request group execution failed", map[string]any{
			"kind":  string(c.kind),
			"error": err.Error(),
		})
		return nil, err
	}
	return resp, nil
}

// ─── encryption pass ─────────────────────────────────────────────────────────

// encryptFlagged replaces every parameter or item attribute flagged as
// requiring encryption with its ciphertext, before the request is
// finalized.
func (c *RequestGroupComposer) encryptFlagged(ctx context.Context) error {
	for _, d := range c.ops {
		if len(d.encrypted) == 0 {
			continue
		}
		if c.encryptor == nil {
			for name, field := range d.encrypted {
				return NewError(fmt.Sprintf(
					"parameter %q requires encryption but no FieldEncryptor is configured (field %q)",
					name, field),
					WithCode(ErrEncryption),
					WithContext(map[string]any{"field": field}))
			}
		}
		for name, field := range d.encrypted {
			av, target := d.AttributeValues[name], d.AttributeValues
			if av == nil {
				av, target = d.Item[name], d.Item
			}
			if av == nil {
				return NewArgError(fmt.Sprintf("flagged parameter %q has no value", name))
			}
			plaintext, err := plaintextBytes(av)
			if err != nil {
				return err
			}
			ciphertext, err := c.encryptor.Encrypt(ctx, plaintext, field, nil)
			if err != nil {
				return NewError(fmt.Sprintf("field encryption failed for %q", field),
					WithCode(ErrEncryption),
					WithCause(err),
					WithContext(map[string]any{"field": field}))
			}
			target[name] = &types.AttributeValueMemberB{Value: ciphertext}
		}
	}
	return nil
}

// plaintextBytes extracts the bytes handed to the encryptor for one
// wire value.
func plaintextBytes(av types.AttributeValue) ([]byte, error) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return []byte(tv.Value), nil
	case *types.AttributeValueMemberN:
		return []byte(tv.Value), nil
	case *types.AttributeValueMemberB:
		return tv.Value, nil
	case *types.AttributeValueMemberBOOL:
		return strconv.AppendBool(nil, tv.Value), nil
	}
	var v any
	if err := attributevalue.Unmarshal(av, &v); err != nil {
		return nil, NewError("cannot extract plaintext from wire value",
			WithCode(ErrEncryption), WithCause(err))
	}
	return json.Marshal(v)
}

// ─── per-kind composition ────────────────────────────────────────────────────

func (c *RequestGroupComposer) executeBatchWrite(ctx context.Context, client DynamoClient) (*GroupResponse, error) {
	requests := map[string][]types.WriteRequest{}
	for _, d := range c.ops {
		var wr types.WriteRequest
		if d.Kind == OpPut {
			wr.PutRequest = &types.PutRequest{Item: d.Item}
		} else {
			wr.DeleteRequest = &types.DeleteRequest{Key: d.Key}
		}
		requests[d.TableName] = append(requests[d.TableName], wr)
	}
	input := &ddb.BatchWriteItemInput{
		RequestItems:                requests,
		ReturnConsumedCapacity:      c.capacity,
		ReturnItemCollectionMetrics: c.metrics,
	}
	out, err := client.BatchWriteItem(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("batchWrite", err)
	}
	return &GroupResponse{
		unprocessedWrites: out.UnprocessedItems,
		consumed:          out.ConsumedCapacity,
	}, nil
}

func (c *RequestGroupComposer) executeBatchGet(ctx context.Context, client DynamoClient) (*GroupResponse, error) {
	requests := map[string]types.KeysAndAttributes{}
	for _, d := range c.ops {
		ka := requests[d.TableName]
		ka.Keys = append(ka.Keys, d.Key)
		if ka.ProjectionExpression == nil && d.ProjectionExpression != "" {
			ka.ProjectionExpression = aws.String(d.ProjectionExpression)
			ka.ExpressionAttributeNames = d.AttributeNames
		}
		if c.consistent {
			ka.ConsistentRead = aws.Bool(true)
		}
		requests[d.TableName] = ka
	}
	input := &ddb.BatchGetItemInput{
		RequestItems:           requests,
		ReturnConsumedCapacity: c.capacity,
	}
	out, err := client.BatchGetItem(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("batchGet", err)
	}

	// The store returns items in arbitrary order; match them back to
	// their original positions by key.
	items := make([]map[string]types.AttributeValue, len(c.ops))
	for i, d := range c.ops {
		for _, item := range out.Responses[d.TableName] {
			if keyMatches(item, d.Key) {
				items[i] = item
				break
			}
		}
	}
	return &GroupResponse{
		items:           items,
		unprocessedKeys: out.UnprocessedKeys,
		consumed:        out.ConsumedCapacity,
	}, nil
}

func (c *RequestGroupComposer) executeTransactWrite(ctx context.Context, client DynamoClient) (*GroupResponse, error) {
	items := make([]types.TransactWriteItem, 0, len(c.ops))
	for _, d := range c.ops {
		items = append(items, transactWriteItem(d))
	}
	token := c.token
	if token == "" {
		token = uuid.NewString()
	}
	input := &ddb.TransactWriteItemsInput{
		TransactItems:               items,
		ClientRequestToken:          aws.String(token),
		ReturnConsumedCapacity:      c.capacity,
		ReturnItemCollectionMetrics: c.metrics,
	}
	out, err := client.TransactWriteItems(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("transactWrite", err)
	}
	return &GroupResponse{consumed: out.ConsumedCapacity}, nil
}

func (c *RequestGroupComposer) executeTransactGet(ctx context.Context, client DynamoClient) (*GroupResponse, error) {
	items := make([]types.TransactGetItem, 0, len(c.ops))
	for _, d := range c.ops {
		get := &types.Get{
			TableName:                aws.String(d.TableName),
			Key:                      d.Key,
			ExpressionAttributeNames: d.AttributeNames,
		}
		if d.ProjectionExpression != "" {
			get.ProjectionExpression = aws.String(d.ProjectionExpression)
		}
		items = append(items, types.TransactGetItem{Get: get})
	}
	input := &ddb.TransactGetItemsInput{
		TransactItems:          items,
		ReturnConsumedCapacity: c.capacity,
	}
	out, err := client.TransactGetItems(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("transactGet", err)
	}

	// Responses arrive in request order; absent items stay nil.
	results := make([]map[string]types.AttributeValue, len(c.ops))
	for i, r := range out.Responses {
		if i < len(results) {
			results[i] = r.Item
		}
	}
	return &GroupResponse{
		items:    results,
		consumed: out.ConsumedCapacity,
	}, nil
}

// transactWriteItem converts a descriptor to its transaction wire shape.
func transactWriteItem(d *OperationDescriptor) types.TransactWriteItem {
	var ti types.TransactWriteItem
	switch d.Kind {
	case OpPut:
		put := &types.Put{
			TableName:                           aws.String(d.TableName),
			Item:                                d.Item,
			ExpressionAttributeNames:            d.AttributeNames,
			ExpressionAttributeValues:           d.AttributeValues,
			ReturnValuesOnConditionCheckFailure: d.ReturnOnConditionFailure,
		}
		if d.ConditionExpression != "" {
			put.ConditionExpression = aws.String(d.ConditionExpression)
		}
		ti.Put = put
	case OpUpdate:
		update := &types.Update{
			TableName:                           aws.String(d.TableName),
			Key:                                 d.Key,
			UpdateExpression:                    aws.String(d.UpdateExpression),
			ExpressionAttributeNames:            d.AttributeNames,
			ExpressionAttributeValues:           d.AttributeValues,
			ReturnValuesOnConditionCheckFailure: d.ReturnOnConditionFailure,
		}
		if d.ConditionExpression != "" {
			update.ConditionExpression = aws.String(d.ConditionExpression)
		}
		ti.Update = update
	case OpDelete:
		del := &types.Delete{
			TableName:                           aws.String(d.TableName),
			Key:                                 d.Key,
			ExpressionAttributeNames:            d.AttributeNames,
			ExpressionAttributeValues:           d.AttributeValues,
			ReturnValuesOnConditionCheckFailure: d.ReturnOnConditionFailure,
		}
		if d.ConditionExpression != "" {
			del.ConditionExpression = aws.String(d.ConditionExpression)
		}
		ti.Delete = del
	case OpConditionCheck:
		ti.ConditionCheck = &types.ConditionCheck{
			TableName:                           aws.String(d.TableName),
			Key:                                 d.Key,
			ConditionExpression:                 aws.String(d.ConditionExpression),
			ExpressionAttributeNames:            d.AttributeNames,
			ExpressionAttributeValues:           d.AttributeValues,
			ReturnValuesOnConditionCheckFailure: d.ReturnOnConditionFailure,
		}
	}
	return ti
}

// keyMatches reports whether item carries exactly the given key values.
func keyMatches(item, key map[string]types.AttributeValue) bool {
	for name, kv := range key {
		if !avEqual(item[name], kv) {
			return false
		}
	}
	return true
}

// avEqual compares key-eligible wire values (S, N, B).
func avEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && string(av.Value) == string(bv.Value)
	}
	return false
}
