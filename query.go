/*
Package requestkit – query and scan builders.
*/
package requestkit

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Page is one page of query or scan results with its continuation
// cursor.
type Page struct {
	Items            []map[string]types.AttributeValue
	Count            int32
	ScannedCount     int32
	LastEvaluatedKey map[string]types.AttributeValue
}

// QueryBuilder composes a key-condition query.
type QueryBuilder struct {
	core       builderCore
	keyConds   []string
	filters    []string
	projection string
	index      string
	limit      int32
	consistent bool
	forward    *bool
	startKey   map[string]types.AttributeValue
	count      bool
}

// Query starts a query builder.
func Query() *QueryBuilder { return &QueryBuilder{core: newCore()} }

func (b *QueryBuilder) ForTable(name string) *QueryBuilder { b.core.table = name; return b }

func (b *QueryBuilder) WithClient(c DynamoClient) *QueryBuilder { b.core.client = c; return b }

// KeyWhere adds a key-condition term from a positional template.
func (b *QueryBuilder) KeyWhere(template string, args ...any) *QueryBuilder {
	if b.core.err != nil {
		return b
	}
	s, err := b.core.fmtr.Format(template, args...)
	if err != nil {
		b.core.fail(err)
		return b
	}
	b.keyConds = append(b.keyConds, s)
	return b
}

// Where adds a filter term applied after key selection.
func (b *QueryBuilder) Where(template string, args ...any) *QueryBuilder {
	if b.core.err != nil {
		return b
	}
	s, err := b.core.fmtr.Format(template, args...)
	if err != nil {
		b.core.fail(err)
		return b
	}
	b.filters = append(b.filters, s)
	return b
}

func (b *QueryBuilder) Project(expr string) *QueryBuilder { b.projection = expr; return b }

func (b *QueryBuilder) WithValue(name string, v any) *QueryBuilder {
	b.core.value(name, v, "")
	return b
}

func (b *QueryBuilder) WithAttribute(alias, attribute string) *QueryBuilder {
	b.core.alias(alias, attribute)
	return b
}

func (b *QueryBuilder) OnIndex(name string) *QueryBuilder { b.index = name; return b }

// Take caps the number of items evaluated per page.
func (b *QueryBuilder) Take(n int32) *QueryBuilder { b.limit = n; return b }

func (b *QueryBuilder) Consistent(on bool) *QueryBuilder { b.consistent = on; return b }

// Forward sets the sort-key traversal direction.
func (b *QueryBuilder) Forward(on bool) *QueryBuilder { b.forward = &on; return b }

// StartFrom resumes from a previous page's LastEvaluatedKey.
func (b *QueryBuilder) StartFrom(key map[string]types.AttributeValue) *QueryBuilder {
	b.startKey = key
	return b
}

// Count requests only the match count.
func (b *QueryBuilder) Count() *QueryBuilder { b.count = true; return b }

func (b *QueryBuilder) Build() (*ddb.QueryInput, error) {
	if b.core.err != nil {
		return nil, b.core.err
	}
	if b.core.table == "" {
		return nil, NewArgError("missing table name")
	}
	if len(b.keyConds) == 0 {
		return nil, NewArgError("query requires a key condition")
	}
	input := &ddb.QueryInput{
		TableName:                 aws.String(b.core.table),
		KeyConditionExpression:    aws.String(strings.Join(b.keyConds, " and ")),
		ExpressionAttributeNames:  b.core.params.Names(),
		ExpressionAttributeValues: b.core.params.Values(),
	}
	if len(b.filters) > 0 {
		input.FilterExpression = aws.String(joinTerms(b.filters))
	}
	if b.projection != "" {
		input.ProjectionExpression = aws.String(b.projection)
	}
	if b.index != "" {
		input.IndexName = aws.String(b.index)
	}
	if b.limit > 0 {
		input.Limit = aws.Int32(b.limit)
	}
	if b.consistent {
		input.ConsistentRead = aws.Bool(true)
	}
	if b.forward != nil {
		input.ScanIndexForward = b.forward
	}
	if b.startKey != nil {
		input.ExclusiveStartKey = b.startKey
	}
	if b.count {
		input.Select = types.SelectCount
	}
	return input, nil
}

// Execute issues one page of the query.
func (b *QueryBuilder) Execute(ctx context.Context, client ...DynamoClient) (*Page, error) {
	input, err := b.Build()
	if err != nil {
		return nil, err
	}
	c, err := b.core.resolveClient(client)
	if err != nil {
		return nil, err
	}
	out, err := c.Query(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("query", err)
	}
	return &Page{
		Items:            out.Items,
		Count:            out.Count,
		ScannedCount:     out.ScannedCount,
		LastEvaluatedKey: out.LastEvaluatedKey,
	}, nil
}

// ScanBuilder composes a full-table or segmented scan.
type ScanBuilder struct {
	core          builderCore
	filters       []string
	projection    string
	index         string
	limit         int32
	consistent    bool
	startKey      map[string]types.AttributeValue
	segment       *int32
	totalSegments *int32
	count         bool
}

// Scan starts a scan builder.
func Scan() *ScanBuilder { return &ScanBuilder{core: newCore()} }

func (b *ScanBuilder) ForTable(name string) *ScanBuilder { b.core.table = name; return b }

func (b *ScanBuilder) WithClient(c DynamoClient) *ScanBuilder { b.core.client = c; return b }

func (b *ScanBuilder) Where(template string, args ...any) *ScanBuilder {
	if b.core.err != nil {
		return b
	}
	s, err := b.core.fmtr.Format(template, args...)
	if err != nil {
		b.core.fail(err)
		return b
	}
	b.filters = append(b.filters, s)
	return b
}

func (b *ScanBuilder) Project(expr string) *ScanBuilder { b.projection = expr; return b }

func (b *ScanBuilder) WithValue(name string, v any) *ScanBuilder {
	b.core.value(name, v, "")
	return b
}

func (b *ScanBuilder) WithAttribute(alias, attribute string) *ScanBuilder {
	b.core.alias(alias, attribute)
	return b
}

func (b *ScanBuilder) OnIndex(name string) *ScanBuilder { b.index = name; return b }

func (b *ScanBuilder) Take(n int32) *ScanBuilder { b.limit = n; return b }

func (b *ScanBuilder) Consistent(on bool) *ScanBuilder { b.consistent = on; return b }

func (b *ScanBuilder) StartFrom(key map[string]types.AttributeValue) *ScanBuilder {
	b.startKey = key
	return b
}

// Segment selects one segment of a parallel scan.
func (b *ScanBuilder) Segment(segment, total int32) *ScanBuilder {
	b.segment = &segment
	b.totalSegments = &total
	return b
}

func (b *ScanBuilder) Count() *ScanBuilder { b.count = true; return b }

func (b *ScanBuilder) Build() (*ddb.ScanInput, error) {
	if b.core.err != nil {
		return nil, b.core.err
	}
	if b.core.table == "" {
		return nil, NewArgError("missing table name")
	}
	input := &ddb.ScanInput{
		TableName:                 aws.String(b.core.table),
		ExpressionAttributeNames:  b.core.params.Names(),
		ExpressionAttributeValues: b.core.params.Values(),
	}
	if len(b.filters) > 0 {
		input.FilterExpression = aws.String(joinTerms(b.filters))
	}
	if b.projection != "" {
		input.ProjectionExpression = aws.String(b.projection)
	}
	if b.index != "" {
		input.IndexName = aws.String(b.index)
	}
	if b.limit > 0 {
		input.Limit = aws.Int32(b.limit)
	}
	if b.consistent {
		input.ConsistentRead = aws.Bool(true)
	}
	if b.startKey != nil {
		input.ExclusiveStartKey = b.startKey
	}
	if b.segment != nil {
		input.Segment = b.segment
		input.TotalSegments = b.totalSegments
	}
	if b.count {
		input.Select = types.SelectCount
	}
	return input, nil
}

// Execute issues one page of the scan.
func (b *ScanBuilder) Execute(ctx context.Context, client ...DynamoClient) (*Page, error) {
	input, err := b.Build()
	if err != nil {
		return nil, err
	}
	c, err := b.core.resolveClient(client)
	if err != nil {
		return nil, err
	}
	out, err := c.Scan(ctx, input)
	if err != nil {
		return nil, wrapTransportErr("scan", err)
	}
	return &Page{
		Items:            out.Items,
		Count:            out.Count,
		ScannedCount:     out.ScannedCount,
		LastEvaluatedKey: out.LastEvaluatedKey,
	}, nil
}

// joinTerms parenthesizes and ANDs filter terms.
func joinTerms(terms []string) string {
	if len(terms) == 1 {
		return terms[0]
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "(" + t + ")"
	}
	return strings.Join(parts, " and ")
}
