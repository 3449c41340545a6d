package requestkit

import (
	"context"

	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockClient records every input it receives and replies with canned
// outputs, so tests can assert on the exact composed request.
type mockClient struct {
	getIn           *ddb.GetItemInput
	putIn           *ddb.PutItemInput
	deleteIn        *ddb.DeleteItemInput
	updateIn        *ddb.UpdateItemInput
	queryIn         *ddb.QueryInput
	scanIn          *ddb.ScanInput
	batchGetIn      *ddb.BatchGetItemInput
	batchWriteIn    *ddb.BatchWriteItemInput
	transactGetIn   *ddb.TransactGetItemsInput
	transactWriteIn *ddb.TransactWriteItemsInput

	getOut           *ddb.GetItemOutput
	putOut           *ddb.PutItemOutput
	deleteOut        *ddb.DeleteItemOutput
	updateOut        *ddb.UpdateItemOutput
	queryOut         *ddb.QueryOutput
	scanOut          *ddb.ScanOutput
	batchGetOut      *ddb.BatchGetItemOutput
	batchWriteOut    *ddb.BatchWriteItemOutput
	transactGetOut   *ddb.TransactGetItemsOutput
	transactWriteOut *ddb.TransactWriteItemsOutput

	calls int
	err   error
}

func (m *mockClient) GetItem(_ context.Context, in *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
	m.calls++
	m.getIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.getOut != nil {
		return m.getOut, nil
	}
	return &ddb.GetItemOutput{}, nil
}

func (m *mockClient) PutItem(_ context.Context, in *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
	m.calls++
	m.putIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.putOut != nil {
		return m.putOut, nil
	}
	return &ddb.PutItemOutput{}, nil
}

func (m *mockClient) DeleteItem(_ context.Context, in *ddb.DeleteItemInput, _ ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error) {
	m.calls++
	m.deleteIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.deleteOut != nil {
		return m.deleteOut, nil
	}
	return &ddb.DeleteItemOutput{}, nil
}

func (m *mockClient) UpdateItem(_ context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	m.calls++
	m.updateIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.updateOut != nil {
		return m.updateOut, nil
	}
	return &ddb.UpdateItemOutput{}, nil
}

func (m *mockClient) Query(_ context.Context, in *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	m.calls++
	m.queryIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.queryOut != nil {
		return m.queryOut, nil
	}
	return &ddb.QueryOutput{}, nil
}

func (m *mockClient) Scan(_ context.Context, in *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
	m.calls++
	m.scanIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.scanOut != nil {
		return m.scanOut, nil
	}
	return &ddb.ScanOutput{}, nil
}

func (m *mockClient) BatchGetItem(_ context.Context, in *ddb.BatchGetItemInput, _ ...func(*ddb.Options)) (*ddb.BatchGetItemOutput, error) {
	m.calls++
	m.batchGetIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.batchGetOut != nil {
		return m.batchGetOut, nil
	}
	return &ddb.BatchGetItemOutput{}, nil
}

func (m *mockClient) BatchWriteItem(_ context.Context, in *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	m.calls++
	m.batchWriteIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.batchWriteOut != nil {
		return m.batchWriteOut, nil
	}
	return &ddb.BatchWriteItemOutput{}, nil
}

func (m *mockClient) TransactGetItems(_ context.Context, in *ddb.TransactGetItemsInput, _ ...func(*ddb.Options)) (*ddb.TransactGetItemsOutput, error) {
	m.calls++
	m.transactGetIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.transactGetOut != nil {
		return m.transactGetOut, nil
	}
	return &ddb.TransactGetItemsOutput{}, nil
}

func (m *mockClient) TransactWriteItems(_ context.Context, in *ddb.TransactWriteItemsInput, _ ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error) {
	m.calls++
	m.transactWriteIn = in
	if m.err != nil {
		return nil, m.err
	}
	if m.transactWriteOut != nil {
		return m.transactWriteOut, nil
	}
	return &ddb.TransactWriteItemsOutput{}, nil
}

// ─── attribute helpers ───────────────────────────────────────────────────────

func avS(v string) types.AttributeValue  { return &types.AttributeValueMemberS{Value: v} }
func avN(v string) types.AttributeValue  { return &types.AttributeValueMemberN{Value: v} }
func avB(v []byte) types.AttributeValue  { return &types.AttributeValueMemberB{Value: v} }
func avBool(v bool) types.AttributeValue { return &types.AttributeValueMemberBOOL{Value: v} }

func bg() context.Context { return context.Background() }
