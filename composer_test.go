package requestkit

import (
	"fmt"
	"testing"

	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPut(i int) *PutBuilder {
	return Put().ForTable("orders").WithItemValue("pk", fmt.Sprintf("ORDER#%d", i))
}

func testGet(i int) *GetBuilder {
	return Get().ForTable("orders").WithKey("pk", fmt.Sprintf("ORDER#%d", i))
}

func TestBatchWriteComposesOneCall(t *testing.T) {
	mock := &mockClient{}

	c := BatchWrite()
	c.Add(testPut(1))
	c.Add(testPut(2))
	c.Add(DeleteItem().ForTable("archive").WithKey("pk", "OLD#1"))
	require.Equal(t, 3, c.Len())

	resp, err := c.Execute(bg(), mock)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 1, mock.calls)

	reqs := mock.batchWriteIn.RequestItems
	require.Len(t, reqs["orders"], 2)
	require.Len(t, reqs["archive"], 1)
	assert.NotNil(t, reqs["orders"][0].PutRequest)
	assert.NotNil(t, reqs["archive"][0].DeleteRequest)
}

func TestBatchWriteCapacityLimit(t *testing.T) {
	c := BatchWrite()
	for i := range 26 {
		c.Add(testPut(i))
	}

	_, err := c.Execute(bg(), &mockClient{})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCapacity))
	assert.Contains(t, err.Error(), "26")
	assert.Contains(t, err.Error(), "25")
	assert.Contains(t, err.Error(), "split the call into multiple requests")
}

func TestTransactWriteCapacityLimit(t *testing.T) {
	c := TransactWrite()
	for i := range 101 {
		c.Add(testPut(i))
	}

	_, err := c.Execute(bg(), &mockClient{})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCapacity))
	assert.Contains(t, err.Error(), "101")
	assert.Contains(t, err.Error(), "100")
	// transactions cannot be split, so no split hint
	assert.NotContains(t, err.Error(), "split the call")
}

func TestComposerRejectsEmptyGroup(t *testing.T) {
	_, err := BatchWrite().Execute(bg(), &mockClient{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no operations have been added to this request group")
}

func TestComposerRejectsWrongOperationKind(t *testing.T) {
	c := BatchWrite().Add(testGet(1))
	_, err := c.Execute(bg(), &mockClient{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Get operations cannot be added to a batchWrite request")

	c = BatchGet().Add(testPut(1))
	_, err = c.Execute(bg(), &mockClient{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Put operations cannot be added to a batchGet request")
}

func TestBatchWriteRejectsConditions(t *testing.T) {
	c := BatchWrite().Add(testPut(1).Where("attribute_not_exists(pk)"))
	_, err := c.Execute(bg(), &mockClient{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition expressions are not supported in batch writes")
}

func TestComposerClientConsistency(t *testing.T) {
	a, b := &mockClient{}, &mockClient{}

	c := TransactWrite().Add(testPut(1).WithClient(a))
	require.NoError(t, c.Err())

	// the mismatch is observable right after the offending Add
	c.Add(testPut(2).WithClient(b))
	err := c.Err()
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrClientMismatch))
	assert.Contains(t, err.Error(), "must share a single client instance")

	_, execErr := c.Execute(bg())
	require.Equal(t, err, execErr)

	// the same client on every operation is fine
	c = TransactWrite().
		Add(testPut(1).WithClient(a)).
		Add(testPut(2).WithClient(a))
	_, err = c.Execute(bg())
	require.NoError(t, err)
	require.Equal(t, 1, a.calls)
}

func TestComposerClientPrecedence(t *testing.T) {
	inferred, override, explicit := &mockClient{}, &mockClient{}, &mockClient{}

	// inferred from the first bound operation
	_, err := BatchWrite().Add(testPut(1).WithClient(inferred)).Execute(bg())
	require.NoError(t, err)
	require.Equal(t, 1, inferred.calls)

	// WithClient beats the inferred client
	_, err = BatchWrite().
		Add(testPut(1).WithClient(inferred)).
		WithClient(override).
		Execute(bg())
	require.NoError(t, err)
	require.Equal(t, 1, override.calls)

	// an explicit Execute client beats both
	_, err = BatchWrite().
		Add(testPut(1).WithClient(inferred)).
		WithClient(override).
		Execute(bg(), explicit)
	require.NoError(t, err)
	require.Equal(t, 1, explicit.calls)
}

func TestComposerMissingClient(t *testing.T) {
	_, err := BatchWrite().Add(testPut(1)).Execute(bg())
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrMissingClient))
	assert.Contains(t, err.Error(), "set one with WithClient or pass one to Execute")
}

func TestComposerSingleUse(t *testing.T) {
	mock := &mockClient{}
	c := BatchWrite(WithLogger(NewNopLogger())).Add(testPut(1))

	_, err := c.Execute(bg(), mock)
	require.NoError(t, err)

	_, err = c.Execute(bg(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already been executed")
}

func TestTransactWriteComposesInOrder(t *testing.T) {
	mock := &mockClient{}

	c := TransactWrite(WithIdempotencyToken("tok-1")).
		Add(testPut(1)).
		Add(Update().ForTable("orders").WithKey("pk", "ORDER#2").Set("total = {0}", 9)).
		Add(DeleteItem().ForTable("orders").WithKey("pk", "ORDER#3")).
		Add(ConditionCheck().ForTable("orders").WithKey("pk", "ORDER#4").Where("attribute_exists(pk)"))

	_, err := c.Execute(bg(), mock)
	require.NoError(t, err)

	in := mock.transactWriteIn
	require.Len(t, in.TransactItems, 4)
	assert.NotNil(t, in.TransactItems[0].Put)
	assert.NotNil(t, in.TransactItems[1].Update)
	assert.NotNil(t, in.TransactItems[2].Delete)
	assert.NotNil(t, in.TransactItems[3].ConditionCheck)
	assert.Equal(t, "tok-1", *in.ClientRequestToken)

	assert.Equal(t, "set total = :p0", *in.TransactItems[1].Update.UpdateExpression)
	assert.Equal(t, "attribute_exists(pk)", *in.TransactItems[3].ConditionCheck.ConditionExpression)
}

func TestTransactWriteGeneratesToken(t *testing.T) {
	mock := &mockClient{}
	_, err := TransactWrite().Add(testPut(1)).Execute(bg(), mock)
	require.NoError(t, err)
	require.NotNil(t, mock.transactWriteIn.ClientRequestToken)
	assert.NotEmpty(t, *mock.transactWriteIn.ClientRequestToken)
}

func TestBatchGetDemultiplexesByKey(t *testing.T) {
	// the store answers out of order; positions must still line up
	mock := &mockClient{batchGetOut: &ddb.BatchGetItemOutput{
		Responses: map[string][]map[string]types.AttributeValue{
			"orders": {
				{"pk": avS("ORDER#2"), "total": avN("20")},
				{"pk": avS("ORDER#0"), "total": avN("10")},
			},
		},
	}}

	c := BatchGet(WithConsistentRead()).
		Add(testGet(0)).
		Add(testGet(1)). // absent in the store
		Add(testGet(2))

	resp, err := c.Execute(bg(), mock)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Len())

	item0, err := resp.RawItem(0)
	require.NoError(t, err)
	assert.Equal(t, avN("10"), item0["total"])

	item1, err := resp.RawItem(1)
	require.NoError(t, err)
	assert.Nil(t, item1)

	item2, err := resp.RawItem(2)
	require.NoError(t, err)
	assert.Equal(t, avN("20"), item2["total"])

	ka := mock.batchGetIn.RequestItems["orders"]
	require.Len(t, ka.Keys, 3)
	assert.True(t, *ka.ConsistentRead)
}

func TestBatchGetCarriesProjection(t *testing.T) {
	mock := &mockClient{}
	c := BatchGet().
		Add(testGet(0).WithAttribute("#s", "status").Project("#s, total")).
		Add(testGet(1))

	_, err := c.Execute(bg(), mock)
	require.NoError(t, err)

	ka := mock.batchGetIn.RequestItems["orders"]
	require.NotNil(t, ka.ProjectionExpression)
	assert.Equal(t, "#s, total", *ka.ProjectionExpression)
	assert.Equal(t, map[string]string{"#s": "status"}, ka.ExpressionAttributeNames)
}

func TestTransactGetKeepsRequestOrder(t *testing.T) {
	mock := &mockClient{transactGetOut: &ddb.TransactGetItemsOutput{
		Responses: []types.ItemResponse{
			{Item: map[string]types.AttributeValue{"pk": avS("ORDER#0")}},
			{Item: nil},
			{Item: map[string]types.AttributeValue{"pk": avS("ORDER#2")}},
		},
	}}

	resp, err := TransactGet().
		Add(testGet(0)).
		Add(testGet(1)).
		Add(testGet(2)).
		Execute(bg(), mock)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Len())

	item1, err := resp.RawItem(1)
	require.NoError(t, err)
	assert.Nil(t, item1)

	require.Len(t, mock.transactGetIn.TransactItems, 3)
	assert.Equal(t, "orders", *mock.transactGetIn.TransactItems[0].Get.TableName)
}

func TestComposerReportingOptions(t *testing.T) {
	mock := &mockClient{}
	_, err := BatchWrite(
		WithConsumedCapacity(types.ReturnConsumedCapacityTotal),
		WithItemMetrics(types.ReturnItemCollectionMetricsSize),
	).Add(testPut(1)).Execute(bg(), mock)
	require.NoError(t, err)

	assert.Equal(t, types.ReturnConsumedCapacityTotal, mock.batchWriteIn.ReturnConsumedCapacity)
	assert.Equal(t, types.ReturnItemCollectionMetricsSize, mock.batchWriteIn.ReturnItemCollectionMetrics)
}

func TestComposerEncryptionPass(t *testing.T) {
	enc, err := NewAESFieldEncryptor("passw0rd")
	require.NoError(t, err)
	mock := &mockClient{}

	c := TransactWrite(WithEncryptor(enc)).
		Add(Update().
			ForTable("patients").
			WithKey("pk", "P#1").
			Set("ssn = :ssn").
			WithEncryptedValue("ssn", "123-45-6789")).
		Add(Put().
			ForTable("patients").
			WithItemValue("pk", "P#2").
			WithEncryptedValue("insurance", "ACME-99"))

	_, err = c.Execute(bg(), mock)
	require.NoError(t, err)

	// the update parameter was replaced with ciphertext
	av := mock.transactWriteIn.TransactItems[0].Update.ExpressionAttributeValues[":ssn"]
	blob, ok := av.(*types.AttributeValueMemberB)
	require.True(t, ok, "expected a binary wire value, got %T", av)
	plain, err := enc.Decrypt(bg(), blob.Value, "ssn", nil)
	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", string(plain))

	// the put item attribute as well
	av = mock.transactWriteIn.TransactItems[1].Put.Item["insurance"]
	blob, ok = av.(*types.AttributeValueMemberB)
	require.True(t, ok)
	plain, err = enc.Decrypt(bg(), blob.Value, "insurance", nil)
	require.NoError(t, err)
	assert.Equal(t, "ACME-99", string(plain))
}

func TestComposerEncryptionRequiresEncryptor(t *testing.T) {
	c := TransactWrite().
		Add(Update().
			ForTable("patients").
			WithKey("pk", "P#1").
			Set("ssn = :ssn").
			WithEncryptedValue("ssn", "123-45-6789"))

	_, err := c.Execute(bg(), &mockClient{})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrEncryption))
	assert.Contains(t, err.Error(), `":ssn"`)
	assert.Contains(t, err.Error(), "no FieldEncryptor is configured")
}

func TestComposerTransportErrorWrapped(t *testing.T) {
	mock := &mockClient{err: assert.AnError}
	_, err := BatchWrite().Add(testPut(1)).Execute(bg(), mock)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrTransport))
	assert.ErrorIs(t, err, assert.AnError)
}
