/*
Package requestkit – operation descriptors.
*/
package requestkit

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// OperationKind identifies the variant of a single-item operation.
type OperationKind string

const (
	OpGet            OperationKind = "Get"
	OpPut            OperationKind = "Put"
	OpUpdate         OperationKind = "Update"
	OpDelete         OperationKind = "Delete"
	OpConditionCheck OperationKind = "ConditionCheck"
)

// OperationDescriptor is the builder-agnostic extracted shape of one
// single-item operation: the unit a composer aggregates. It is built
// lazily when a composer pulls it from a builder and is immutable for
// the duration of one composition.
type OperationDescriptor struct {
	Kind                 OperationKind
	TableName            string
	Key                  map[string]types.AttributeValue
	Item                 map[string]types.AttributeValue
	UpdateExpression     string
	ConditionExpression  string
	ProjectionExpression string
	AttributeNames       map[string]string
	AttributeValues      map[string]types.AttributeValue

	// ReturnOnConditionFailure requests the old item on a failed
	// condition inside a transaction.
	ReturnOnConditionFailure types.ReturnValuesOnConditionCheckFailure

	// encrypted maps a value placeholder (":x") or item attribute name
	// to the field name handed to the FieldEncryptor.
	encrypted map[string]string
	client    DynamoClient
}

// Operation is satisfied by every single-item builder: it converts the
// builder into the descriptor variant a composer accumulates.
type Operation interface {
	Descriptor() (*OperationDescriptor, error)
}
