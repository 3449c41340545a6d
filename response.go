/*
Package requestkit – group response demultiplexing.

A GroupResponse exposes the multi-item result by the position each
operation was added at. An absent item is a nil pointer, never an
error; only out-of-range indices fail.
*/
package requestkit

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// GroupResponse wraps the demultiplexed result of one executed request
// group.
type GroupResponse struct {
	items             []map[string]types.AttributeValue
	unprocessedWrites map[string][]types.WriteRequest
	unprocessedKeys   map[string]types.KeysAndAttributes
	consumed          []types.ConsumedCapacity
}

// Len returns the number of positional results.
func (r *GroupResponse) Len() int { return len(r.items) }

// RawItem returns the raw wire item at index, or nil when the item was
// absent. Indices outside [0, Len) fail.
func (r *GroupResponse) RawItem(index int) (map[string]types.AttributeValue, error) {
	if index < 0 || index >= len(r.items) {
		return nil, NewArgError(fmt.Sprintf("index %d out of range [0, %d)", index, len(r.items)))
	}
	return r.items[index], nil
}

// UnprocessedWrites returns write requests the store did not process
// (batch-write only); retrying them is the caller's responsibility.
func (r *GroupResponse) UnprocessedWrites() map[string][]types.WriteRequest {
	return r.unprocessedWrites
}

// UnprocessedKeys returns keys the store did not read (batch-get only).
func (r *GroupResponse) UnprocessedKeys() map[string]types.KeysAndAttributes {
	return r.unprocessedKeys
}

// ConsumedCapacity returns capacity reporting when it was requested.
func (r *GroupResponse) ConsumedCapacity() []types.ConsumedCapacity {
	return r.consumed
}

func decodeItem[T any](item map[string]types.AttributeValue) (*T, error) {
	if item == nil {
		return nil, nil
	}
	out := new(T)
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return nil, NewError(fmt.Sprintf("cannot decode item into %T", out),
			WithCode(ErrArgument), WithCause(err))
	}
	return out, nil
}

// ItemAt decodes the item at index into T. An absent item yields a nil
// pointer.
func ItemAt[T any](r *GroupResponse, index int) (*T, error) {
	raw, err := r.RawItem(index)
	if err != nil {
		return nil, err
	}
	return decodeItem[T](raw)
}

// ItemsAt decodes the items at the given indices, in the caller's
// order.
func ItemsAt[T any](r *GroupResponse, indices ...int) ([]*T, error) {
	out := make([]*T, 0, len(indices))
	for _, i := range indices {
		item, err := ItemAt[T](r, i)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ItemRange decodes the contiguous slice [start, end).
func ItemRange[T any](r *GroupResponse, start, end int) ([]*T, error) {
	if start < 0 || end > len(r.items) || start > end {
		return nil, NewArgError(fmt.Sprintf("range [%d, %d) out of bounds [0, %d)", start, end, len(r.items)))
	}
	out := make([]*T, 0, end-start)
	for i := start; i < end; i++ {
		item, err := decodeItem[T](r.items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *GroupResponse) require(n int) error {
	if len(r.items) < n {
		return NewArgError(fmt.Sprintf("response holds %d item(s), %d required", len(r.items), n))
	}
	return nil
}

// Map1 through Map8 decode the leading positions into statically-typed
// results; each position is independently nullable.

func Map1[T1 any](r *GroupResponse) (*T1, error) {
	if err := r.require(1); err != nil {
		return nil, err
	}
	return decodeItem[T1](r.items[0])
}

func Map2[T1, T2 any](r *GroupResponse) (*T1, *T2, error) {
	if err := r.require(2); err != nil {
		return nil, nil, err
	}
	v1, err := decodeItem[T1](r.items[0])
	if err != nil {
		return nil, nil, err
	}
	v2, err := decodeItem[T2](r.items[1])
	if err != nil {
		return nil, nil, err
	}
	return v1, v2, nil
}

func Map3[T1, T2, T3 any](r *GroupResponse) (*T1, *T2, *T3, error) {
	v1, v2, err := Map2[T1, T2](r)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := r.require(3); err != nil {
		return nil, nil, nil, err
	}
	v3, err := decodeItem[T3](r.items[2])
	if err != nil {
		return nil, nil, nil, err
	}
	return v1, v2, v3, nil
}

func Map4[T1, T2, T3, T4 any](r *GroupResponse) (*T1, *T2, *T3, *T4, error) {
	v1, v2, v3, err := Map3[T1, T2, T3](r)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := r.require(4); err != nil {
		return nil, nil, nil, nil, err
	}
	v4, err := decodeItem[T4](r.items[3])
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return v1, v2, v3, v4, nil
}

func Map5[T1, T2, T3, T4, T5 any](r *GroupResponse) (*T1, *T2, *T3, *T4, *T5, error) {
	v1, v2, v3, v4, err := Map4[T1, T2, T3, T4](r)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	if err := r.require(5); err != nil {
		return nil, nil, nil, nil, nil, err
	}
	v5, err := decodeItem[T5](r.items[4])
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return v1, v2, v3, v4, v5, nil
}

func Map6[T1, T2, T3, T4, T5, T6 any](r *GroupResponse) (*T1, *T2, *T3, *T4, *T5, *T6, error) {
	v1, v2, v3, v4, v5, err := Map5[T1, T2, T3, T4, T5](r)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	if err := r.require(6); err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	v6, err := decodeItem[T6](r.items[5])
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	return v1, v2, v3, v4, v5, v6, nil
}

func Map7[T1, T2, T3, T4, T5, T6, T7 any](r *GroupResponse) (*T1, *T2, *T3, *T4, *T5, *T6, *T7, error) {
	v1, v2, v3, v4, v5, v6, err := Map6[T1, T2, T3, T4, T5, T6](r)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, err
	}
	if err := r.require(7); err != nil {
		return nil, nil, nil, nil, nil, nil, nil, err
	}
	v7, err := decodeItem[T7](r.items[6])
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, err
	}
	return v1, v2, v3, v4, v5, v6, v7, nil
}

func Map8[T1, T2, T3, T4, T5, T6, T7, T8 any](r *GroupResponse) (*T1, *T2, *T3, *T4, *T5, *T6, *T7, *T8, error) {
	v1, v2, v3, v4, v5, v6, v7, err := Map7[T1, T2, T3, T4, T5, T6, T7](r)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, nil, err
	}
	if err := r.require(8); err != nil {
		return nil, nil, nil, nil, nil, nil, nil, nil, err
	}
	v8, err := decodeItem[T8](r.items[7])
	if err != nil {
		return nil, nil, nil, nil, nil, nil, nil, nil, err
	}
	return v1, v2, v3, v4, v5, v6, v7, v8, nil
}
