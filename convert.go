/*
Package requestkit – native value ⇄ wire value conversion.

The wire model is the DynamoDB tagged union (types.AttributeValue).
Conversion is a closed dispatch over the supported native categories;
anything outside it falls back to attributevalue.Marshal or is rejected
with an explicit error. Empty collections always convert to absence
(a nil AttributeValue) because the store rejects empty collection
attributes – callers must omit the key rather than send an empty tag.
*/
package requestkit

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// StringSet, NumberSet, IntSet and BinarySet mark a slice as a set
// attribute (SS / NS / BS) rather than a list.
type StringSet []string

// NumberSet is a set of floating-point numbers, rendered as NS.
type NumberSet []float64

// IntSet is a set of integers, rendered as NS.
type IntSet []int64

// BinarySet is a set of byte slices, rendered as BS.
type BinarySet [][]byte

// ToWire converts a native value to its wire representation. A nil
// result with nil error means absence: the attribute key must be
// omitted entirely.
func ToWire(v any) (types.AttributeValue, error) {
	return ToWireFormat(v, "")
}

// ToWireFormat converts a native value honoring an optional format
// specifier. Only formattable scalar categories (numbers, timestamps,
// UUIDs) accept one; anything else fails with a FormatError naming the
// type.
//
// A nil *bool converts to NULL, like every other nil pointer. A nil
// numeric pointer keeps its distinct wire quirk: a Number tag with an
// empty payload.
func ToWireFormat(v any, format string) (types.AttributeValue, error) {
	switch tv := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil

	case types.AttributeValue:
		if format != "" {
			return nil, NewFormatError("wire values do not support format strings")
		}
		return tv, nil

	case string:
		if format != "" {
			return nil, NewFormatError("String values do not support format strings")
		}
		return &types.AttributeValueMemberS{Value: tv}, nil
	case *string:
		if format != "" {
			return nil, NewFormatError("String values do not support format strings")
		}
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return &types.AttributeValueMemberS{Value: *tv}, nil

	case bool:
		if format != "" {
			return nil, NewFormatError("Boolean values do not support format strings")
		}
		return &types.AttributeValueMemberBOOL{Value: tv}, nil
	case *bool:
		if format != "" {
			return nil, NewFormatError("Boolean values do not support format strings")
		}
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return &types.AttributeValueMemberBOOL{Value: *tv}, nil

	case int:
		return wireInt(int64(tv), format)
	case int8:
		return wireInt(int64(tv), format)
	case int16:
		return wireInt(int64(tv), format)
	case int32:
		return wireInt(int64(tv), format)
	case int64:
		return wireInt(tv, format)
	case uint:
		return wireUint(uint64(tv), format)
	case uint8:
		return wireUint(uint64(tv), format)
	case uint16:
		return wireUint(uint64(tv), format)
	case uint32:
		return wireUint(uint64(tv), format)
	case uint64:
		return wireUint(tv, format)
	case float32:
		return wireFloat(float64(tv), format)
	case float64:
		return wireFloat(tv, format)
	case *int:
		if tv == nil {
			return &types.AttributeValueMemberN{Value: ""}, nil
		}
		return wireInt(int64(*tv), format)
	case *int64:
		if tv == nil {
			return &types.AttributeValueMemberN{Value: ""}, nil
		}
		return wireInt(*tv, format)
	case *float64:
		if tv == nil {
			return &types.AttributeValueMemberN{Value: ""}, nil
		}
		return wireFloat(*tv, format)

	case time.Time:
		return &types.AttributeValueMemberS{Value: formatTime(tv, format)}, nil
	case *time.Time:
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return &types.AttributeValueMemberS{Value: formatTime(*tv, format)}, nil

	case uuid.UUID:
		s, err := formatUUID(tv, format)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case *uuid.UUID:
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		s, err := formatUUID(*tv, format)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberS{Value: s}, nil

	case []byte:
		if len(tv) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberB{Value: tv}, nil

	case StringSet:
		if len(tv) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberSS{Value: tv}, nil
	case NumberSet:
		if len(tv) == 0 {
			return nil, nil
		}
		out := make([]string, len(tv))
		for i, n := range tv {
			out[i] = strconv.FormatFloat(n, 'g', -1, 64)
		}
		return &types.AttributeValueMemberNS{Value: out}, nil
	case IntSet:
		if len(tv) == 0 {
			return nil, nil
		}
		out := make([]string, len(tv))
		for i, n := range tv {
			out[i] = strconv.FormatInt(n, 10)
		}
		return &types.AttributeValueMemberNS{Value: out}, nil
	case BinarySet:
		if len(tv) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberBS{Value: tv}, nil

	case map[string]string:
		if len(tv) == 0 {
			return nil, nil
		}
		m := make(map[string]types.AttributeValue, len(tv))
		for k, s := range tv {
			m[k] = &types.AttributeValueMemberS{Value: s}
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case map[string]types.AttributeValue:
		if len(tv) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberM{Value: tv}, nil
	case map[string]any:
		if len(tv) == 0 {
			return nil, nil
		}
		m, err := wireItem(tv)
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			return nil, nil
		}
		return &types.AttributeValueMemberM{Value: m}, nil

	case []any:
		if len(tv) == 0 {
			return nil, nil
		}
		return wireList(tv)
	}

	// symbolic-name category: a Stringer outside the closed set above
	// converts to its member name
	if s, ok := v.(fmt.Stringer); ok {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		if format != "" {
			return nil, NewFormatError(fmt.Sprintf("%T values do not support format strings", v))
		}
		return &types.AttributeValueMemberS{Value: s.String()}, nil
	}

	return wireFallback(v, format)
}

func wireInt(v int64, format string) (types.AttributeValue, error) {
	s, err := formatInt(v, format)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: s}, nil
}

func wireUint(v uint64, format string) (types.AttributeValue, error) {
	s, err := formatUint(v, format)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: s}, nil
}

func wireFloat(v float64, format string) (types.AttributeValue, error) {
	s, err := formatFloat(v, format)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: s}, nil
}

func wireList(vs []any) (types.AttributeValue, error) {
	list := make([]types.AttributeValue, 0, len(vs))
	for _, el := range vs {
		av, err := ToWire(el)
		if err != nil {
			return nil, err
		}
		if av == nil {
			continue
		}
		list = append(list, av)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &types.AttributeValueMemberL{Value: list}, nil
}

// wireFallback handles generic slices, maps and structs via reflection
// and the SDK marshaller, preserving the empty-collection-to-absence
// rule.
func wireFallback(v any, format string) (types.AttributeValue, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return ToWireFormat(rv.Elem().Interface(), format)
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return nil, nil
		}
		vs := make([]any, rv.Len())
		for i := range vs {
			vs[i] = rv.Index(i).Interface()
		}
		return wireList(vs)
	case reflect.Map:
		if rv.Len() == 0 {
			return nil, nil
		}
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]types.AttributeValue, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				av, err := ToWire(iter.Value().Interface())
				if err != nil {
					return nil, err
				}
				if av == nil {
					continue
				}
				m[iter.Key().String()] = av
			}
			if len(m) == 0 {
				return nil, nil
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		}
	}
	if format != "" {
		return nil, NewFormatError(fmt.Sprintf("%T values do not support format strings", v))
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, NewError(fmt.Sprintf("cannot convert %T to a wire value", v),
			WithCode(ErrArgument), WithCause(err))
	}
	return av, nil
}

// FromWire converts a wire value back into a typed destination. dst
// must be a non-nil pointer. NULL and absent tags leave the destination
// at its zero value.
func FromWire(av types.AttributeValue, dst any) error {
	if av == nil {
		return nil
	}
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		return nil
	}

	switch d := dst.(type) {
	case *string:
		switch tv := av.(type) {
		case *types.AttributeValueMemberS:
			*d = tv.Value
			return nil
		case *types.AttributeValueMemberN:
			*d = tv.Value
			return nil
		}
	case *bool:
		if tv, ok := av.(*types.AttributeValueMemberBOOL); ok {
			*d = tv.Value
			return nil
		}
	case *int:
		if tv, ok := av.(*types.AttributeValueMemberN); ok {
			n, err := strconv.ParseInt(tv.Value, 10, 64)
			if err != nil {
				return NewArgError(fmt.Sprintf("cannot parse number %q", tv.Value))
			}
			*d = int(n)
			return nil
		}
	case *int64:
		if tv, ok := av.(*types.AttributeValueMemberN); ok {
			n, err := strconv.ParseInt(tv.Value, 10, 64)
			if err != nil {
				return NewArgError(fmt.Sprintf("cannot parse number %q", tv.Value))
			}
			*d = n
			return nil
		}
	case *float64:
		if tv, ok := av.(*types.AttributeValueMemberN); ok {
			f, err := strconv.ParseFloat(tv.Value, 64)
			if err != nil {
				return NewArgError(fmt.Sprintf("cannot parse number %q", tv.Value))
			}
			*d = f
			return nil
		}
	case *time.Time:
		if tv, ok := av.(*types.AttributeValueMemberS); ok {
			t, err := time.Parse(timeLayout, tv.Value)
			if err != nil {
				t, err = time.Parse(time.RFC3339Nano, tv.Value)
			}
			if err != nil {
				return NewArgError(fmt.Sprintf("cannot parse timestamp %q", tv.Value))
			}
			*d = t
			return nil
		}
	case *uuid.UUID:
		if tv, ok := av.(*types.AttributeValueMemberS); ok {
			u, err := uuid.Parse(tv.Value)
			if err != nil {
				return NewArgError(fmt.Sprintf("cannot parse UUID %q", tv.Value))
			}
			*d = u
			return nil
		}
	case *[]byte:
		if tv, ok := av.(*types.AttributeValueMemberB); ok {
			*d = tv.Value
			return nil
		}
	case *StringSet:
		if tv, ok := av.(*types.AttributeValueMemberSS); ok {
			*d = tv.Value
			return nil
		}
	case *NumberSet:
		if tv, ok := av.(*types.AttributeValueMemberNS); ok {
			out := make(NumberSet, len(tv.Value))
			for i, s := range tv.Value {
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return NewArgError(fmt.Sprintf("cannot parse number %q", s))
				}
				out[i] = f
			}
			*d = out
			return nil
		}
	case *IntSet:
		if tv, ok := av.(*types.AttributeValueMemberNS); ok {
			out := make(IntSet, len(tv.Value))
			for i, s := range tv.Value {
				n, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return NewArgError(fmt.Sprintf("cannot parse number %q", s))
				}
				out[i] = n
			}
			*d = out
			return nil
		}
	case *BinarySet:
		if tv, ok := av.(*types.AttributeValueMemberBS); ok {
			*d = tv.Value
			return nil
		}
	case *map[string]types.AttributeValue:
		if tv, ok := av.(*types.AttributeValueMemberM); ok {
			*d = tv.Value
			return nil
		}
	default:
		return attributevalue.Unmarshal(av, dst)
	}
	return NewArgError(fmt.Sprintf("cannot convert %T wire value into %T", av, dst))
}

// wireItem converts a map of native values to a wire attribute map,
// omitting keys whose values convert to absence.
func wireItem(item map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		av, err := ToWire(v)
		if err != nil {
			return nil, err
		}
		if av == nil {
			continue
		}
		out[k] = av
	}
	return out, nil
}

// AddFormattedValue converts a value honoring an optional format
// specifier, stores it in the table under a freshly generated name and
// returns that name.
func AddFormattedValue(t *ParamTable, g *ParamGenerator, v any, format string) (string, error) {
	av, err := ToWireFormat(v, format)
	if err != nil {
		return "", err
	}
	if av == nil {
		return "", NewArgError("empty collections cannot be used as expression values")
	}
	name := g.Name()
	if err := t.SetValue(name, av); err != nil {
		return "", err
	}
	return name, nil
}
