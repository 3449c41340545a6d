package requestkit

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormatter() *ExpressionFormatter {
	return NewExpressionFormatter(&ParamGenerator{}, NewParamTable())
}

func TestFormatSubstitutesPositionalTokens(t *testing.T) {
	f := newTestFormatter()

	out, err := f.Format("pk = {0} AND sk = {1}", "USER#1", nil)
	require.NoError(t, err)
	assert.Equal(t, "pk = :p0 AND sk = :p1", out)

	vals := f.Table().Values()
	require.Len(t, vals, 2)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "USER#1"}, vals[":p0"])
	assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, vals[":p1"])
}

func TestFormatRepeatedIndexConvertsTwice(t *testing.T) {
	f := newTestFormatter()

	out, err := f.Format("a = {0} or b = {0}", 7)
	require.NoError(t, err)
	assert.Equal(t, "a = :p0 or b = :p1", out)
	require.Len(t, f.Table().Values(), 2)
}

func TestFormatWithSpecifier(t *testing.T) {
	f := newTestFormatter()

	out, err := f.Format("code = {0:X4}", 255)
	require.NoError(t, err)
	assert.Equal(t, "code = :p0", out)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "00FF"}, f.Table().Values()[":p0"])
}

func TestFormatIndexOutOfRange(t *testing.T) {
	f := newTestFormatter()

	_, err := f.Format("pk = {5}", "only-one")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrArgument))
	assert.Contains(t, err.Error(), "placeholder index 5 is out of range: 1 argument(s) supplied")
}

func TestFormatNamedPlaceholdersPassThrough(t *testing.T) {
	f := newTestFormatter()

	out, err := f.Format("status = :status and pk = {0}", "P#9")
	require.NoError(t, err)
	assert.Equal(t, "status = :status and pk = :p0", out)
	require.Len(t, f.Table().Values(), 1)
}

func TestFormatEmptyTemplate(t *testing.T) {
	f := newTestFormatter()

	_, err := f.Format("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty expression template")
}

func TestFormatConversionFailurePropagates(t *testing.T) {
	f := newTestFormatter()

	_, err := f.Format("name = {0:D}", "text")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrFormat))
}

func TestFormatLiteralBracesUntouched(t *testing.T) {
	f := newTestFormatter()

	out, err := f.Format("begins_with(sk, {0}) and contains(notes, :tag)", "ORDER#")
	require.NoError(t, err)
	assert.Equal(t, "begins_with(sk, :p0) and contains(notes, :tag)", out)
}

func TestFormatSharedSessionContinuesNumbering(t *testing.T) {
	f := newTestFormatter()

	first, err := f.Format("pk = {0}", "A")
	require.NoError(t, err)
	second, err := f.Format("sk = {0}", "B")
	require.NoError(t, err)

	assert.Equal(t, "pk = :p0", first)
	assert.Equal(t, "sk = :p1", second)
	require.Len(t, f.Table().Values(), 2)
}
