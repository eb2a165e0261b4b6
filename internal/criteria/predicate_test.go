package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNot_DoubleNegationStaysShallow(t *testing.T) {
	p := Equal(Literal(1), 1)

	once := Not(p)
	twice := Not(once)
	thrice := Not(twice)
	four := Not(thrice)

	assert.Equal(t, 1, Depth(once))
	assert.Equal(t, 2, Depth(twice))
	assert.Equal(t, 1, Depth(thrice))
	assert.Equal(t, 2, Depth(four))

	// Not wraps rather than rewriting: the original predicate is still there.
	assert.Same(t, p, twice.(*NotPred).Pred.(*NotPred).Pred)
	assert.Same(t, once, thrice)
}

func TestJunction_Flattens(t *testing.T) {
	a, b, c := Equal(Literal(1), 1), Equal(Literal(2), 2), Equal(Literal(3), 3)

	and := And(a, And(b, c))
	j, ok := and.(*JunctionPred)
	require.True(t, ok)
	assert.Equal(t, OpAnd, j.Op)
	assert.Len(t, j.Preds, 3)

	// Different junction kinds are kept nested.
	mixed := Or(a, And(b, c)).(*JunctionPred)
	assert.Len(t, mixed.Preds, 2)

	assert.Same(t, a, And(a))
	assert.Same(t, a, Or(nil, a))
	assert.Equal(t, "and(", And().String()[:4])
}

func TestComparison_TypeMismatch(t *testing.T) {
	assert.ErrorIs(t, Check(Equal(Literal("a"), 1)), ErrTypeMismatch)
	assert.ErrorIs(t, Check(Between(Literal(1), "a", 3)), ErrTypeMismatch)
	assert.ErrorIs(t, Check(Like(Literal(1), "a%")), ErrTypeMismatch)
	assert.ErrorIs(t, Check(In(Literal(1), 1, "two")), ErrTypeMismatch)
	assert.ErrorIs(t, Check(In(Literal(1))), ErrTypeMismatch)
	assert.ErrorIs(t, Check(IsTrue(Literal(1))), ErrTypeMismatch)

	// Junctions surface errors of their children.
	assert.ErrorIs(t, Check(And(Equal(Literal(1), 1), Not(Equal(Literal("a"), 1)))), ErrTypeMismatch)

	assert.NoError(t, Check(Between(Literal(5), 0, 9)))
	assert.NoError(t, Check(In(Literal("NEW"), "NEW", "SHIPPED")))
	assert.NoError(t, Check(Equal(Literal(1), Null(0))))
}

func TestLike_WithEscape(t *testing.T) {
	base := Like(Literal("50%"), "50!%")
	escaped := base.WithEscape('!')

	assert.Equal(t, rune(0), base.Escape)
	assert.Equal(t, '!', escaped.Escape)
	assert.Equal(t, `("50%" like "50!%" escape !)`, escaped.String())
	assert.ErrorIs(t, Check(base.WithEscape('\'')), ErrTypeMismatch)

	neg := NotLike(Literal("a"), "b%")
	assert.True(t, neg.Negated)
}

func TestIsTrue_PassesPredicatesThrough(t *testing.T) {
	p := IsNull(Literal(1))
	assert.Same(t, p, IsTrue(p))
}
