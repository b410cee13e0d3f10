package task

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	ctor := func(Progress) Exporter { return &mockExporter{name: "x"} }

	t.Run("register and lookup", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(SelectorMessages, ctor))
		require.NoError(t, reg.Register(SelectorBookmarks, ctor))

		got, err := reg.Lookup(SelectorMessages)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, []Selector{SelectorBookmarks, SelectorMessages}, reg.Selectors())
	})

	t.Run("duplicate variant", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(SelectorCallLog, ctor))
		err := reg.Register(SelectorCallLog, ctor)
		assert.True(t, errors.Is(err, ErrDuplicateVariant))
	})

	t.Run("rejects nil constructor and unknown selector", func(t *testing.T) {
		reg := NewRegistry()
		assert.Error(t, reg.Register(SelectorCallLog, nil))
		err := reg.Register(Selector("fax"), ctor)
		assert.True(t, errors.Is(err, ErrUnknownVariant))
	})

	t.Run("lookup unknown", func(t *testing.T) {
		_, err := NewRegistry().Lookup(SelectorUserDictionary)
		assert.True(t, errors.Is(err, ErrUnknownVariant))
		assert.Contains(t, err.Error(), `"userdictionary"`)
	})
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("calllog")
	require.NoError(t, err)
	assert.Equal(t, SelectorCallLog, sel)

	_, err = ParseSelector("contacts")
	assert.True(t, errors.Is(err, ErrUnknownVariant))
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, NoData(), outcomeFor(0, "/b/x.xml", nil))
	assert.Equal(t, NoData(), outcomeFor(-1, "/b/x.xml", nil))
	assert.Equal(t, Exported(5, "/b/x.xml"), outcomeFor(5, "/b/x.xml", nil))

	out := outcomeFor(2, "/b/x.xml", errors.New("disk full"))
	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.Equal(t, "disk full", out.Error)

	assert.Equal(t, "export failed", Failed(errors.New("")).Error)
}
