package remotetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replharvest/pkg/remote"
	"replharvest/pkg/selector"
)

func TestLocateRecordsProbes(t *testing.T) {
	ctx := context.Background()
	r := New()
	sel := selector.ByCSS("#go")

	_, err := r.Locate(ctx, sel, time.Second)
	assert.ErrorIs(t, err, remote.ErrNotFound)

	btn := NewElement("go", "Go")
	r.Set(sel, btn)
	el, err := r.Locate(ctx, sel, time.Second)
	require.NoError(t, err)
	assert.Same(t, btn, el)
	assert.Equal(t, 2, r.Probes(sel))
}

func TestActAndHooks(t *testing.T) {
	ctx := context.Background()
	r := New()
	field := NewElement("user", "")
	var clicked []string
	r.ClickHook = func(el *Element) error {
		clicked = append(clicked, el.Name)
		return nil
	}

	require.NoError(t, r.Act(ctx, field, remote.TypeText("ab")))
	require.NoError(t, r.Act(ctx, field, remote.TypeText("c")))
	require.NoError(t, r.Act(ctx, field, remote.Click()))

	assert.Equal(t, "abc", field.Typed())
	assert.Equal(t, 1, field.Clicks())
	assert.Equal(t, []string{"user"}, clicked)
}

func TestElementChildren(t *testing.T) {
	ctx := context.Background()
	name := selector.ByCSS(".name")
	row := NewElement("row", "").WithChild(name, NewElement("n", "Todo")).WithAttr("id", "1")

	child, err := row.Find(ctx, name)
	require.NoError(t, err)
	text, _ := child.Text(ctx)
	assert.Equal(t, "Todo", text)

	_, err = row.Find(ctx, selector.ByCSS("a"))
	assert.ErrorIs(t, err, remote.ErrNotFound)

	v, ok, _ := row.Attribute(ctx, "id")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestWaitUntilBounded(t *testing.T) {
	r := New()
	r.MaxPolls = 2
	calls := 0

	err := r.WaitUntil(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	}, time.Second)

	assert.ErrorIs(t, err, remote.ErrTimeout)
	assert.Equal(t, 2, calls)
}

func TestNavigateAndSleep(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.Navigate(ctx, "https://example.test/a"))
	require.NoError(t, r.Sleep(ctx, time.Second))
	require.NoError(t, r.Close())

	loc, _ := r.CurrentLocation(ctx)
	assert.Equal(t, "https://example.test/a", loc)
	assert.Equal(t, []string{"https://example.test/a"}, r.Navigations())
	assert.Equal(t, []time.Duration{time.Second}, r.Slept())
	assert.Equal(t, 1, r.CloseCalls())
}
