package executor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoja_SharedScope(t *testing.T) {
	var out bytes.Buffer
	g := NewGoja(WithOutput(&out))
	ctx := context.Background()

	require.NoError(t, g.Inject(ctx, `var lib = { answer: function() { return 41 } };`))
	require.NoError(t, g.Inject(ctx, `console.log("answer", lib.answer() + 1)`))

	assert.Equal(t, "answer 42\n", out.String())
}

func TestGoja_WindowIsGlobal(t *testing.T) {
	var out bytes.Buffer
	g := NewGoja(WithOutput(&out))

	require.NoError(t, g.Inject(context.Background(), `window.$ = function(s) { return "sel:" + s }; console.log($("b"))`))
	assert.Equal(t, "sel:b\n", out.String())
}

func TestGoja_ConsoleLevels(t *testing.T) {
	var out bytes.Buffer
	g := NewGoja(WithOutput(&out))

	require.NoError(t, g.Inject(context.Background(), `console.warn("careful"); console.error("bad", 1)`))
	assert.Equal(t, "warn: careful\nerror: bad 1\n", out.String())
}

func TestGoja_ScriptErrors(t *testing.T) {
	g := NewGoja(WithOutput(&bytes.Buffer{}))

	err := g.Inject(context.Background(), `throw new Error("boom")`)
	require.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "boom")

	err = g.Inject(context.Background(), `this is not javascript`)
	require.ErrorIs(t, err, ErrScript)

	err = g.Inject(context.Background(), `undefinedFunction()`)
	require.ErrorIs(t, err, ErrScript)
}

func TestGoja_TimeoutInterruptsAndRecovers(t *testing.T) {
	var out bytes.Buffer
	g := NewGoja(WithOutput(&out), WithTimeout(50*time.Millisecond))

	start := time.Now()
	err := g.Inject(context.Background(), `while (true) {}`)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.NoError(t, g.Inject(context.Background(), `console.log("still alive")`))
	assert.Equal(t, "still alive\n", out.String())
}

func TestGoja_ContextCancel(t *testing.T) {
	g := NewGoja(WithOutput(&bytes.Buffer{}), WithTimeout(0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, g.Inject(ctx, `for (;;) {}`), ErrTimeout)

	done, cancelDone := context.WithCancel(context.Background())
	cancelDone()
	require.ErrorIs(t, g.Inject(done, `1`), ErrTimeout)
}
