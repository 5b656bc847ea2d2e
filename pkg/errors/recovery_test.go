package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, As(err, &panicErr), "expected PanicError, got %T", err)
	assert.Equal(t, "TestOperation", panicErr.Operation)
	assert.Equal(t, "test panic message", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in TestOperation: test panic message", panicErr.Error())
	assert.Contains(t, panicErr.String(), "Stack trace:")
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil
	}

	assert.NoError(t, testFunc())
}

func TestRecover_KeepsExistingError(t *testing.T) {
	original := fmt.Errorf("original error")
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		err = original
		panic("secondary panic")
	}

	err := testFunc()
	require.Error(t, err)
	assert.True(t, Is(err, original))
	assert.True(t, strings.Contains(err.Error(), "secondary panic"))
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	cause := New("index out of range")
	err := SafeExecute("Step", func() error {
		panic(cause)
	})

	require.Error(t, err)
	assert.True(t, Is(err, cause))
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() error
		wantErr string
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return New("boom") }, wantErr: "boom"},
		{name: "integer panic", fn: func() error { panic(42) }, wantErr: "panic in op: 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
