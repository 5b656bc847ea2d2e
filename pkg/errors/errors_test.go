package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "KMeans.Run",
			kind:    "not initialized",
			err:     fmt.Errorf("no centroids"),
			wantMsg: "mlsim: KMeans.Run: not initialized: no centroids",
		},
		{
			name:    "without original error",
			op:      "Session.TrainBoundary",
			kind:    "busy",
			err:     nil,
			wantMsg: "mlsim: Session.TrainBoundary: busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.True(t, strings.Contains(formatted, "errors_test.go"),
				"expected stack trace to contain test file name")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestModelErrorWrapsSentinel(t *testing.T) {
	err := NewModelError("Session.RunKMeans", "cancelled", ErrStaleEpoch)

	assert.True(t, Is(err, ErrStaleEpoch))
	assert.False(t, Is(err, ErrBusy))
}

func TestNewValidationError(t *testing.T) {
	err := NewRangeError("gamma", 7, 0.1, 5)

	var vErr *ValidationError
	require.True(t, As(err, &vErr))
	assert.Equal(t, "gamma", vErr.ParamName)
	assert.Equal(t, "mlsim: validation failed for parameter 'gamma': must be in [0.1, 5] (got: 7)", err.Error())
}

func TestWarn(t *testing.T) {
	t.Cleanup(func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(w error) {})
	})

	var captured []error
	SetWarningHandler(func(w error) { captured = append(captured, w) })

	Warn(NewUndefinedMetricWarning("r2", "zero variance in target", 0))
	require.Len(t, captured, 1)
	assert.Equal(t, "'r2' is ill-defined and being set to 0 due to zero variance in target.", captured[0].Error())

	// zerolog が設定されている場合は優先される
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	SetZerologWarnFunc(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			logger.Warn().EmbedObject(m).Msg(w.Error())
		}
	})
	Warn(&EmptyClusterWarning{Cluster: 2, Iteration: 3})

	assert.Len(t, captured, 1)
	assert.Contains(t, buf.String(), `"cluster":2`)
	assert.Contains(t, buf.String(), `"type":"EmptyClusterWarning"`)
}

func TestConvergenceWarning(t *testing.T) {
	w := NewConvergenceWarning("KMeans", 10, "")
	assert.Equal(t, "KMeans did not converge after 10 iterations. Consider increasing max iterations.", w.Error())

	w = NewConvergenceWarning("KMeans", 5, "centroid shift 0.3 > tol 0.01")
	assert.Contains(t, w.Error(), "centroid shift")
}

func TestNumericalChecks(t *testing.T) {
	assert.NoError(t, CheckScalar("r2", 0.5, 0))
	assert.Error(t, CheckScalar("r2", math.NaN(), 0))
	assert.Error(t, CheckNumericalStability("centroids", []float64{1, math.Inf(1)}, 4))

	err := CheckNumericalStability("centroids", []float64{1, 2, 3, 4, 5, 6, math.NaN()}, 4)
	var nErr *NumericalInstabilityError
	require.True(t, As(err, &nErr))
	assert.Equal(t, 4, nErr.Iteration)
	assert.Contains(t, err.Error(), "...")

	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 2.0, SafeDivide(4, 2))
	assert.Equal(t, 10.0, ClipValue(11, 0, 10))
	assert.Equal(t, 0.0, StabilizeExp(-1000))
}
