package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "regression",
			args: []string{"-model", "regression", "-slope", "2", "-noise", "0"},
			want: []string{"(regression), 50 points", "your line:   y = 2.000x + 0.000", "MSE:"},
		},
		{
			name: "clustering",
			args: []string{"-model", "k-means", "-k", "4", "-iterations", "5"},
			want: []string{"(clustering), 100 points", "iterations: 5", "centroid 3:"},
		},
		{
			name: "svm rbf",
			args: []string{"-model", "svm", "-kernel", "rbf", "-gamma", "2", "-metrics"},
			want: []string{"(svm), 50 points", "kernel: rbf", "mlsim_training_runs_total 1", "mlsim_generations_total 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append([]string{"-seed", "3", "-step-interval", "0", "-training-delay", "0", "-log-level", "error"}, tt.args...)

			require.NoError(t, run(args, &stdout, &stderr))
			for _, w := range tt.want {
				assert.Contains(t, stdout.String(), w)
			}
		})
	}
}

func TestRunWritesPlot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "kmeans.png")
	var stdout, stderr bytes.Buffer

	require.NoError(t, run([]string{"-model", "clustering", "-seed", "1", "-step-interval", "0", "-out", out}, &stdout, &stderr))
	assert.FileExists(t, out)
	assert.Contains(t, stdout.String(), "plot written to")
}

func TestRunRejectsInvalidInput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Error(t, run([]string{"-model", "tree"}, &stdout, &stderr))
	assert.Error(t, run([]string{"-model", "clustering", "-k", "9"}, &stdout, &stderr))
	assert.Error(t, run([]string{"-log-level", "loud"}, &stdout, &stderr))
	assert.Error(t, run([]string{"-no-such-flag"}, &stdout, &stderr))
}
