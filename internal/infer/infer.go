// Package infer runs a synthetic transformer inference pipeline: a
// compute-bound GEMM prefill stage and a memory-bound GEMV decode stage
// over dummy weights, useful for contrasting the two load shapes on one
// frequency point.
package infer

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"dvfs-bench/internal/logging"

	"github.com/sirupsen/logrus"
)

// Options are the synthetic model hyperparameters.
type Options struct {
	ModelPath string
	Layers    int
	Queries   int
	HiddenDim int
	FFNDim    int
	Prompt    int // input sequence length
	Output    int // generated token count
	Threads   int
}

func (o *Options) applyDefaults() {
	if o.ModelPath == "" {
		o.ModelPath = "model_weights.bin"
	}
	if o.Layers <= 0 {
		o.Layers = 24
	}
	if o.Queries <= 0 {
		o.Queries = 10
	}
	if o.HiddenDim <= 0 {
		o.HiddenDim = 256
	}
	if o.FFNDim <= 0 {
		o.FFNDim = 588
	}
	if o.Prompt <= 0 {
		o.Prompt = 64
	}
	if o.Output <= 0 {
		o.Output = 256
	}
	if o.Threads <= 0 {
		o.Threads = 4
	}
}

// weightBytes is the per-layer weight volume the model file must cover.
func (o *Options) weightBytes() int64 {
	h, f := int64(o.HiddenDim), int64(o.FFNDim)
	return (4*h*h + h*f + f*h) * 4
}

// CreateDummyWeights fills path with sizeMB megabytes of random bytes,
// standing in for a real weight file so matrix loading exercises file I/O.
func CreateDummyWeights(path string, sizeMB int) error {
	logging.GetLogger().WithFields(logrus.Fields{
		"path":    path,
		"size_mb": sizeMB,
	}).Info("Creating dummy model weights")

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer file.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	buffer := make([]byte, 4096)
	remaining := int64(sizeMB) * 1024 * 1024
	for remaining > 0 {
		rng.Read(buffer)
		n := int64(len(buffer))
		if remaining < n {
			n = remaining
		}
		if _, err := file.Write(buffer[:n]); err != nil {
			return fmt.Errorf("failed to write model file: %w", err)
		}
		remaining -= n
	}
	return nil
}

type matrix [][]float32

// loadMatrix reads rows*cols float32 values from the weight file.
func loadMatrix(file *os.File, rows, cols int) (matrix, error) {
	mat := make(matrix, rows)
	for i := range mat {
		mat[i] = make([]float32, cols)
		if err := binary.Read(file, binary.LittleEndian, mat[i]); err != nil {
			return nil, fmt.Errorf("failed to read matrix row %d: %w", i, err)
		}
	}
	return mat, nil
}

// partition runs fn over [0,rows) split into contiguous row blocks, one per
// worker goroutine. Thread count is clamped so every worker has rows.
func partition(rows, threads int, fn func(start, end int)) {
	if threads > rows {
		threads = rows
	}
	if threads < 1 {
		threads = 1
	}
	perThread := rows / threads

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		start := i * perThread
		end := start + perThread
		if i == threads-1 {
			end = rows
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// gemm computes A*B with row-partitioned goroutines.
func gemm(a, b matrix, threads int) (matrix, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("gemm on empty matrix")
	}
	if len(a[0]) != len(b) {
		return nil, fmt.Errorf("invalid gemm dimensions: (%d,%d) x (%d,?)", len(a), len(a[0]), len(b))
	}
	m, k, n := len(a), len(b), len(b[0])

	c := make(matrix, m)
	for i := range c {
		c[i] = make([]float32, n)
	}

	partition(m, threads, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < n; j++ {
				var sum float32
				for l := 0; l < k; l++ {
					sum += a[i][l] * b[l][j]
				}
				c[i][j] = sum
			}
		}
	})
	return c, nil
}

// gemv computes y + A*x with row-partitioned goroutines.
func gemv(y []float32, a matrix, x []float32, threads int) ([]float32, error) {
	if len(a) == 0 || len(x) == 0 {
		return nil, fmt.Errorf("gemv on empty operands")
	}
	if len(a[0]) != len(x) {
		return nil, fmt.Errorf("invalid gemv dimensions: (%d,%d) x (%d)", len(a), len(a[0]), len(x))
	}
	m, n := len(a), len(x)

	result := make([]float32, m)
	copy(result, y)

	partition(m, threads, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < n; j++ {
				result[i] += a[i][j] * x[j]
			}
		}
	})
	return result, nil
}

// weights holds one layer's worth of matrices, shared read-only across all
// layers like the original simulation does.
type weights struct {
	wq, wk, wv, wo matrix
	ffn1, ffn2     matrix
}

func loadWeights(path string, o *Options) (*weights, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	w := &weights{}
	h, f := o.HiddenDim, o.FFNDim
	for _, load := range []struct {
		dst        *matrix
		rows, cols int
	}{
		{&w.wq, h, h},
		{&w.wk, h, h},
		{&w.wv, h, h},
		{&w.wo, h, h},
		{&w.ffn1, h, f},
		{&w.ffn2, f, h},
	} {
		mat, err := loadMatrix(file, load.rows, load.cols)
		if err != nil {
			return nil, err
		}
		*load.dst = mat
	}
	return w, nil
}

// prefillLayer runs the GEMM chain of one transformer layer over the whole
// prompt at once.
func prefillLayer(input matrix, w *weights, threads int) (matrix, error) {
	q, err := gemm(input, w.wq, threads)
	if err != nil {
		return nil, err
	}
	attn, err := gemm(q, w.wv, threads)
	if err != nil {
		return nil, err
	}
	attnFinal, err := gemm(attn, w.wo, threads)
	if err != nil {
		return nil, err
	}
	ffn1, err := gemm(attnFinal, w.ffn1, threads)
	if err != nil {
		return nil, err
	}
	return gemm(ffn1, w.ffn2, threads)
}

// decodeLayer runs the GEMV chain of one layer over a single token.
func decodeLayer(token []float32, w *weights, threads int) ([]float32, error) {
	y := make([]float32, len(w.wq))
	// The query projection's result feeds nothing here, but its memory
	// traffic is part of the load shape.
	if _, err := gemv(y, w.wq, token, threads); err != nil {
		return nil, err
	}
	v, err := gemv(y, w.wv, token, threads)
	if err != nil {
		return nil, err
	}
	attn, err := gemv(y, w.wo, v, threads)
	if err != nil {
		return nil, err
	}

	yFFN := make([]float32, len(w.ffn2))
	ffn1, err := gemv(yFFN, w.ffn2, attn, threads)
	if err != nil {
		return nil, err
	}

	yFinal := make([]float32, len(w.ffn1))
	return gemv(yFinal, w.ffn1, ffn1, threads)
}

// Run executes the full pipeline: create dummy weights, load them, then for
// each query a prefill pass over the prompt and a token-by-token decode
// loop, logging per-stage throughput. The weight file is removed on
// success.
func Run(opts Options) error {
	opts.applyDefaults()
	logger := logging.GetLogger()

	sizeMB := int(opts.weightBytes()/(1024*1024)) + 1
	logger.WithFields(logrus.Fields{
		"hidden_dim": opts.HiddenDim,
		"ffn_dim":    opts.FFNDim,
		"layers":     opts.Layers,
		"threads":    opts.Threads,
		"weights_mb": sizeMB,
	}).Info("Starting inference simulation")

	if err := CreateDummyWeights(opts.ModelPath, sizeMB); err != nil {
		return err
	}

	startInit := time.Now()
	w, err := loadWeights(opts.ModelPath, &opts)
	if err != nil {
		return err
	}
	logger.WithField("init_ms", time.Since(startInit).Milliseconds()).Info("Model loaded")

	for query := 0; query < opts.Queries; query++ {
		input := make(matrix, opts.Prompt)
		for i := range input {
			input[i] = make([]float32, opts.HiddenDim)
			for j := range input[i] {
				input[i][j] = 0.1
			}
		}

		startPrefill := time.Now()
		output := input
		for layer := 0; layer < opts.Layers; layer++ {
			output, err = prefillLayer(output, w, opts.Threads)
			if err != nil {
				return fmt.Errorf("prefill layer %d: %w", layer, err)
			}
		}
		prefillMS := float64(time.Since(startPrefill).Microseconds()) / 1000.0

		logger.WithFields(logrus.Fields{
			"query":       query,
			"prefill_ms":  prefillMS,
			"tokens_per_s": 1000 * float64(opts.Prompt) / prefillMS,
		}).Info("Prefill complete (compute-bound GEMM)")

		token := make([]float32, opts.HiddenDim)
		for i := range token {
			token[i] = 0.1
		}

		startDecode := time.Now()
		for i := 0; i < opts.Output; i++ {
			next := token
			for layer := 0; layer < opts.Layers; layer++ {
				next, err = decodeLayer(next, w, opts.Threads)
				if err != nil {
					return fmt.Errorf("decode layer %d: %w", layer, err)
				}
			}
			token = next
		}
		decodeMS := float64(time.Since(startDecode).Microseconds()) / 1000.0

		logger.WithFields(logrus.Fields{
			"query":        query,
			"decode_ms":    decodeMS,
			"ms_per_token": decodeMS / float64(opts.Output),
			"tokens_per_s": 1000 * float64(opts.Output) / decodeMS,
		}).Info("Decode complete (memory-bound GEMV)")
	}

	if err := os.Remove(opts.ModelPath); err != nil {
		logger.WithError(err).Warn("Failed to remove dummy model file")
	} else {
		logger.WithField("path", opts.ModelPath).Info("Dummy model file removed")
	}
	return nil
}
