// Package onnx runs a masked language model in-process with onnxruntime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

var (
	// ErrSequenceTooLong is returned when a sequence exceeds the model's window.
	ErrSequenceTooLong = errors.New("sequence exceeds maximum length")
	// ErrUnknownID is returned for an id outside the vocabulary.
	ErrUnknownID = errors.New("id outside vocabulary")
)

var envMu sync.Mutex

type names struct {
	inputIDs      string
	attentionMask string
	typeIDs       string
	logits        string
}

// Oracle implements oracle.Oracle on an ONNX masked LM.
type Oracle struct {
	cfg      Config
	specials oracle.Specials
	unknown  string
	names    names
	log      logger.Logger

	tk        *tokenizer.Tokenizer
	vocabSize int
	file      *os.File
	model     mmap.MMap
	session   *ort.DynamicAdvancedSession
}

// Open loads the tokenizer, maps the model file and starts an inference session.
func Open(cfg Config, opts ...Option) (*Oracle, error) {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = defaultMaxSeqLen
	}
	o := &Oracle{
		cfg:      cfg,
		specials: oracle.DefaultSpecials(),
		unknown:  defaultUnknownToken,
		names: names{
			inputIDs:      "input_ids",
			attentionMask: "attention_mask",
			typeIDs:       "token_type_ids",
			logits:        "logits",
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}
	o.tk = tk
	o.vocabSize = tk.GetVocabSize(true)

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", cfg.ModelPath, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("map model %s: %w", cfg.ModelPath, err)
	}
	o.file, o.model = f, m

	inputs := []string{o.names.inputIDs, o.names.attentionMask}
	if cfg.IncludeTypeIDs {
		inputs = append(inputs, o.names.typeIDs)
	}
	session, err := ort.NewDynamicAdvancedSessionWithONNXData(o.model, inputs, []string{o.names.logits}, nil)
	if err != nil {
		_ = o.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}
	o.session = session

	if o.log != nil {
		o.log.Info(context.Background(), "using model",
			logger.String("model", cfg.ModelID),
			logger.String("path", cfg.ModelPath),
			logger.Int("vocab_size", o.vocabSize),
			logger.String("device", "cpu"),
		)
	}
	return o, nil
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// Shutdown releases the process-wide onnxruntime environment. Call it once
// every Oracle is closed.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Close releases the session and unmaps the model.
func (o *Oracle) Close() error {
	var errs []error
	if o.session != nil {
		errs = append(errs, o.session.Destroy())
		o.session = nil
	}
	if o.model != nil {
		errs = append(errs, o.model.Unmap())
		o.model = nil
	}
	if o.file != nil {
		errs = append(errs, o.file.Close())
		o.file = nil
	}
	return errors.Join(errs...)
}

// Specials implements oracle.Oracle.
func (o *Oracle) Specials() oracle.Specials { return o.specials }

// Tokenize implements oracle.Oracle.
func (o *Oracle) Tokenize(_ context.Context, text string) ([]string, error) {
	en, err := o.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, oracle.Wrap("tokenize", err)
	}
	return en.Tokens, nil
}

// IDs implements oracle.Oracle. Tokens missing from the vocabulary map to
// the unknown token.
func (o *Oracle) IDs(_ context.Context, tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		id, ok := o.tk.TokenToId(t)
		if !ok {
			id, ok = o.tk.TokenToId(o.unknown)
			if !ok {
				return nil, fmt.Errorf("%w: token %q not in vocabulary", oracle.ErrOracle, t)
			}
		}
		ids[i] = id
	}
	return ids, nil
}

// Tokens implements oracle.Oracle.
func (o *Oracle) Tokens(_ context.Context, ids []int) ([]string, error) {
	out := make([]string, len(ids))
	for i, id := range ids {
		tok, ok := o.tk.IdToToken(id)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %d", oracle.ErrOracle, ErrUnknownID, id)
		}
		out[i] = tok
	}
	return out, nil
}

// Predict implements oracle.Oracle.
func (o *Oracle) Predict(ctx context.Context, ids []int, positions []int) (map[int][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, oracle.Wrap("predict", err)
	}
	n := len(ids)
	if n > o.cfg.MaxSeqLen {
		return nil, fmt.Errorf("%w: %w: %d > %d", oracle.ErrOracle, ErrSequenceTooLong, n, o.cfg.MaxSeqLen)
	}
	for _, p := range positions {
		if p < 0 || p >= n {
			return nil, fmt.Errorf("%w: position %d outside sequence of %d", oracle.ErrOracle, p, n)
		}
	}

	inputIDs := make([]int64, n)
	mask := make([]int64, n)
	for i, id := range ids {
		inputIDs[i] = int64(id)
		mask[i] = 1
	}
	shape := ort.NewShape(1, int64(n))

	var inputs []ort.Value
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, oracle.Wrap("input_ids tensor", err)
	}
	inputs = append(inputs, idsTensor)
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, oracle.Wrap("attention_mask tensor", err)
	}
	inputs = append(inputs, maskTensor)
	if o.cfg.IncludeTypeIDs {
		typeTensor, err := ort.NewTensor(shape, make([]int64, n))
		if err != nil {
			return nil, oracle.Wrap("token_type_ids tensor", err)
		}
		inputs = append(inputs, typeTensor)
	}

	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(n), int64(o.vocabSize)))
	if err != nil {
		return nil, oracle.Wrap("logits tensor", err)
	}
	defer func() { _ = logits.Destroy() }()

	if err := o.session.Run(inputs, []ort.Value{logits}); err != nil {
		return nil, oracle.Wrap("run", err)
	}

	data := logits.GetData()
	out := make(map[int][]float64, len(positions))
	for _, p := range positions {
		row := data[p*o.vocabSize : (p+1)*o.vocabSize]
		out[p] = softmax(row)
	}
	return out, nil
}

var _ oracle.Oracle = (*Oracle)(nil)
