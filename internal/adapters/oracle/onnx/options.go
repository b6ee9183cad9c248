package onnx

import (
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

const (
	defaultMaxSeqLen    = 512
	defaultUnknownToken = "[UNK]"
)

// Config locates the model artifacts.
type Config struct {
	ModelPath      string // exported masked LM in ONNX format
	TokenizerPath  string // HuggingFace tokenizer.json
	LibraryPath    string // onnxruntime shared library, empty for the system default
	ModelID        string // name reported in logs
	MaxSeqLen      int
	IncludeTypeIDs bool // feed token_type_ids, required by BERT exports
}

// Option applies a configuration option to the Oracle.
type Option func(*Oracle)

// WithSpecials overrides the BERT special tokens.
func WithSpecials(sp oracle.Specials) Option {
	return func(o *Oracle) {
		o.specials = sp
	}
}

// WithUnknownToken sets the token substituted for out-of-vocabulary input.
func WithUnknownToken(tok string) Option {
	return func(o *Oracle) {
		if tok != "" {
			o.unknown = tok
		}
	}
}

// WithNames sets the graph input and output names.
func WithNames(inputIDs, attentionMask, typeIDs, logits string) Option {
	return func(o *Oracle) {
		o.names = names{inputIDs: inputIDs, attentionMask: attentionMask, typeIDs: typeIDs, logits: logits}
	}
}

// WithLogger sets the oracle logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Oracle) {
		o.log = l
	}
}
