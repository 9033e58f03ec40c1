// Package tokenizer provides the byte-level tokenizer used by the drivers.
// Benchmarks run against randomly initialized weights, so subword merges
// buy nothing; a reversible byte mapping keeps encode/decode exact and
// dependency-free while leaving room in the id space for the OPT specials.
package tokenizer

import "fmt"

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(text string) ([]int32, error)
	Decode(ids []int32) (string, error)
}

// Special token ids follow the OPT convention.
const (
	BosTokenID = 0
	PadTokenID = 1
	EosTokenID = 2
	UnkTokenID = 3

	// byteOffset is where the 256 byte tokens start.
	byteOffset = 4
)

// ByteLevel maps each input byte to one token id, offset past the special
// tokens. Encode never fails for vocabularies of at least 260 entries.
type ByteLevel struct {
	vocabSize int
	addBos    bool
}

// NewByteLevel returns a byte-level tokenizer bounded by the model's
// vocabulary size. Prompts are encoded without a leading BOS, matching the
// generation drivers.
func NewByteLevel(vocabSize int) (*ByteLevel, error) {
	if vocabSize < byteOffset+256 {
		return nil, fmt.Errorf("tokenizer: vocab size %d too small for byte-level encoding", vocabSize)
	}
	return &ByteLevel{vocabSize: vocabSize}, nil
}

func (t *ByteLevel) Encode(text string) ([]int32, error) {
	ids := make([]int32, 0, len(text)+1)
	if t.addBos {
		ids = append(ids, BosTokenID)
	}
	for _, b := range []byte(text) {
		ids = append(ids, int32(byteOffset+int(b)))
	}
	return ids, nil
}

func (t *ByteLevel) Decode(ids []int32) (string, error) {
	out := make([]byte, 0, len(ids))
	for _, id := range ids {
		switch {
		case id < 0 || int(id) >= t.vocabSize:
			return "", fmt.Errorf("tokenizer: id %d outside vocabulary of %d", id, t.vocabSize)
		case id < byteOffset:
			// Specials decode to nothing, like skip_special_tokens.
		case id < byteOffset+256:
			out = append(out, byte(id-byteOffset))
		default:
			// Ids past the byte range only appear with dummy weights;
			// render them as a placeholder instead of failing the run.
			out = append(out, fmt.Sprintf("<%d>", id)...)
		}
	}
	return string(out), nil
}
