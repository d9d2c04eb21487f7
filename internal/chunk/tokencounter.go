package chunk

import "github.com/pkoukk/tiktoken-go"

// TikTokenCounter counts tokens with the real tiktoken BPE encoding used by
// OpenAI models, grounded on the teacher's TikTokenCounter in chunker.go.
type TikTokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTikTokenCounter builds a TikTokenCounter for the named encoding
// ("cl100k_base" is the teacher's default). If the encoding cannot be
// loaded, the tiktoken error is returned; there is no fallback to
// WordCounter.
func NewTikTokenCounter(encoding string) (TokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TikTokenCounter{enc: enc}, nil
}

func (t *TikTokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
