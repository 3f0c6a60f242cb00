package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

// Encoding is the tokenizer surface the budgeter needs. Production wraps
// tiktoken; tests inject a deterministic fake.
type Encoding interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenEncoding struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenEncoding) Encode(text string) []int   { return t.enc.Encode(text, nil, nil) }
func (t tiktokenEncoding) Decode(tokens []int) string { return t.enc.Decode(tokens) }

// Budgeter measures and truncates repository context against a model's input
// token budget. It is pure and safe for concurrent use.
type Budgeter struct {
	enc Encoding
}

// New builds a budgeter for the given model, falling back to the cl100k_base
// encoding when the model is unknown to tiktoken.
func New(model string) (*Budgeter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tokenizer encoding: %w", err)
		}
	}
	return &Budgeter{enc: tiktokenEncoding{enc: enc}}, nil
}

// NewWithEncoding builds a budgeter over a caller-supplied encoding.
func NewWithEncoding(enc Encoding) *Budgeter {
	return &Budgeter{enc: enc}
}

// Count returns the token count of text under the budgeter's encoding.
func (b *Budgeter) Count(text string) int {
	return len(b.enc.Encode(text))
}

// Truncate fits context into maxTokens. Content up to and including the
// languages-section delimiter is preserved whole whenever it fits; the rest
// of the budget goes to the suffix. Cuts always land on token boundaries
// because truncation decodes a prefix of the encoded token slice.
func (b *Budgeter) Truncate(context string, maxTokens int) string {
	tokens := b.enc.Encode(context)
	if len(tokens) <= maxTokens {
		return context
	}

	var important, remaining string
	if idx := strings.Index(context, entity.SectionLanguagesEnd); idx >= 0 {
		cut := idx + len(entity.SectionLanguagesEnd)
		important = context[:cut] + "\n\n"
		// Skip the delimiter's trailing blank line when present so it is not
		// duplicated in the reassembled context.
		if cut+2 <= len(context) && context[cut:cut+2] == "\n\n" {
			cut += 2
		}
		remaining = context[cut:]
	} else {
		remaining = context
	}

	importantTokens := b.enc.Encode(important)
	if len(importantTokens) > maxTokens {
		return b.enc.Decode(importantTokens[:maxTokens])
	}

	budget := maxTokens - len(importantTokens)
	remainingTokens := b.enc.Encode(remaining)
	if len(remainingTokens) > budget {
		remainingTokens = remainingTokens[:budget]
	}
	return important + b.enc.Decode(remainingTokens)
}
