package convo

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token cost of a string. Implementations are
// picked once at startup and cached.
type TokenCounter interface {
	Count(text string) int
}

// modelAwareCounter wraps a vendor-provided counting function, e.g. one
// returned by a ModelProvider that exposes its own tokenizer. It is tried
// first because it is the only exact counter.
type modelAwareCounter struct {
	fn func(string) int
}

func (c modelAwareCounter) Count(text string) int { return c.fn(text) }

// bpeCounter is the generic fallback: tiktoken-go's cl100k_base encoding,
// close enough across vendors for budget purposes even when it is not the
// exact tokenizer the target model uses.
type bpeCounter struct {
	enc *tiktoken.Tiktoken
}

func (c bpeCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// charHeuristicCounter is the last-resort fallback used when tiktoken's
// encoding tables fail to load (offline environments, vendored builds
// without the bpe data files).
type charHeuristicCounter struct{}

func (charHeuristicCounter) Count(text string) int {
	return int(float64(len(text)) / 2.5)
}

var (
	counterOnce sync.Once
	counter     TokenCounter
)

// NewTokenCounter builds the 3-level fallback counter (model-aware → BPE →
// char heuristic) and caches it process-wide; modelAware may be nil.
func NewTokenCounter(modelAware func(string) int) TokenCounter {
	counterOnce.Do(func() {
		if modelAware != nil {
			counter = modelAwareCounter{fn: modelAware}
			return
		}
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counter = charHeuristicCounter{}
			return
		}
		counter = bpeCounter{enc: enc}
	})
	return counter
}

// CountMessages sums the token estimate over a message slice: content for
// text variants, a JSON-ish rendering of arguments/result for tool
// variants.
func CountMessages(tc TokenCounter, messages []Message) int {
	total := 0
	for _, m := range messages {
		switch m.Role {
		case RoleUser, RoleAssistantText:
			total += tc.Count(m.Content)
		case RoleToolCall:
			total += tc.Count(m.ToolName) + tc.Count(renderMap(m.Arguments))
		case RoleToolReturn:
			total += tc.Count(m.ToolName) + tc.Count(renderMap(m.Result))
		}
	}
	return total
}

func renderMap(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	s := ""
	for k, v := range m {
		s += k + "="
		if sv, ok := v.(string); ok {
			s += sv
		} else {
			s += "x"
		}
		s += ";"
	}
	return s
}
