package memory

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sandevgo/stridemem/internal/core"
)

var errNoTokenizerDir = errors.New("tokenizer directory is not set")

var (
	tokenizerDir atomic.Value

	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func init() {
	tiktoken.SetBpeLoader(fileBpeLoader{})
}

// SetTokenizerDir points the encoder at a directory holding BPE rank files
// such as cl100k_base.tiktoken. Encodings are never downloaded; without the
// file token counts fall back to an estimate.
func SetTokenizerDir(dir string) {
	tokenizerDir.Store(dir)
}

type fileBpeLoader struct{}

func (fileBpeLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	dir, _ := tokenizerDir.Load().(string)
	if dir == "" {
		return nil, errNoTokenizerDir
	}
	return loadBpeFile(filepath.Join(dir, path.Base(file)))
}

// loadBpeFile parses "<base64 token> <rank>" lines.
func loadBpeFile(name string) (map[string]int, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open bpe file: %w", err)
	}
	defer f.Close()

	ranks := make(map[string]int)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		token, rank, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed bpe line %q", line)
		}
		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bpe token: %w", err)
		}
		n, err := strconv.Atoi(rank)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bpe rank: %w", err)
		}
		ranks[string(decoded)] = n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bpe file: %w", err)
	}
	return ranks, nil
}

func countTokens(text string) int {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	})
	if tkErr != nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(tk.Encode(text, nil, nil))
}

// trimToTokenBudget drops the oldest history turns until the rest fits in
// budget. The newest turn is always kept. A budget of zero or less disables
// trimming.
func trimToTokenBudget(history []core.Message, budget int) []core.Message {
	if budget <= 0 || len(history) == 0 {
		return history
	}

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += countTokens(history[i].Content)
		if total > budget && i < len(history)-1 {
			break
		}
		start = i
	}
	return history[start:]
}
