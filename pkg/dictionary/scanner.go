package dictionary

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Entry is one word record reconstructed from a shard's positional encoding.
type Entry struct {
	OriginalWord string
	Reading      string
	Definitions  []string
}

// Shards encode each word as a positional JSON array: index 0 is the written
// form, index 1 the reading, and one nested array holds the definition
// strings. Array depth alone carries the meaning:
//
//	depth 1: one word record (element of the shard's top-level array)
//	depth 2: positional fields of that record
//	depth 3: the definitions array
//
// Positions other than 0, 1 and the definitions array are format metadata and
// stay ignored, so richer shard encodings keep parsing.
const (
	recordDepth     = 1
	fieldDepth      = 2
	definitionDepth = 3
)

// frame tracks one open JSON container. idx counts positions consumed so far
// and is only meaningful for arrays.
type frame struct {
	isArray bool
	idx     int
}

// ScanShard streams the shard at path token by token and invokes emit for
// every well-formed record, in file order. A record missing its written form,
// reading or definitions is discarded silently. Memory use stays bounded by
// one record regardless of file size. An emit error aborts the scan.
func ScanShard(ctx context.Context, path string, emit func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))

	var (
		stack      []frame
		arrayDepth int
		current    Entry
	)
	reset := func() { current = Entry{} }

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan shard %s: %w", path, err)
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '[':
				advanceParent(stack)
				stack = append(stack, frame{isArray: true})
				arrayDepth++
			case '{':
				advanceParent(stack)
				stack = append(stack, frame{isArray: false})
			case ']':
				stack = stack[:len(stack)-1]
				arrayDepth--
				if arrayDepth == recordDepth {
					if current.OriginalWord != "" && current.Reading != "" && len(current.Definitions) > 0 {
						if err := emit(current); err != nil {
							return err
						}
					}
					reset()
					if err := ctx.Err(); err != nil {
						return err
					}
				}
			case '}':
				stack = stack[:len(stack)-1]
			}
		default:
			if len(stack) == 0 || !stack[len(stack)-1].isArray {
				// Scalars inside objects (or a bare top-level scalar) have no
				// positional meaning in this format.
				continue
			}
			pos := stack[len(stack)-1].idx
			stack[len(stack)-1].idx++

			s, ok := t.(string)
			if !ok {
				continue
			}
			switch arrayDepth {
			case definitionDepth:
				current.Definitions = append(current.Definitions, s)
			case fieldDepth:
				switch pos {
				case 0:
					current.OriginalWord = s
				case 1:
					current.Reading = s
				}
			}
		}
	}
}

// advanceParent charges an opening container to its parent array's position
// counter, so a nested array or object still occupies exactly one slot.
func advanceParent(stack []frame) {
	if len(stack) > 0 && stack[len(stack)-1].isArray {
		stack[len(stack)-1].idx++
	}
}

// CountWords runs the sizing pass over one shard: it counts array closures
// landing exactly at record depth and ignores every other token. The format
// has no header count, so this pass is the only way to know a shard's size
// ahead of the import pass.
func CountWords(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))

	count := 0
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("count shard %s: %w", path, err)
		}
		d, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch d {
		case '[':
			depth++
		case ']':
			depth--
			if depth == recordDepth {
				count++
				if err := ctx.Err(); err != nil {
					return 0, err
				}
			}
		}
	}
}
