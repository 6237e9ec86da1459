package pipeline

import (
	"strings"

	"github.com/slrhub/litrag/model"
)

// WindowChunker creates a chunker that splits text into overlapping windows.
// Each window is at most cfg.ChunkSize bytes long and consecutive windows
// overlap by cfg.Overlap bytes. Where possible a window is cut at the last
// newline, or failing that the last space, inside the window so chunks end
// at natural boundaries. Whitespace-only windows are dropped.
func WindowChunker(cfg model.ChunkingConfig) ChunkFunc {
	return func(text string) ([]TextChunk, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		if strings.TrimSpace(text) == "" {
			return []TextChunk{}, nil
		}

		var chunks []TextChunk
		index := 0
		start := 0

		for start < len(text) {
			end := start + cfg.ChunkSize
			if end >= len(text) {
				end = len(text)
			} else {
				// Cut at a boundary, but only if that keeps the window
				// longer than the overlap so the chunker always advances.
				window := text[start:end]
				cut := strings.LastIndex(window, "\n")
				if cut <= cfg.Overlap {
					cut = strings.LastIndex(window, " ")
				}
				if cut > cfg.Overlap {
					end = start + cut
				}
			}

			content := strings.TrimSpace(text[start:end])
			if content != "" {
				chunks = append(chunks, TextChunk{
					Content: content,
					Index:   index,
					Start:   start,
					End:     end,
				})
				index++
			}

			if end >= len(text) {
				break
			}

			next := end - cfg.Overlap
			if next <= start {
				next = end
			}
			start = next
		}

		return chunks, nil
	}
}

// EstimatePage estimates the 1-based page a byte offset falls on, assuming
// text is spread evenly over the pages. Returns 0 if the page count or text
// length is unknown.
func EstimatePage(offset int, totalLen int, pageCount int) int {
	if pageCount <= 0 || totalLen <= 0 {
		return 0
	}
	if offset < 0 {
		offset = 0
	}

	page := offset*pageCount/totalLen + 1
	if page > pageCount {
		page = pageCount
	}
	return page
}
