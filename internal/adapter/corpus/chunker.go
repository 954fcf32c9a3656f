package corpus

import (
	"fmt"
	"strings"

	"sentinel-bfsi/internal/domain/entity"
)

// Chunk is a passage with a stable id of the form "<source>:<n>".
type Chunk struct {
	ID      string
	Passage entity.Passage
}

// Split cuts a document into word-aligned chunks of at most size characters,
// each starting roughly overlap characters before the previous one ended.
func Split(doc Document, size, overlap int) []Chunk {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	words := strings.Fields(doc.Text)
	var chunks []Chunk
	start := 0
	for start < len(words) {
		length := 0
		end := start
		for end < len(words) {
			add := len(words[end])
			if end > start {
				add++
			}
			if length+add > size && end > start {
				break
			}
			length += add
			end++
		}
		chunks = append(chunks, Chunk{
			ID:      fmt.Sprintf("%s:%d", doc.Source, len(chunks)),
			Passage: entity.Passage{Text: strings.Join(words[start:end], " "), Source: doc.Source},
		})
		if end >= len(words) {
			break
		}
		// step back over roughly overlap characters, but always advance
		back := end
		for carried := 0; back > start+1 && carried < overlap; {
			back--
			carried += len(words[back]) + 1
		}
		start = back
	}
	return chunks
}
