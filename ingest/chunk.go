package ingest

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const paragraphSep = "\n\n"

var paragraphSplitRe = regexp.MustCompile(`\n\n+`)

// Chunker feeds oversized content to an Extractor one paragraph-aligned chunk
// at a time and merges the partial results.
type Chunker struct {
	extractor *Extractor
	chunkSize int
	opts      ExtractOptions
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithRequestsPerMinute paces chunk extractions. Zero disables pacing.
func WithRequestsPerMinute(rpm int) ChunkerOption {
	return func(c *Chunker) {
		if rpm > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithExtractOptions sets the per-call candidate limits.
func WithExtractOptions(opts ExtractOptions) ChunkerOption {
	return func(c *Chunker) { c.opts = opts }
}

// NewChunker creates a Chunker over extractor.
func NewChunker(extractor *Extractor, logger zerolog.Logger, opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		extractor: extractor,
		chunkSize: DefaultChunkSize,
		logger:    logger.With().Str("component", "chunker").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessLargeContent extracts memories from content of any size. Content that
// fits in one chunk goes straight to the Extractor; larger content is split,
// extracted chunk by chunk and merged. A configuration error aborts the
// remaining chunks.
func (c *Chunker) ProcessLargeContent(ctx context.Context, content, label string) (*IngestionResult, error) {
	if utf8.RuneCountInString(content) <= c.chunkSize {
		return c.extractor.Extract(ctx, content, label, c.opts)
	}

	chunks := SplitChunks(content, c.chunkSize)
	c.logger.Info().
		Str("label", label).
		Int("chunks", len(chunks)).
		Int("chunk_size", c.chunkSize).
		Msg("Processing content in chunks")

	results := make([]*IngestionResult, 0, len(chunks))
	for i, chunk := range chunks {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return failedResult(label, err), err
			}
		}
		partLabel := fmt.Sprintf("%s (part %d/%d)", label, i+1, len(chunks))
		res, err := c.extractor.Extract(ctx, chunk, partLabel, c.opts)
		if err != nil {
			c.logger.Error().Err(err).Str("label", partLabel).Msg("Aborting chunked extraction")
			return failedResult(label, err), err
		}
		results = append(results, res)
	}
	return MergeResults(results, label), nil
}

// SplitChunks packs paragraphs greedily into chunks of at most chunkSize
// characters, separators included. A paragraph longer than chunkSize becomes
// its own chunk.
func SplitChunks(content string, chunkSize int) []string {
	var (
		chunks  []string
		current []byte
		curLen  int
	)
	for _, para := range paragraphSplitRe.Split(content, -1) {
		if para == "" {
			continue
		}
		n := utf8.RuneCountInString(para)
		if curLen > 0 && curLen+len(paragraphSep)+n > chunkSize {
			chunks = append(chunks, string(current))
			current, curLen = current[:0], 0
		}
		if curLen > 0 {
			current = append(current, paragraphSep...)
			curLen += len(paragraphSep)
		}
		current = append(current, para...)
		curLen += n
	}
	if curLen > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

// MergeResults concatenates episodic candidates and notes in order and
// deduplicates semantic candidates by key.
func MergeResults(results []*IngestionResult, label string) *IngestionResult {
	merged := &IngestionResult{
		Episodic:        []EpisodicCandidate{},
		ProcessingNotes: []string{},
		Summary:         fmt.Sprintf("Processed %s in %d chunks", label, len(results)),
	}
	var semantic []SemanticCandidate
	for _, r := range results {
		if r == nil {
			continue
		}
		merged.Episodic = append(merged.Episodic, r.Episodic...)
		semantic = append(semantic, r.Semantic...)
		merged.ProcessingNotes = append(merged.ProcessingNotes, r.ProcessingNotes...)
	}
	merged.Semantic = DedupeSemantic(semantic)
	return merged
}

// DedupeSemantic keeps one candidate per key: the one with the higher
// confidence, the earlier one on a tie. Keys keep their first-seen position.
func DedupeSemantic(cands []SemanticCandidate) []SemanticCandidate {
	out := make([]SemanticCandidate, 0, len(cands))
	index := make(map[string]int, len(cands))
	for _, c := range cands {
		if i, ok := index[c.Key]; ok {
			if c.Confidence > out[i].Confidence {
				out[i] = c
			}
			continue
		}
		index[c.Key] = len(out)
		out = append(out, c)
	}
	return out
}
