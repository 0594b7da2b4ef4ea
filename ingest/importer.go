package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/PodJamz/8gent-sub005/memory"
)

const (
	minFileRunes    = 50
	maxReportNotes  = 10
	maxZipEntrySize = 32 << 20

	ModeAI        = "ai"
	ModeHeuristic = "heuristic"
)

// SupportedExtensions lists the file types Import accepts.
var SupportedExtensions = []string{".txt", ".md", ".json", ".csv", ".zip"}

var textExtensions = []string{".txt", ".md", ".json", ".csv"}

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrContentTooShort = errors.New("file content too short (minimum 50 characters)")
	ErrEmptyArchive    = errors.New("no supported files found in ZIP archive")
)

// Counts pairs episodic and semantic totals.
type Counts struct {
	Episodic int `json:"episodic"`
	Semantic int `json:"semantic"`
}

// FileReport holds per-file extraction counts.
type FileReport struct {
	Filename string `json:"filename"`
	Counts
}

// ImportReport describes the outcome of one Import call.
type ImportReport struct {
	Filename        string       `json:"filename"`
	ProcessingMode  string       `json:"processing_mode"`
	Summary         string       `json:"summary"`
	FilesProcessed  int          `json:"files_processed"`
	Files           []FileReport `json:"file_details"`
	Extracted       Counts       `json:"extracted"`
	Stored          Counts       `json:"stored"`
	Failed          Counts       `json:"failed"`
	ProcessingNotes []string     `json:"processing_notes"`
}

type sourceFile struct {
	name    string
	content string
}

// Importer extracts memories from uploaded files and persists them through a
// memory.Manager. With a Chunker it uses model extraction; without one it
// falls back to keyword heuristics.
type Importer struct {
	manager *memory.Manager
	chunker *Chunker
	logger  zerolog.Logger
}

// NewImporter creates an Importer. chunker may be nil.
func NewImporter(manager *memory.Manager, chunker *Chunker, logger zerolog.Logger) (*Importer, error) {
	if manager == nil {
		return nil, memory.ErrStoreUnavailable
	}
	return &Importer{
		manager: manager,
		chunker: chunker,
		logger:  logger.With().Str("component", "importer").Logger(),
	}, nil
}

func (im *Importer) mode() string {
	if im.chunker != nil {
		return ModeAI
	}
	return ModeHeuristic
}

// ImportFile reads path from disk and imports it.
func (im *Importer) ImportFile(ctx context.Context, userID, filePath string) (*ImportReport, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	return im.Import(ctx, userID, filepath.Base(filePath), data)
}

// Import extracts memories from one uploaded file (a text file or a ZIP of
// text files) and stores them for userID. Individual store failures are
// logged and counted; they do not fail the import.
func (im *Importer) Import(ctx context.Context, userID, filename string, data []byte) (*ImportReport, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !lo.Contains(SupportedExtensions, ext) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedFile, ext, strings.Join(SupportedExtensions, ", "))
	}

	im.logger.Debug().
		Str("method", "Import").
		Str("user_id", userID).
		Str("filename", filename).
		Str("mode", im.mode()).
		Int("bytes", len(data)).
		Msg("called")

	var files []sourceFile
	if ext == ".zip" {
		var err error
		files, err = im.readZip(data, filename)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, ErrEmptyArchive
		}
	} else {
		content := string(data)
		if utf8.RuneCountInString(content) < minFileRunes {
			return nil, ErrContentTooShort
		}
		files = []sourceFile{{name: filename, content: content}}
	}

	return im.importSources(ctx, userID, filename, files, ext == ".zip")
}

// IngestText extracts memories from raw text, such as a conversation
// transcript, and stores them for userID under label.
func (im *Importer) IngestText(ctx context.Context, userID, label, content string) (*ImportReport, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentTooShort
	}
	im.logger.Debug().
		Str("method", "IngestText").
		Str("user_id", userID).
		Str("label", label).
		Int("content_len", len(content)).
		Msg("called")
	return im.importSources(ctx, userID, label, []sourceFile{{name: label, content: content}}, false)
}

func (im *Importer) importSources(ctx context.Context, userID, filename string, files []sourceFile, archive bool) (*ImportReport, error) {
	report := &ImportReport{
		Filename:       filename,
		ProcessingMode: im.mode(),
		FilesProcessed: len(files),
		Files:          make([]FileReport, 0, len(files)),
	}
	var (
		episodic []EpisodicCandidate
		semantic []SemanticCandidate
		notes    []string
	)
	for _, f := range files {
		res, err := im.processFile(ctx, f)
		if err != nil {
			return nil, err
		}
		episodic = append(episodic, res.Episodic...)
		semantic = append(semantic, res.Semantic...)
		notes = append(notes, res.ProcessingNotes...)
		report.Files = append(report.Files, FileReport{
			Filename: f.name,
			Counts:   Counts{Episodic: len(res.Episodic), Semantic: len(res.Semantic)},
		})
	}
	semantic = DedupeSemantic(semantic)
	report.Extracted = Counts{Episodic: len(episodic), Semantic: len(semantic)}

	if err := im.store(ctx, userID, filename, episodic, semantic, report); err != nil {
		return nil, err
	}

	total := report.Extracted.Episodic + report.Extracted.Semantic
	if archive {
		report.Summary = fmt.Sprintf("Processed %d files from %s: extracted %d memories", len(files), filename, total)
	} else {
		report.Summary = fmt.Sprintf("Processed %s: extracted %d memories", filename, total)
	}
	if len(notes) > maxReportNotes {
		notes = notes[:maxReportNotes]
	}
	report.ProcessingNotes = append([]string{}, notes...)

	im.logger.Info().
		Str("filename", filename).
		Int("episodic_stored", report.Stored.Episodic).
		Int("semantic_stored", report.Stored.Semantic).
		Int("episodic_failed", report.Failed.Episodic).
		Int("semantic_failed", report.Failed.Semantic).
		Msg("Import complete")
	return report, nil
}

func (im *Importer) processFile(ctx context.Context, f sourceFile) (*IngestionResult, error) {
	content := f.content
	if looksLikeChatGPTExport(f.name) {
		content = FlattenChatGPTExport(content)
	}
	if im.chunker == nil {
		return ExtractHeuristic(content, f.name), nil
	}
	res, err := im.chunker.ProcessLargeContent(ctx, content, f.name)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", f.name, err)
	}
	return res, nil
}

func (im *Importer) store(
	ctx context.Context,
	userID, filename string,
	episodic []EpisodicCandidate,
	semantic []SemanticCandidate,
	report *ImportReport,
) error {
	tool := "heuristic_extraction"
	if im.chunker != nil {
		tool = "ai_extraction"
	}

	for _, c := range episodic {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome := c.Context
		if outcome == "" {
			outcome = "Imported from " + filename
		}
		metadata := map[string]interface{}{
			"toolsUsed": []string{"file_upload", tool},
			"outcome":   outcome,
		}
		if _, err := im.manager.StoreEpisodicMemory(ctx, userID, c.Content, c.MemoryType, c.Importance, "", metadata); err != nil {
			im.logger.Error().Err(err).Str("filename", filename).Msg("Failed to store episodic memory")
			report.Failed.Episodic++
			continue
		}
		report.Stored.Episodic++
	}

	for _, c := range semantic {
		if err := ctx.Err(); err != nil {
			return err
		}
		source := c.Source
		if source == "" {
			source = "file_upload:" + filename
		}
		if _, err := im.manager.UpsertSemanticMemory(ctx, userID, c.Category, c.Key, c.Value, c.Confidence, source); err != nil {
			im.logger.Error().Err(err).Str("filename", filename).Str("key", c.Key).Msg("Failed to store semantic memory")
			report.Failed.Semantic++
			continue
		}
		report.Stored.Semantic++
	}
	return nil
}

// readZip collects the text entries of a ZIP archive worth importing.
func (im *Importer) readZip(data []byte, zipName string) ([]sourceFile, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", zipName, err)
	}

	var files []sourceFile
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !lo.Contains(textExtensions, strings.ToLower(path.Ext(entry.Name))) {
			continue
		}
		base := path.Base(entry.Name)
		if strings.HasPrefix(base, ".") || base == "metadata.json" {
			continue
		}
		if entry.UncompressedSize64 > maxZipEntrySize {
			im.logger.Warn().Str("entry", entry.Name).Msg("Skipping oversized zip entry")
			continue
		}
		content, err := readZipEntry(entry)
		if err != nil {
			im.logger.Warn().Err(err).Str("entry", entry.Name).Msg("Skipping unreadable zip entry")
			continue
		}
		if utf8.RuneCountInString(content) < minFileRunes {
			continue
		}
		files = append(files, sourceFile{name: zipName + "/" + entry.Name, content: content})
	}
	return files, nil
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close() //nolint:errcheck // read-only
	b, err := io.ReadAll(io.LimitReader(rc, maxZipEntrySize))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
