package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PodJamz/8gent-sub005/llm"
	"github.com/PodJamz/8gent-sub005/memory"
	"github.com/PodJamz/8gent-sub005/migrations"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestManager(t *testing.T) *memory.Manager {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.RunMigrations(db, zerolog.Nop()))

	store, err := memory.NewStore(db, zerolog.Nop())
	require.NoError(t, err)
	m, err := memory.NewManager(store, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestImporter_RejectsInput(t *testing.T) {
	im, err := NewImporter(setupTestManager(t), nil, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = im.Import(ctx, "u1", "photo.png", []byte(strings.Repeat("x", 100)))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = im.Import(ctx, "u1", "tiny.txt", []byte("too short"))
	assert.ErrorIs(t, err, ErrContentTooShort)

	_, err = im.Import(ctx, "u1", "empty.zip", buildZip(t, map[string]string{"img.png": strings.Repeat("x", 100)}))
	assert.ErrorIs(t, err, ErrEmptyArchive)

	_, err = NewImporter(nil, nil, zerolog.Nop())
	assert.ErrorIs(t, err, memory.ErrStoreUnavailable)
}

func TestImporter_HeuristicFile(t *testing.T) {
	m := setupTestManager(t)
	im, err := NewImporter(m, nil, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	content := "We decided to use SQLite for local storage.\n\nShipped version one of the CLI this week."
	report, err := im.Import(ctx, "u1", "journal.md", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, ModeHeuristic, report.ProcessingMode)
	assert.Equal(t, "Processed journal.md: extracted 2 memories", report.Summary)
	assert.Equal(t, Counts{Episodic: 2}, report.Extracted)
	assert.Equal(t, Counts{Episodic: 2}, report.Stored)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "journal.md", report.Files[0].Filename)

	recent, err := m.GetRecentMemories(ctx, "u1", "", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, r := range recent {
		assert.Equal(t, "Imported from journal.md", r.Metadata["outcome"])
		assert.Equal(t, []interface{}{"file_upload", "heuristic_extraction"}, r.Metadata["toolsUsed"])
	}
}

func TestImporter_AIZipDedupesAcrossFiles(t *testing.T) {
	m := setupTestManager(t)
	client := &scriptedClient{replies: []string{
		`{"episodicMemories":[{"content":"Discussed the roadmap for Q3","memoryType":"interaction","importance":0.6,"context":"planning call"}],
		  "semanticMemories":[{"category":"skill","key":"primary_language","value":"Go","confidence":0.6}],
		  "processingNotes":["first file"]}`,
		`{"semanticMemories":[{"category":"skill","key":"primary_language","value":"TypeScript","confidence":0.9}],
		  "processingNotes":["second file"]}`,
	}}
	chunker := NewChunker(NewExtractor(client, "", zerolog.Nop()), zerolog.Nop())
	im, err := NewImporter(m, chunker, zerolog.Nop())
	require.NoError(t, err)

	data := buildZip(t, map[string]string{
		"a/notes.md":     strings.Repeat("roadmap notes ", 10),
		"a/notes2.txt":   strings.Repeat("language notes ", 10),
		"a/.hidden.txt":  strings.Repeat("hidden ", 20),
		"metadata.json":  strings.Repeat("m", 100),
		"a/short.txt":    "tiny",
		"a/image.png":    strings.Repeat("p", 100),
		"a/sub/":         "",
	})
	ctx := context.Background()
	report, err := im.Import(ctx, "u1", "export.zip", data)
	require.NoError(t, err)

	assert.Equal(t, ModeAI, report.ProcessingMode)
	assert.Equal(t, 2, report.FilesProcessed)
	assert.Len(t, client.requests, 2)
	assert.Equal(t, Counts{Episodic: 1, Semantic: 1}, report.Extracted)
	assert.Equal(t, Counts{Episodic: 1, Semantic: 1}, report.Stored)
	assert.Equal(t, "Processed 2 files from export.zip: extracted 2 memories", report.Summary)
	assert.ElementsMatch(t, []string{"first file", "second file"}, report.ProcessingNotes)

	facts, err := m.GetAllSemanticMemories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "TypeScript", facts[0].Value)

	recent, err := m.GetRecentMemories(ctx, "u1", "", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "planning call", recent[0].Metadata["outcome"])
	assert.Equal(t, []interface{}{"file_upload", "ai_extraction"}, recent[0].Metadata["toolsUsed"])
}

func TestImporter_MissingKeyFailsImport(t *testing.T) {
	client := llm.ClientFunc(func(context.Context, *llm.Request) (*llm.Response, error) {
		return nil, llm.ErrMissingAPIKey
	})
	chunker := NewChunker(NewExtractor(client, "", zerolog.Nop()), zerolog.Nop())
	im, err := NewImporter(setupTestManager(t), chunker, zerolog.Nop())
	require.NoError(t, err)

	_, err = im.Import(context.Background(), "u1", "n.txt", []byte(strings.Repeat("content ", 20)))
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestImporter_ImportFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "log.txt")
	require.NoError(t, os.WriteFile(p, []byte("I prefer dark mode in every editor I use daily."), 0o600))

	im, err := NewImporter(setupTestManager(t), nil, zerolog.Nop())
	require.NoError(t, err)
	_, err = im.ImportFile(context.Background(), "u1", p)
	assert.ErrorIs(t, err, ErrContentTooShort)

	require.NoError(t, os.WriteFile(p, []byte("I prefer dark mode in every editor I use daily, including the terminal."), 0o600))
	report, err := im.ImportFile(context.Background(), "u1", p)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stored.Episodic)
}

func TestImporter_IngestText(t *testing.T) {
	m := setupTestManager(t)
	client := &scriptedClient{replies: []string{
		`{"semanticMemories":[{"category":"preference","key":"editor","value":"Neovim","confidence":0.8}]}`,
	}}
	im, err := NewImporter(m, NewChunker(NewExtractor(client, "", zerolog.Nop()), zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = im.IngestText(ctx, "u1", "transcript", "   ")
	assert.ErrorIs(t, err, ErrContentTooShort)

	report, err := im.IngestText(ctx, "u1", "transcript", "I use Neovim.")
	require.NoError(t, err)
	assert.Equal(t, "Processed transcript: extracted 1 memories", report.Summary)
	assert.Equal(t, 1, report.Stored.Semantic)

	facts, err := m.GetAllSemanticMemories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Extracted from transcript", facts[0].Source)
}
