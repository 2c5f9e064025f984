package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"promptloom/internal/config"
	"promptloom/internal/worldinfo"
)

type mockStore struct {
	books       map[string]bool
	entries     map[string][]worldinfo.Entry
	removeCalls []struct {
		book  string
		files []string
	}
	ensureCalled bool
	failEntry    string
	entryHashes  map[string]map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{books: map[string]bool{}, entries: map[string][]worldinfo.Entry{}}
}

func (m *mockStore) EnsureSchema(ctx context.Context) error {
	m.ensureCalled = true
	return nil
}

func (m *mockStore) UpsertWorldBook(ctx context.Context, name string, enabled bool, settings worldinfo.Settings) error {
	m.books[name] = enabled
	return nil
}

func (m *mockStore) UpsertEntry(ctx context.Context, book string, e worldinfo.Entry) error {
	if m.failEntry != "" && e.ID == m.failEntry {
		return errors.New("forced error")
	}
	m.entries[book] = append(m.entries[book], e)
	return nil
}

func (m *mockStore) GetEntryHashes(ctx context.Context, book string) (map[string]string, error) {
	if hashes, ok := m.entryHashes[book]; ok {
		return hashes, nil
	}
	return map[string]string{}, nil
}

func (m *mockStore) RemoveStaleEntries(ctx context.Context, book string, currentSourceFiles []string) (int64, error) {
	m.removeCalls = append(m.removeCalls, struct {
		book  string
		files []string
	}{book: book, files: currentSourceFiles})
	return 1, nil
}

func (m *mockStore) entryIDs(book string) []string {
	ids := make([]string, 0, len(m.entries[book]))
	for _, e := range m.entries[book] {
		ids = append(ids, e.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestRun_BasicIngestion(t *testing.T) {
	cfg := testProjectConfig(t)
	db := newMockStore()

	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !db.ensureCalled {
		t.Fatalf("expected ensure schema")
	}
	if enabled, ok := db.books["setting"]; !ok || !enabled {
		t.Fatalf("expected enabled setting book, got %v", db.books)
	}
	if !reflect.DeepEqual(db.entryIDs("setting"), []string{"dragons", "places/capital"}) {
		t.Fatalf("unexpected entry ids: %v", db.entryIDs("setting"))
	}
	if result.EntriesUpserted != 2 {
		t.Fatalf("expected 2 entries upserted, got %d", result.EntriesUpserted)
	}
	if result.FilesSkipped != 1 {
		t.Fatalf("expected the plain note to be skipped, got %d", result.FilesSkipped)
	}
	if result.EntriesRemoved != 1 {
		t.Fatalf("expected removed count from store, got %d", result.EntriesRemoved)
	}

	for _, e := range db.entries["setting"] {
		if e.SourceHash == "" || e.SourceFile == "" {
			t.Fatalf("expected source file and hash on %s", e.ID)
		}
	}
}

func TestRun_FrontmatterIDWins(t *testing.T) {
	cfg := testProjectConfig(t)
	writeLore(t, cfg.Layers[0].Paths[0], "named.md", "---\nid: custom-id\ntitle: Named\nkeys: [n]\n---\nx\n")
	db := newMockStore()

	if _, err := Run(context.Background(), cfg, db, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	found := false
	for _, id := range db.entryIDs("setting") {
		if id == "custom-id" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected custom-id, got %v", db.entryIDs("setting"))
	}
}

func TestRun_DuplicateIDs(t *testing.T) {
	cfg := testProjectConfig(t)
	writeLore(t, cfg.Layers[0].Paths[0], "zz-dup.md", "---\nid: dragons\ntitle: Other\n---\nx\n")
	db := newMockStore()

	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 duplicate error, got %v", result.Errors)
	}
}

func TestRun_ParseErrorsAreCollected(t *testing.T) {
	cfg := testProjectConfig(t)
	writeLore(t, cfg.Layers[0].Paths[0], "broken.md", "---\ntitle: Broken\nstrategy: sometimes\n---\n")
	db := newMockStore()

	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if result.EntriesUpserted != 2 {
		t.Fatalf("expected remaining entries ingested, got %d", result.EntriesUpserted)
	}
}

func TestRun_ContinuesOnError(t *testing.T) {
	cfg := testProjectConfig(t)
	db := newMockStore()
	db.failEntry = "dragons"

	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected errors")
	}
	if result.EntriesUpserted != 1 {
		t.Fatalf("expected the other entry upserted, got %d", result.EntriesUpserted)
	}
}

func TestRun_RemoveStaleEntries(t *testing.T) {
	cfg := testProjectConfig(t)
	db := newMockStore()

	if _, err := Run(context.Background(), cfg, db, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(db.removeCalls) != 1 {
		t.Fatalf("expected remove stale entries call")
	}
	if len(db.removeCalls[0].files) != 3 {
		t.Fatalf("expected every walked file in the keep list, got %v", db.removeCalls[0].files)
	}
}

func TestRun_IncrementalSkip(t *testing.T) {
	cfg := testProjectConfig(t)
	path := filepath.Join(cfg.Layers[0].Paths[0], "dragons.md")
	hash, err := computeHash(path)
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	db := newMockStore()
	db.entryHashes = map[string]map[string]string{"setting": {path: hash}}

	result, err := Run(context.Background(), cfg, db, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(db.entryIDs("setting"), []string{"places/capital"}) {
		t.Fatalf("expected dragons to be skipped, got %v", db.entryIDs("setting"))
	}
	if result.FilesSkipped != 2 {
		t.Fatalf("expected 2 skipped files, got %d", result.FilesSkipped)
	}
	if len(db.removeCalls[0].files) != 3 {
		t.Fatalf("expected skipped files to stay in the keep list")
	}
}

func TestRun_FullIngestionOverridesHashes(t *testing.T) {
	cfg := testProjectConfig(t)
	path := filepath.Join(cfg.Layers[0].Paths[0], "dragons.md")
	hash, err := computeHash(path)
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	db := newMockStore()
	db.entryHashes = map[string]map[string]string{"setting": {path: hash}}

	if _, err := Run(context.Background(), cfg, db, Options{Full: true}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(db.entryIDs("setting")) != 2 {
		t.Fatalf("expected dragons to be ingested in full mode, got %v", db.entryIDs("setting"))
	}
}

func TestRun_DisabledLayerAndExcludes(t *testing.T) {
	cfg := testProjectConfig(t)
	disabled := false
	drafts := t.TempDir()
	writeLore(t, drafts, "idea.md", "---\ntitle: Idea\n---\nx\n")
	writeLore(t, drafts, "idea.draft.md", "---\ntitle: Draft\n---\nx\n")
	cfg.Layers = append(cfg.Layers, config.Layer{Name: "drafts", Paths: []string{drafts}, Enabled: &disabled})
	cfg.Exclude = []string{"*.draft.md"}
	db := newMockStore()

	if _, err := Run(context.Background(), cfg, db, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if enabled, ok := db.books["drafts"]; !ok || enabled {
		t.Fatalf("expected disabled drafts book")
	}
	if !reflect.DeepEqual(db.entryIDs("drafts"), []string{"idea"}) {
		t.Fatalf("expected excluded draft to be ignored, got %v", db.entryIDs("drafts"))
	}
}

func TestIsExcluded(t *testing.T) {
	cases := []struct {
		path     string
		excludes []string
		expected bool
	}{
		{path: "lore/assets/a.md", excludes: []string{"lore/assets"}, expected: true},
		{path: "lore/assets.md", excludes: []string{"lore/assets"}, expected: false},
		{path: "lore/a.draft.md", excludes: []string{"*.draft.md"}, expected: true},
		{path: "lore/a.md", excludes: nil, expected: false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			if got := isExcluded(tc.path, tc.excludes); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func testProjectConfig(t *testing.T) *config.ProjectConfig {
	t.Helper()
	root := t.TempDir()
	writeLore(t, root, "dragons.md", "---\ntitle: Dragons\nkeys: [dragon]\n---\nDragons are feared here.\n")
	writeLore(t, root, filepath.Join("places", "capital.md"), "---\ntitle: Capital\nstrategy: constant\n---\nThe capital sits on a river.\n")
	writeLore(t, root, "notes.md", "Plain notes without frontmatter.\n")
	return &config.ProjectConfig{
		Project:   "test",
		Version:   1,
		WorldInfo: worldinfo.Settings{ScanDepth: 2},
		Layers: []config.Layer{{
			Name:  "setting",
			Paths: []string{root},
		}},
	}
}

func writeLore(t *testing.T, root, name, contents string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
