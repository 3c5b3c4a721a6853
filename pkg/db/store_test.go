package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestDictionary(t *testing.T, db *sql.DB, id, title, revision string, count int) {
	t.Helper()
	err := InsertDictionary(db, Dictionary{ID: id, Title: title, Revision: revision, WordsCount: count})
	if err != nil {
		t.Fatalf("insert dictionary: %v", err)
	}
}

func TestFindDictionary(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "JMdict", "1.0", 10)

	d, err := FindDictionary(db, "JMdict", "1.0")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if d.ID != "d1" || d.WordsCount != 10 {
		t.Fatalf("unexpected dictionary: %+v", d)
	}

	if _, err := FindDictionary(db, "JMdict", "2.0"); err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows for other revision, got %v", err)
	}
}

func TestFindDictionaryEmptyRevision(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "JMdict", "", 5)

	// An archive without a revision must match an imported dictionary
	// without a revision, and nothing else.
	if _, err := FindDictionary(db, "JMdict", ""); err != nil {
		t.Fatalf("find with empty revision: %v", err)
	}
	if _, err := FindDictionary(db, "JMdict", "1.0"); err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestListCompleteDictionariesFiltersOrphans(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "JMdict", "1.0", 10)
	insertTestDictionary(t, db, "d2", "Orphan", "1.0", 0)

	dicts, err := ListCompleteDictionaries(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dicts) != 1 {
		t.Fatalf("expected 1 complete dictionary, got %d", len(dicts))
	}
	if dicts[0].Title != "JMdict" {
		t.Fatalf("expected JMdict, got %s", dicts[0].Title)
	}
}

func TestInsertWordValidation(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "JMdict", "1.0", 0)

	cases := []struct {
		name string
		word Word
	}{
		{"empty original", Word{ID: "w1", Reading: "ねこ", Definitions: []string{"cat"}, DictionaryID: "d1"}},
		{"empty reading", Word{ID: "w2", WordOriginal: "猫", Definitions: []string{"cat"}, DictionaryID: "d1"}},
		{"no definitions", Word{ID: "w3", WordOriginal: "猫", Reading: "ねこ", DictionaryID: "d1"}},
	}
	for _, tc := range cases {
		if err := InsertWord(db, tc.word); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestSearchWords(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "JMdict", "1.0", 2)
	words := []Word{
		{ID: "w1", WordOriginal: "猫", Reading: "ねこ", Definitions: []string{"cat"}, DictionaryID: "d1"},
		{ID: "w2", WordOriginal: "子猫", Reading: "こねこ", Definitions: []string{"kitten"}, DictionaryID: "d1"},
		{ID: "w3", WordOriginal: "犬", Reading: "いぬ", Definitions: []string{"dog"}, DictionaryID: "d1"},
	}
	for _, w := range words {
		if err := InsertWord(db, w); err != nil {
			t.Fatalf("insert word %s: %v", w.WordOriginal, err)
		}
	}

	got, err := SearchWords(db, "猫")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches for 猫, got %d", len(got))
	}
	// Ordered by reading: こねこ before ねこ
	if got[0].WordOriginal != "子猫" || got[1].WordOriginal != "猫" {
		t.Fatalf("unexpected order: %s, %s", got[0].WordOriginal, got[1].WordOriginal)
	}
	if len(got[1].Definitions) != 1 || got[1].Definitions[0] != "cat" {
		t.Fatalf("definitions round-trip failed: %v", got[1].Definitions)
	}

	byReading, err := SearchWords(db, "いぬ")
	if err != nil {
		t.Fatalf("search by reading: %v", err)
	}
	if len(byReading) != 1 || byReading[0].WordOriginal != "犬" {
		t.Fatalf("expected 犬 by reading, got %v", byReading)
	}

	empty, err := SearchWords(db, "  ")
	if err != nil || empty != nil {
		t.Fatalf("blank term should match nothing, got %v, %v", empty, err)
	}

	// LIKE metacharacters are literals, not wildcards.
	wild, err := SearchWords(db, "%")
	if err != nil {
		t.Fatalf("search literal %%: %v", err)
	}
	if len(wild) != 0 {
		t.Fatalf("expected no matches for literal %%, got %d", len(wild))
	}
}

func TestUpdateDictionaryWordCount(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "JMdict", "1.0", 0)

	if err := UpdateDictionaryWordCount(db, "d1", 42); err != nil {
		t.Fatalf("update: %v", err)
	}
	d, err := FindDictionary(db, "JMdict", "1.0")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if d.WordsCount != 42 {
		t.Fatalf("expected 42 words, got %d", d.WordsCount)
	}

	if err := UpdateDictionaryWordCount(db, "missing", 1); err == nil {
		t.Fatal("expected error for unknown dictionary")
	}
}

func TestOrphanedDictionaryDeletion(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "Complete", "1.0", 1)
	insertTestDictionary(t, db, "d2", "Orphan", "1.0", 0)
	for i, dict := range []string{"d1", "d2"} {
		w := Word{
			ID:           []string{"w1", "w2"}[i],
			WordOriginal: "猫",
			Reading:      "ねこ",
			Definitions:  []string{"cat"},
			DictionaryID: dict,
		}
		if err := InsertWord(db, w); err != nil {
			t.Fatalf("insert word: %v", err)
		}
	}

	ids, err := OrphanedDictionaryIDs(db)
	if err != nil {
		t.Fatalf("orphans: %v", err)
	}
	if len(ids) != 1 || ids[0] != "d2" {
		t.Fatalf("expected [d2], got %v", ids)
	}

	words, err := DeleteWordsByDictionaries(db, ids)
	if err != nil {
		t.Fatalf("delete words: %v", err)
	}
	if words != 1 {
		t.Fatalf("expected 1 word deleted, got %d", words)
	}
	dicts, err := DeleteDictionaries(db, ids)
	if err != nil {
		t.Fatalf("delete dictionaries: %v", err)
	}
	if dicts != 1 {
		t.Fatalf("expected 1 dictionary deleted, got %d", dicts)
	}

	remaining, err := CountWordsByDictionary(db, "d1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("complete dictionary lost words: %d", remaining)
	}
}

func TestDuplicateTitleRevisionRejected(t *testing.T) {
	db := setupTestDB(t)
	insertTestDictionary(t, db, "d1", "JMdict", "1.0", 1)
	err := InsertDictionary(db, Dictionary{ID: "d2", Title: "JMdict", Revision: "1.0"})
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
}
