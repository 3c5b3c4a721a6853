package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// InsertDictionary persists a dictionary row. WordsCount is written as-is; a
// freshly created dictionary carries 0 until its import finalizes.
func InsertDictionary(db DBExecutor, d Dictionary) error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("dictionary title must be non-empty")
	}
	_, err := db.Exec(
		`INSERT INTO dictionaries (id, title, revision, description, words_count) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Revision, nullableString(d.Description), d.WordsCount,
	)
	if err != nil {
		return fmt.Errorf("insert dictionary: %w", err)
	}
	return nil
}

// FindDictionary returns the dictionary with the given title and revision, or
// sql.ErrNoRows. An empty revision matches archives that carried none.
func FindDictionary(db DBExecutor, title, revision string) (Dictionary, error) {
	row := db.QueryRow(
		`SELECT id, title, revision, description, words_count FROM dictionaries WHERE title = ? AND revision = ?`,
		title, revision,
	)
	return scanDictionary(row)
}

// ListCompleteDictionaries returns dictionaries whose import finished, i.e.
// words_count > 0, ordered by title.
func ListCompleteDictionaries(db DBExecutor) ([]Dictionary, error) {
	rows, err := db.Query(
		`SELECT id, title, revision, description, words_count FROM dictionaries WHERE words_count > 0 ORDER BY title, revision`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Dictionary
	for rows.Next() {
		var d Dictionary
		var desc sql.NullString
		if err := rows.Scan(&d.ID, &d.Title, &d.Revision, &desc, &d.WordsCount); err != nil {
			return nil, err
		}
		d.Description = desc.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountDictionaries returns the number of dictionary rows, complete or not.
func CountDictionaries(db DBExecutor) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM dictionaries`).Scan(&n)
	return n, err
}

// UpdateDictionaryWordCount sets the denormalized word count, performed once
// at import finalization.
func UpdateDictionaryWordCount(db DBExecutor, id string, count int) error {
	res, err := db.Exec(`UPDATE dictionaries SET words_count = ? WHERE id = ?`, count, id)
	if err != nil {
		return fmt.Errorf("update word count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update word count: dictionary %s not found", id)
	}
	return nil
}

// InsertWord persists one word row. Definitions are stored as a JSON array in
// a text column.
func InsertWord(db DBExecutor, w Word) error {
	if strings.TrimSpace(w.WordOriginal) == "" {
		return fmt.Errorf("word original form must be non-empty")
	}
	if strings.TrimSpace(w.Reading) == "" {
		return fmt.Errorf("word reading must be non-empty")
	}
	if len(w.Definitions) == 0 {
		return fmt.Errorf("word must have at least one definition")
	}
	defs, err := json.Marshal(w.Definitions)
	if err != nil {
		return fmt.Errorf("marshal definitions: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO words (id, word_original, reading, definitions, dictionary_id) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.WordOriginal, w.Reading, string(defs), w.DictionaryID,
	)
	if err != nil {
		return fmt.Errorf("insert word: %w", err)
	}
	return nil
}

// SearchWords returns words whose original form or reading contains the given
// substring, ordered by reading. An empty term matches nothing.
func SearchWords(db DBExecutor, term string) ([]Word, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(term) + "%"
	rows, err := db.Query(
		`SELECT id, word_original, reading, definitions, dictionary_id FROM words
		 WHERE word_original LIKE ? ESCAPE '\' OR reading LIKE ? ESCAPE '\'
		 ORDER BY reading, word_original`,
		pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWords(rows)
}

// WordsByDictionary returns all words owned by the given dictionary.
func WordsByDictionary(db DBExecutor, dictionaryID string) ([]Word, error) {
	rows, err := db.Query(
		`SELECT id, word_original, reading, definitions, dictionary_id FROM words WHERE dictionary_id = ? ORDER BY reading, word_original`,
		dictionaryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWords(rows)
}

// CountWordsByDictionary returns the number of word rows owned by the dictionary.
func CountWordsByDictionary(db DBExecutor, dictionaryID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM words WHERE dictionary_id = ?`, dictionaryID).Scan(&n)
	return n, err
}

// OrphanedDictionaryIDs returns ids of dictionaries whose import never
// finalized (words_count = 0).
func OrphanedDictionaryIDs(db DBExecutor) ([]string, error) {
	rows, err := db.Query(`SELECT id FROM dictionaries WHERE words_count = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteWordsByDictionaries removes all words owned by any of the given
// dictionaries. Must run before DeleteDictionaries so no word is left dangling.
func DeleteWordsByDictionaries(db DBExecutor, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args := inClause(`DELETE FROM words WHERE dictionary_id IN `, ids)
	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete words: %w", err)
	}
	return res.RowsAffected()
}

// DeleteDictionaries removes the given dictionary rows.
func DeleteDictionaries(db DBExecutor, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args := inClause(`DELETE FROM dictionaries WHERE id IN `, ids)
	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete dictionaries: %w", err)
	}
	return res.RowsAffected()
}

func scanDictionary(row *sql.Row) (Dictionary, error) {
	var d Dictionary
	var desc sql.NullString
	if err := row.Scan(&d.ID, &d.Title, &d.Revision, &desc, &d.WordsCount); err != nil {
		return Dictionary{}, err
	}
	d.Description = desc.String
	return d, nil
}

func scanWords(rows *sql.Rows) ([]Word, error) {
	var out []Word
	for rows.Next() {
		var w Word
		var defs string
		if err := rows.Scan(&w.ID, &w.WordOriginal, &w.Reading, &defs, &w.DictionaryID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(defs), &w.Definitions); err != nil {
			return nil, fmt.Errorf("unmarshal definitions for word %s: %w", w.ID, err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func inClause(prefix string, ids []string) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return prefix + "(" + strings.Join(placeholders, ", ") + ")", args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
