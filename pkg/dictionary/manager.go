package dictionary

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/japaniel/yomidict/pkg/db"
)

// Manager serves the read paths over imported dictionaries. Store failures
// on these paths are logged and swallowed to empty results: a listing or
// search surface must never crash on a query error.
type Manager struct {
	DB     *sql.DB
	Logger *zap.Logger
}

func NewManager(conn *sql.DB, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{DB: conn, Logger: logger}
}

// ListDictionaries returns all completely imported dictionaries. A
// dictionary mid-import (word count 0) is not listed.
func (m *Manager) ListDictionaries() []db.Dictionary {
	dicts, err := db.ListCompleteDictionaries(m.DB)
	if err != nil {
		m.Logger.Warn("list dictionaries failed", zap.Error(err))
		return nil
	}
	return dicts
}

// SearchWords returns words whose written form or reading contains term.
// Katakana input is also folded to hiragana so readings stored either way
// still match.
func (m *Manager) SearchWords(term string) []db.Word {
	words, err := db.SearchWords(m.DB, term)
	if err != nil {
		m.Logger.Warn("search words failed", zap.String("term", term), zap.Error(err))
		return nil
	}
	if folded := ToHiragana(term); folded != term {
		more, err := db.SearchWords(m.DB, folded)
		if err != nil {
			m.Logger.Warn("search words failed", zap.String("term", folded), zap.Error(err))
			return words
		}
		words = mergeWords(words, more)
	}
	return words
}

// WordsByDictionary returns every word owned by the given dictionary.
func (m *Manager) WordsByDictionary(dictionaryID string) []db.Word {
	words, err := db.WordsByDictionary(m.DB, dictionaryID)
	if err != nil {
		m.Logger.Warn("fetch dictionary words failed",
			zap.String("dictionary", dictionaryID), zap.Error(err))
		return nil
	}
	return words
}

func mergeWords(a, b []db.Word) []db.Word {
	seen := make(map[string]bool, len(a))
	for _, w := range a {
		seen[w.ID] = true
	}
	for _, w := range b {
		if !seen[w.ID] {
			a = append(a, w)
		}
	}
	return a
}
