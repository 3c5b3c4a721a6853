package db

// migrationsSQL is the full schema. InitDB splits on ';' and executes each
// statement, so no statement may contain a literal semicolon.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS dictionaries (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	revision TEXT NOT NULL DEFAULT '',
	description TEXT,
	words_count INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dictionaries_title_revision
	ON dictionaries(title, revision);

CREATE TABLE IF NOT EXISTS words (
	id TEXT PRIMARY KEY,
	word_original TEXT NOT NULL,
	reading TEXT NOT NULL,
	definitions TEXT NOT NULL,
	dictionary_id TEXT NOT NULL REFERENCES dictionaries(id)
);

CREATE INDEX IF NOT EXISTS idx_words_dictionary ON words(dictionary_id);

CREATE INDEX IF NOT EXISTS idx_words_reading ON words(reading);
`
