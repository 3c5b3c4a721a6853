package db

// Dictionary is one imported dictionary. A WordsCount of zero means the
// import never reached finalization; such rows are orphans and get removed
// by the startup sweep.
type Dictionary struct {
	ID          string
	Title       string
	Revision    string // "" when the archive carried no revision
	Description string
	WordsCount  int
}

// Word is one dictionary entry reconstructed from a shard.
type Word struct {
	ID           string
	WordOriginal string
	Reading      string
	Definitions  []string
	DictionaryID string
}
