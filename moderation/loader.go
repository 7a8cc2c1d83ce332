package moderation

import (
	"bufio"
	"bytes"
	"chat-gate/errors"
	"embed"
	"io/fs"
	"path"
	"strings"
)

// DefaultDictionaries ships one word list per language, named by ISO 639-1 code.
//
//go:embed dictionaries/*.txt
var DefaultDictionaries embed.FS

const DefaultDictionaryDir = "dictionaries"

// Dictionaries maps a language code (e.g. "fr") to its censored words.
type Dictionaries map[string][]string

// Words returns every word of every language, deduplicated.
func (d Dictionaries) Words() []string {
	unique := make(map[string]struct{})
	var words []string
	for _, list := range d {
		for _, w := range list {
			if _, ok := unique[w]; !ok {
				unique[w] = struct{}{}
				words = append(words, w)
			}
		}
	}
	return words
}

// LoadDictionaries scans dir, reading each .txt file as the dictionary of the
// language named by the file ("fr.txt" -> "fr").
func LoadDictionaries(fsys fs.FS, dir string) (Dictionaries, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	dictionaries := make(Dictionaries)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".txt")

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// ⚠️Don't use strings.Split, the scanner handles \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				dictionaries[lang] = append(dictionaries[lang], line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(dictionaries) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return dictionaries, nil
}
