// Package search keeps a bluge index of user emails for the directory search.
// The index is derived from the badger store and rebuilt at startup.
package search

import (
	"chat-gate/domain"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blugelabs/bluge"
)

const (
	fieldID    = "_id"
	fieldEmail = "email"
)

// wildcards are stripped from queries: a query is a plain substring.
var wildcards = strings.NewReplacer("*", "", "?", "")

type UserIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// OpenUserIndex opens a disk index at path, or an in-memory one when path is empty.
func OpenUserIndex(path string, log *slog.Logger) (*UserIndex, error) {
	cfg := bluge.InMemoryOnlyConfig()
	if path != "" {
		cfg = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("open user index: %w", err)
	}
	return &UserIndex{writer: writer, log: log}, nil
}

// Index adds or replaces the document of u.
func (i *UserIndex) Index(u domain.User) error {
	doc := bluge.NewDocument(u.ID).
		AddField(bluge.NewKeywordField(fieldEmail, domain.NormalizeEmail(u.Email)).Sortable())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the ids of users whose email contains query, ordered by email.
func (i *UserIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	term := wildcards.Replace(strings.ToLower(strings.TrimSpace(query)))
	if term == "" || limit <= 0 {
		return nil, nil
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Unable to close index reader", "error", err)
		}
	}()

	q := bluge.NewWildcardQuery("*" + term + "*").SetField(fieldEmail)
	request := bluge.NewTopNSearch(limit, q).SortBy([]string{fieldEmail})
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	var ids []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == fieldID {
				ids = append(ids, string(value))
				return false
			}
			return true
		})
		if err == nil {
			match, err = matches.Next()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read search results: %w", err)
	}
	return ids, nil
}

func (i *UserIndex) Close() error {
	return i.writer.Close()
}
