package internal

import (
	"chat-gate/codec"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

// MaxInspectRows bounds a single page of the key browser.
const MaxInspectRows = 500

const maxDetail = 120

type InspectRow struct {
	Key       string
	Namespace string
	Timestamp string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix    string
	Prefixes  []string
	Items     []InspectRow
	Stats     map[string]any
	Truncated bool
}

// NewDebugMux serves a read-only view of the store under /inspect and the
// runtime gauges under /stats. Callers mount their own handlers next to them.
func NewDebugMux(db *badger.DB, prefixes []string, mapper RowMapper, statsProvider StatsProvider, log *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}
	if statsProvider == nil {
		statsProvider = func() map[string]any { return map[string]any{} }
	}

	mux.HandleFunc("GET /inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" && len(prefixes) > 0 {
			prefix = prefixes[0]
		}

		items, truncated, err := Scan(db, prefix, MaxInspectRows, mapper)
		if err != nil {
			log.Error("Inspect scan failed", "prefix", prefix, "error", err)
			http.Error(w, "scan failed", http.StatusInternalServerError)
			return
		}

		data := PageData{
			Prefix:    prefix,
			Prefixes:  prefixes,
			Items:     items,
			Stats:     statsProvider(),
			Truncated: truncated,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Error("Inspect render failed", "error", err)
		}
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statsProvider()); err != nil {
			log.Error("Stats encoding failed", "error", err)
		}
	})

	return mux
}

// Scan walks the keys under prefix in order and maps at most limit of them.
// It reports whether more keys were left.
func Scan(db *badger.DB, prefix string, limit int, mapper RowMapper) ([]InspectRow, bool, error) {
	var (
		rows      []InspectRow
		truncated bool
	)
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if len(rows) == limit {
				truncated = true
				return nil
			}
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				rows = append(rows, mapper(key, val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rows, truncated, err
}

// DefaultMapper splits a key on ':'. The first part is the record family, a
// 19 digit part is read as a UnixNano timestamp and the last part is the entity.
// Values are decoded as CBOR when possible.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:       key,
		Namespace: parts[0],
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    "size: " + strconv.Itoa(len(val)) + " bytes",
	}

	if len(parts) > 1 {
		row.EntityID = parts[len(parts)-1]
		if len(row.EntityID) > 8 {
			row.EntityID = row.EntityID[:8]
		}
	}
	for _, p := range parts[1:] {
		if len(p) != 19 {
			continue
		}
		if tsNano, err := strconv.ParseInt(p, 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format(time.TimeOnly)
			break
		}
	}

	if len(val) == 0 {
		row.Detail = "(index)"
		return row
	}
	var decoded any
	if err := codec.Unmarshal(val, &decoded); err == nil {
		detail := fmt.Sprintf("%v", decoded)
		if len(detail) > maxDetail {
			detail = detail[:maxDetail] + "…"
		}
		row.Detail = detail
	}
	return row
}
