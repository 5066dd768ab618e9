package internal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"ohtalk/repositories"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const (
	inspectEndpoint = "/inspect"
	defaultPrefix   = "user:"
	maxRows         = 500
)

type InspectRow struct {
	Key       string
	Kind      string
	EntityID  string
	Timestamp string
	Detail    string
}

type RowMapper func(key, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix    string
	Prefixes  []string
	Items     []InspectRow
	Truncated bool
	Stats     map[string]any
}

// DebugServer serves a read-only HTML view of the badger keyspace while the
// chat server runs.
type DebugServer struct {
	db       *badger.DB
	port     int
	mapper   RowMapper
	stats    StatsProvider
	log      *slog.Logger
	template *template.Template
}

func NewDebugServer(db *badger.DB, port int, mapper RowMapper, stats StatsProvider, log *slog.Logger) *DebugServer {
	if mapper == nil {
		mapper = DefaultMapper
	}
	return &DebugServer{
		db:       db,
		port:     port,
		mapper:   mapper,
		stats:    stats,
		log:      log,
		template: template.Must(template.ParseFS(templatesFS, "inspect.html")),
	}
}

func (s *DebugServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(inspectEndpoint, s.inspect)
	return mux
}

// Run serves until ctx is cancelled.
func (s *DebugServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
	defer stop()

	s.log.Info("Debug inspector listening", "url", fmt.Sprintf("http://%s%s", server.Addr, inspectEndpoint))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *DebugServer) inspect(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = defaultPrefix
	}

	data := PageData{
		Prefix:   prefix,
		Prefixes: repositories.Prefixes,
		Stats:    make(map[string]any),
	}
	if s.stats != nil {
		data.Stats = s.stats()
	}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if len(data.Items) == maxRows {
				data.Truncated = true
				return nil
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				data.Items = append(data.Items, s.mapper(item.KeyCopy(nil), val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("Debug inspector read failed", "prefix", prefix, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err = s.template.Execute(w, data); err != nil {
		s.log.Warn("Debug inspector render failed", "error", err)
	}
}

// DefaultMapper renders a key with the store's own record decoder.
func DefaultMapper(key, val []byte) InspectRow {
	record := repositories.Describe(key, val)
	row := InspectRow{
		Key:       record.Key,
		Kind:      record.Kind,
		EntityID:  record.ID,
		Timestamp: "--:--:--",
		Detail:    record.Detail,
	}
	if !record.At.IsZero() {
		row.Timestamp = record.At.Local().Format("2006-01-02 15:04:05")
	}
	return row
}
