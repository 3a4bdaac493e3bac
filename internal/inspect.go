package internal

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// inspectPage is a minimal operator view over the raw key space. It is only
// served when DEBUG_PORT is set and must never be exposed publicly.
const inspectPage = `<!DOCTYPE html>
<html>
<head><title>storage inspector</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #eee; }
</style>
</head>
<body>
<h2>prefix: {{.Prefix}}</h2>
<table>
<tr><th>Key</th><th>Namespace</th><th>Timestamp</th><th>Entity</th><th>Detail</th></tr>
{{range .Items}}
<tr><td>{{.Key}}</td><td>{{.Namespace}}</td><td>{{.Timestamp}}</td><td>{{.EntityID}}</td><td>{{.Detail}}</td></tr>
{{end}}
</table>
</body>
</html>`

type InspectRow struct {
	Key       string
	Namespace string
	Timestamp string
	EntityID  string
	Detail    string
}

type inspectPageData struct {
	Prefix string
	Items  []InspectRow
}

// StartDebugServer serves a read-only view over the key/value store for
// local debugging. Served from its own mux so it never shares a listener
// with the API.
func StartDebugServer(log *slog.Logger, db *badger.DB, port int) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.New("inspect").Parse(inspectPage))

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := inspectPageData{Prefix: prefix}
		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapRow(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		addr := fmt.Sprintf("localhost:%d", port)
		log.Info("Storage inspector listening", "addr", addr)
		_ = http.ListenAndServe(addr, mux)
	}()
}

// mapRow decodes the key layout into display columns. Message keys carry a
// padded nanosecond timestamp in their second segment.
func mapRow(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Namespace: "raw",
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	parts := strings.Split(key, ":")
	if len(parts) == 0 {
		return row
	}
	row.Namespace = parts[0]

	switch {
	case parts[0] == "msg" && len(parts) >= 4:
		row.EntityID = shorten(parts[1])
		if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format("15:04:05")
		}
	case len(parts) >= 2:
		row.EntityID = shorten(parts[len(parts)-1])
	}
	return row
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
