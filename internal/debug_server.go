package internal

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"forum-lab/observability"

	"github.com/dgraph-io/badger/v4"
)

// inspectPage is deliberately tiny: a prefix box and the raw rows. This is
// an operator tool, not part of the product surface.
const inspectPage = `<!DOCTYPE html>
<html>
<head><title>store inspector</title></head>
<body>
<form method="GET" action="/inspect">
  <input type="text" name="prefix" value="{{.Prefix}}" placeholder="key prefix"/>
  <button type="submit">Scan</button>
</form>
<table border="1" cellpadding="4">
  <tr><th>Key</th><th>Size</th></tr>
  {{range .Items}}<tr><td>{{.Key}}</td><td>{{.Size}}</td></tr>{{end}}
</table>
<p>{{len .Items}} keys</p>
</body>
</html>`

type inspectRow struct {
	Key  string
	Size string
}

type inspectData struct {
	Prefix string
	Items  []inspectRow
}

// StartDebugServer exposes a read-only key browser over the store and the
// latest telemetry snapshot. It binds the configured address and never
// blocks the caller.
func StartDebugServer(db *badger.DB, monitor *observability.Monitor, log *slog.Logger, host string, port int) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.New("inspect").Parse(inspectPage))

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(monitor.GetLatest()); err != nil {
			log.Error("failed to encode stats", "error", err)
		}
	})

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}
		data := inspectData{Prefix: prefix}

		_ = db.View(func(txn *badger.Txn) error {
			options := badger.DefaultIteratorOptions
			it := txn.NewIterator(options)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				data.Items = append(data.Items, inspectRow{
					Key:  string(item.Key()),
					Size: strconv.FormatInt(item.EstimatedSize(), 10) + " bytes",
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	address := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Info("debug inspector listening", "address", address)
		if err := http.ListenAndServe(address, mux); err != nil {
			log.Error("debug inspector stopped", "error", err)
		}
	}()
}
