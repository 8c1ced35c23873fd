package sqlite

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts the tsweb debug index on mux with a live SQL
// console over the track database and a backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Track DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("backup", "Create and download a backup of the track database now", http.HandlerFunc(db.handleBackup))
	return nil
}

// handleBackup snapshots the database with VACUUM INTO a scratch
// directory and streams the snapshot gzip-compressed.
func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "pitchtrace-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logf("remove backup %s: %v", dir, err)
		}
	}()

	name := fmt.Sprintf("%s-%s", strings.TrimSuffix(filepath.Base(db.path), filepath.Ext(db.path)), time.Now().UTC().Format("20060102T150405Z"))
	snapshot := filepath.Join(dir, name+".db")
	if _, err := db.ExecContext(r.Context(), "VACUUM INTO ?", snapshot); err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	f, err := os.Open(snapshot)
	if err != nil {
		http.Error(w, fmt.Sprintf("backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.db.gz", name))
	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		logf("stream backup: %v", err)
	}
}
