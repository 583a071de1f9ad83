// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package atomicio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.astrophena.name/dailyread/internal/testutil"
)

func backups(t *testing.T, file string) []string {
	t.Helper()
	b, err := filepath.Glob(file + ".*.bak")
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	t.Run("new file in missing directory", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "daily", "2024-01-02.html")

		if err := WriteFile(file, []byte("hello"), 0o644); err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, string(testutil.ReadFile(t, file)), "hello")
		testutil.AssertEqual(t, len(backups(t, file)), 0)
	})

	t.Run("overwrite without backups", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "feed.xml")

		for _, s := range []string{"hello", "world"} {
			if err := WriteFile(file, []byte(s), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		testutil.AssertEqual(t, string(testutil.ReadFile(t, file)), "world")
		testutil.AssertEqual(t, len(backups(t, file)), 0)
	})

	t.Run("overwrite with backups", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "archive.json")

		for _, s := range []string{"hello", "world"} {
			if err := WriteFile(file, []byte(s), 0o644, KeepBackups(3)); err != nil {
				t.Fatal(err)
			}
		}
		testutil.AssertEqual(t, string(testutil.ReadFile(t, file)), "world")
		b := backups(t, file)
		testutil.AssertEqual(t, len(b), 1)
		testutil.AssertEqual(t, string(testutil.ReadFile(t, b[0])), "hello")
	})

	t.Run("prune", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "archive.json")

		const keep = 3
		for i := range keep + 2 {
			if err := WriteFile(file, []byte{byte(i)}, 0o644, KeepBackups(keep)); err != nil {
				t.Fatal(err)
			}
			// Backup names have nanosecond resolution, but be safe.
			time.Sleep(2 * time.Millisecond)
		}
		testutil.AssertEqual(t, len(backups(t, file)), keep)
	})

	t.Run("no temporary files left", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := WriteFile(filepath.Join(dir, "a"), []byte("a"), 0o600); err != nil {
			t.Fatal(err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertEqual(t, len(entries), 1)
	})
}
