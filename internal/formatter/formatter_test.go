package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	th "github.com/desertthunder/tunebox/internal/testing"
)

func sampleExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{ID: 3, Name: "Road Trip", UserID: 1},
		Songs: []models.Song{
			{ID: 7, Title: "Highway Song", Artist: "The Drivers", Duration: 185, AudioURL: "/uploads/a.mp3"},
			{ID: 2, Title: "Night, Lights", Artist: "Neon", Duration: 0, AudioURL: "/uploads/b.mp3"},
		},
		ExportedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("failed to parse CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header + 2 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Position,ID,Title,Artist,Duration,Audio" {
			t.Errorf("unexpected headers %v", records[0])
		}
		if records[1][0] != "1" || records[1][1] != "7" || records[1][4] != "185" {
			t.Errorf("unexpected first row %v", records[1])
		}
		if records[2][2] != "Night, Lights" {
			t.Errorf("expected comma in title preserved, got %q", records[2][2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleExport(), "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			md := string(data)
			for _, want := range []string{
				"# Road Trip\n",
				"**Songs**: 2",
				"**Length**: 3:05",
				"1. The Drivers - Highway Song [3:05]",
				"2. Neon - Night, Lights [0:00]",
			} {
				if !strings.Contains(md, want) {
					t.Errorf("expected markdown to contain %q, got:\n%s", want, md)
				}
			}
			if strings.Contains(md, "![Cover]") {
				t.Error("expected no cover image")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, _ := ExportToMarkdown(sampleExport(), "cover.png")
			if !strings.Contains(string(data), "![Cover](cover.png)") {
				t.Error("expected cover image link")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := "Playlist: Road Trip\nSongs: 2\n\n1. The Drivers - Highway Song\n2. Neon - Night, Lights\n"
		if string(data) != want {
			t.Errorf("unexpected text:\n%s", data)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var decoded models.PlaylistExport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Playlist.Name != "Road Trip" || len(decoded.Songs) != 2 {
			t.Errorf("unexpected export %+v", decoded)
		}
		if !bytes.Contains(data, []byte(`"audioUrl": "/uploads/a.mp3"`)) {
			t.Errorf("expected camelCase fields, got:\n%s", data)
		}
	})

	t.Run("Empty Playlist", func(t *testing.T) {
		export := &models.PlaylistExport{Playlist: models.Playlist{Name: "Empty"}}
		for _, f := range Formats {
			if _, err := Render(export, f); err != nil {
				t.Errorf("%s: expected no error, got %v", f, err)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", JSON},
		{"JSON", JSON},
		{"csv", CSV},
		{"md", Markdown},
		{"markdown", Markdown},
		{"text", Text},
		{" txt ", Text},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWrite(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, sampleExport(), Text); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(buf.String(), "Playlist: Road Trip") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("Failing Writer", func(t *testing.T) {
		if err := Write(&th.FWriter{}, sampleExport(), CSV); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("Filename", func(t *testing.T) {
		if got := Filename(models.Playlist{ID: 3, Name: "Road Trip"}); got != "3-road-trip" {
			t.Errorf("unexpected filename %q", got)
		}
		if got := Filename(models.Playlist{ID: 4}); got != "4" {
			t.Errorf("unexpected filename %q", got)
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		for _, f := range []Format{JSON, CSV, Text} {
			t.Run(string(f), func(t *testing.T) {
				dir := t.TempDir()
				files, err := WriteExport(sampleExport(), f, dir, "")
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				want := filepath.Join(dir, "3-road-trip"+f.Ext())
				if len(files) != 1 || files[0] != want {
					t.Fatalf("expected [%s], got %v", want, files)
				}
				th.AssertFileExists(t, want)
			})
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithCover", func(t *testing.T) {
			dir := t.TempDir()
			cover := th.WriteFixture(t, t.TempDir(), "abc.png", th.PNGBytes())

			files, err := WriteExport(sampleExport(), Markdown, dir, cover)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(files) != 2 {
				t.Fatalf("expected cover and README, got %v", files)
			}

			out := filepath.Join(dir, "3-road-trip")
			th.AssertDirExists(t, out)
			th.AssertFileExists(t, filepath.Join(out, "cover.png"))
			if md := th.MustReadFile(t, filepath.Join(out, "README.md")); !strings.Contains(md, "![Cover](cover.png)") {
				t.Errorf("expected cover link in README, got:\n%s", md)
			}
		})

		t.Run("WithMissingCover", func(t *testing.T) {
			dir := t.TempDir()
			res, err := WriteMarkdownExport(sampleExport(), dir, filepath.Join(dir, "nope.png"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.CoverImage != "" || len(res.Files) != 1 {
				t.Errorf("expected README only, got %+v", res)
			}
		})
	})

	t.Run("WriteManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteManifest(map[string]int{"exported": 2}, path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got map[string]int
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &got); err != nil || got["exported"] != 2 {
			t.Errorf("unexpected manifest %v (%v)", got, err)
		}
	})

	t.Run("WriteManifest To Missing Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "manifest.json")
		if err := WriteManifest(struct{}{}, path); err == nil {
			t.Error("expected error")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected no manifest file")
		}
	})
}

func TestTables(t *testing.T) {
	t.Run("SongTable", func(t *testing.T) {
		var buf bytes.Buffer
		songs := []*models.Song{{ID: 1, Title: "Drift", Artist: "Tide", Duration: 61}}
		if err := SongTable(&buf, songs); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "1:01") {
			t.Errorf("unexpected table:\n%s", buf.String())
		}
	})

	t.Run("PlaylistTable", func(t *testing.T) {
		var buf bytes.Buffer
		playlists := []*models.Playlist{{ID: 1, Name: "Chill", UserID: 1, CreatedAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}}
		if err := PlaylistTable(&buf, playlists); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "2026-03-04") {
			t.Errorf("unexpected table:\n%s", buf.String())
		}
	})

	t.Run("Failing Writer", func(t *testing.T) {
		w := th.NewLimitedWriter(0, 0, &bytes.Buffer{})
		if err := SongTable(&w, []*models.Song{{ID: 1}}); err == nil {
			t.Error("expected error")
		}
	})
}
