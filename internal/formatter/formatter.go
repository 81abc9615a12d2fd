// package formatter renders playlists and song listings as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/samber/lo"
)

// Format is an export format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// Formats lists the supported formats.
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat accepts a format name or a common alias ("md", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	}
	names := lo.Map(Formats, func(f Format, _ int) string { return string(f) })
	return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, s, strings.Join(names, ", "))
}

// Ext is the file extension written for the format.
func (f Format) Ext() string {
	switch f {
	case CSV:
		return ".csv"
	case Markdown:
		return ".md"
	case Text:
		return ".txt"
	default:
		return ".json"
	}
}

// Render converts export to the given format.
func Render(export *models.PlaylistExport, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export, "")
	case Text:
		return ExportToText(export)
	default:
		return ExportToJSON(export)
	}
}

// Write renders export to w.
func Write(w io.Writer, export *models.PlaylistExport, f Format) error {
	data, err := Render(export, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s export: %w", f, err)
	}
	return nil
}

// ExportToJSON converts a PlaylistExport to indented JSON.
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: Position, ID, Title, Artist, Duration, Audio
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Duration", "Audio"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, song := range export.Songs {
		record := []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(song.ID, 10),
			song.Title,
			song.Artist,
			strconv.Itoa(song.Duration),
			song.AudioURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format with optional cover image
func ExportToMarkdown(export *models.PlaylistExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n", len(export.Songs))
	fmt.Fprintf(&buf, "**Length**: %s\n\n", shared.FormatDuration(export.TotalDuration()))

	buf.WriteString("## Songs\n\n")
	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, song.Artist, song.Title, shared.FormatDuration(song.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(export.Songs))

	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.Artist, song.Title)
	}

	return buf.Bytes(), nil
}

// Filename is the base name used for a playlist's export files: "{id}-{kebab-name}".
func Filename(p models.Playlist) string {
	slug := lo.KebabCase(p.Name)
	if slug == "" {
		return strconv.FormatInt(p.ID, 10)
	}
	return fmt.Sprintf("%d-%s", p.ID, slug)
}

// WriteExport writes export into dir and returns the created files.
//
// Markdown exports get their own directory holding README.md and, when coverPath names an
// existing file, a copy of the cover image. Other formats write a single file.
func WriteExport(export *models.PlaylistExport, f Format, dir, coverPath string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	base := Filename(export.Playlist)
	if f == Markdown {
		res, err := WriteMarkdownExport(export, filepath.Join(dir, base), coverPath)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	}

	data, err := Render(export, f)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, base+f.Ext())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return []string{path}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover{ext}.
// A cover that cannot be copied is skipped.
func WriteMarkdownExport(export *models.PlaylistExport, outputDir, coverPath string) (*MarkdownExportResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if coverPath != "" {
		if data, err := os.ReadFile(coverPath); err == nil {
			coverImageFilename = "cover" + filepath.Ext(coverPath)
			dest := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(dest, data, 0644); err != nil {
				coverImageFilename = ""
			} else {
				result.CoverImage = dest
				result.Files = append(result.Files, dest)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// SongTable writes songs as aligned columns: ID, Title, Artist, Length.
func SongTable(w io.Writer, songs []*models.Song) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tLENGTH")
	for _, s := range songs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Title, s.Artist, shared.FormatDuration(s.Duration))
	}
	return tw.Flush()
}

// PlaylistTable writes playlists as aligned columns: ID, Name, Owner, Created.
func PlaylistTable(w io.Writer, playlists []*models.Playlist) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tCREATED")
	for _, p := range playlists {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", p.ID, p.Name, p.UserID, p.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}
