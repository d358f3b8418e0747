package dataset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"supportbot/internal/domain"
	"supportbot/internal/port"
)

//go:embed fallback_data.json
var fallbackData []byte

// Origin names where raw sections were read from.
const (
	OriginDirectory = "directory"
	OriginFile      = "file"
	OriginFallback  = "fallback"
)

// Loader reads raw company content from a scraped-data file, a directory of
// text sources, or the built-in fallback data, in that order of preference.
type Loader struct {
	rawFile string
	rawDir  string
	walker  port.FileWalker
	logger  *slog.Logger
}

func NewLoader(rawFile, rawDir string, walker port.FileWalker, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		rawFile: rawFile,
		rawDir:  rawDir,
		walker:  walker,
		logger:  logger,
	}
}

// Load returns the raw sections and the origin they came from.
func (l *Loader) Load() ([]domain.RawSection, string, error) {
	if l.rawDir != "" && l.walker != nil {
		sections, err := l.loadDir(l.rawDir)
		if err != nil {
			return nil, "", err
		}
		if len(sections) > 0 {
			return sections, OriginDirectory, nil
		}
		l.logger.Warn("no raw sources found in directory", "dir", l.rawDir)
	}

	if l.rawFile != "" {
		data, err := os.ReadFile(l.rawFile)
		switch {
		case err == nil:
			sections, err := ParseScraped(data)
			if err != nil {
				return nil, "", fmt.Errorf("failed to parse %s: %w", l.rawFile, err)
			}
			return sections, OriginFile, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, "", fmt.Errorf("failed to read %s: %w", l.rawFile, err)
		}
	}

	l.logger.Info("using built-in fallback data")
	sections, err := Fallback()
	if err != nil {
		return nil, "", err
	}
	return sections, OriginFallback, nil
}

func (l *Loader) loadDir(dir string) ([]domain.RawSection, error) {
	files, err := l.walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	var sections []domain.RawSection
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			l.logger.Warn("skipping unreadable source", "path", f.Path, "error", err)
			continue
		}

		switch strings.ToLower(filepath.Ext(f.Path)) {
		case ".json":
			parsed, err := ParseScraped(data)
			if err != nil {
				l.logger.Warn("skipping malformed source", "path", f.Path, "error", err)
				continue
			}
			sections = append(sections, parsed...)
		case ".md", ".markdown", ".txt":
			sections = append(sections, ParseText(stem(f.Path), string(data)))
		default:
			l.logger.Debug("skipping unsupported source", "path", f.Path)
		}
	}
	return sections, nil
}

// Fallback returns the built-in company data.
func Fallback() ([]domain.RawSection, error) {
	return ParseScraped(fallbackData)
}

// ParseScraped decodes a scraped-data document, an object mapping section
// names to {title, url, headings, paragraphs}. Sections keep file order.
func ParseScraped(data []byte) ([]domain.RawSection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object of sections")
	}

	var sections []domain.RawSection
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var section domain.RawSection
		if err := dec.Decode(&section); err != nil {
			return nil, fmt.Errorf("section %q: %w", name, err)
		}
		section.Name = name
		sections = append(sections, section)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return sections, nil
}

// ParseText turns a markdown or plain-text file into a section. Lines
// starting with '#' are headings; blank lines separate paragraphs.
func ParseText(name, text string) domain.RawSection {
	section := domain.RawSection{Name: name}

	var para []string
	flush := func() {
		if len(para) > 0 {
			section.Paragraphs = append(section.Paragraphs, strings.Join(para, " "))
			para = para[:0]
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"):
			flush()
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if heading == "" {
				continue
			}
			if section.Title == "" {
				section.Title = heading
			}
			section.Headings = append(section.Headings, heading)
		default:
			para = append(para, line)
		}
	}
	flush()

	if section.Title == "" {
		section.Title = name
	}
	return section
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
