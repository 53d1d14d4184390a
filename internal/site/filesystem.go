package site

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"sitebuild/internal/config"
	"sitebuild/internal/core"
	"sitebuild/internal/ctxlog"
)

var textExtensions = map[string]bool{
	"md": true, "markdown": true, "html": true, "htm": true, "txt": true,
	"css": true, "js": true, "json": true, "xml": true, "yaml": true,
	"yml": true, "svg": true, "tmpl": true, "rss": true, "atom": true,
}

const frontMatterDelim = "---\n"

// filesystemSource reads items from a content directory, layouts from a
// layouts directory and code snippets from a lib directory. Text files may
// start with a YAML front matter block delimited by "---" lines.
type filesystemSource struct {
	contentDir string
	layoutsDir string
	libDir     string
}

func newFilesystemSource(cfg *config.Config, ds config.DataSource) (DataSource, error) {
	return &filesystemSource{
		contentDir: cfg.Path(ds.ContentDir),
		layoutsDir: cfg.Path(ds.LayoutsDir),
		libDir:     cfg.Path(ds.LibDir),
	}, nil
}

func (s *filesystemSource) Items(ctx context.Context) ([]*core.Item, error) {
	log := ctxlog.FromContext(ctx)
	var out []*core.Item
	err := walkFiles(ctx, s.contentDir, func(abs, rel string) error {
		id, err := core.NewIdentifier("/" + rel)
		if err != nil {
			return err
		}
		if !isText(rel) {
			out = append(out, core.NewItem(core.NewBinaryContent(abs), map[string]any{"content_filename": abs}, id))
			return nil
		}
		attrs, offset, err := readFrontMatter(abs)
		if err != nil {
			return err
		}
		attrs["content_filename"] = abs
		out = append(out, core.NewItem(lazyBody(log, abs, offset), attrs, id))
		return nil
	})
	return out, err
}

func (s *filesystemSource) Layouts(ctx context.Context) ([]*core.Layout, error) {
	log := ctxlog.FromContext(ctx)
	var out []*core.Layout
	err := walkFiles(ctx, s.layoutsDir, func(abs, rel string) error {
		id, err := core.NewIdentifier("/" + rel)
		if err != nil {
			return err
		}
		attrs, offset, err := readFrontMatter(abs)
		if err != nil {
			return err
		}
		out = append(out, core.NewLayout(lazyBody(log, abs, offset), attrs, id))
		return nil
	})
	return out, err
}

func (s *filesystemSource) CodeSnippets(ctx context.Context) ([]*core.CodeSnippet, error) {
	var out []*core.CodeSnippet
	err := walkFiles(ctx, s.libDir, func(abs, rel string) error {
		data, err := os.ReadFile(abs)
		if err != nil {
			return err
		}
		out = append(out, &core.CodeSnippet{Filename: rel, Data: string(data)})
		return nil
	})
	return out, err
}

// walkFiles calls fn for every regular file below root in lexical order.
// A missing root has no files.
func walkFiles(ctx context.Context, root string, fn func(abs, rel string) error) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return fn(p, filepath.ToSlash(rel))
	})
}

func isText(rel string) bool {
	return textExtensions[strings.TrimPrefix(strings.ToLower(path.Ext(rel)), ".")]
}

// readFrontMatter reads the front matter block of a text file, if any,
// and returns its attributes with the byte offset at which the body starts.
// Only the front matter lines are read.
func readFrontMatter(abs string) (map[string]any, int64, error) {
	f, err := os.Open(abs)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	attrs := map[string]any{}
	r := bufio.NewReader(f)
	first, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, err
	}
	if normalizeNewline(first) != frontMatterDelim {
		return attrs, 0, nil
	}

	offset := int64(len(first))
	var meta strings.Builder
	for {
		line, err := r.ReadString('\n')
		offset += int64(len(line))
		if normalizeNewline(line) == frontMatterDelim {
			break
		}
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%s: front matter is not terminated", abs)
		}
		if err != nil {
			return nil, 0, err
		}
		meta.WriteString(normalizeNewline(line))
	}
	if err := yaml.Unmarshal([]byte(meta.String()), &attrs); err != nil {
		return nil, 0, fmt.Errorf("%s: front matter: %w", abs, err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, offset, nil
}

// readBody returns the text of abs after the front matter ending at offset.
func readBody(abs string, offset int64) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	if offset > int64(len(data)) {
		return "", fmt.Errorf("%s: changed while loading", abs)
	}
	body := strings.ReplaceAll(string(data[offset:]), "\r\n", "\n")
	if offset > 0 {
		body = strings.TrimPrefix(body, "\n")
	}
	return body, nil
}

// lazyBody defers reading a document body until its content is needed.
func lazyBody(log *slog.Logger, abs string, offset int64) *core.TextualContent {
	return core.NewLazyTextualContent(func() string {
		body, err := readBody(abs, offset)
		if err != nil {
			log.Warn("cannot read document body", "path", abs, "error", err)
		}
		return body
	}, abs)
}

func normalizeNewline(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2] + "\n"
	}
	return line
}
