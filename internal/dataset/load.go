package dataset

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Format is the on-disk encoding of a split.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat infers the format from the URI extension. Unknown
// extensions are read as CSV.
func DetectFormat(uri string) Format {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".tsv", ".tab":
		return FormatTSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Loader reads splits through a Resolver.
type Loader struct {
	resolver *Resolver
	opts     Options
}

// NewLoader creates a loader. A nil resolver reads local files only.
func NewLoader(resolver *Resolver, opts Options) *Loader {
	if resolver == nil {
		resolver = NewResolver(S3Config{})
	}
	return &Loader{resolver: resolver, opts: opts}
}

// Load reads the source at uri into a Frame called name.
func (l *Loader) Load(ctx context.Context, name, uri string) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	rc, err := l.resolver.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var records []record
	switch DetectFormat(uri) {
	case FormatXLSX:
		records, err = readWorkbook(rc)
	case FormatTSV:
		records, err = readDelimited(rc, '\t')
	default:
		records, err = readDelimited(rc, ',')
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}

	frame, err := buildFrame(name, uri, records, l.opts)
	if err != nil {
		return nil, err
	}

	rows, cols := frame.Shape()
	log.Debug().
		Str("split", name).
		Str("source", uri).
		Int("rows", rows).
		Int("columns", cols).
		Dur("duration", time.Since(start)).
		Msg("Dataset loaded")

	return frame, nil
}

// LoadFile is a convenience wrapper that loads a local or s3 source with
// default settings.
func LoadFile(ctx context.Context, uri string, opts Options) (*Frame, error) {
	name := strings.TrimSuffix(path.Base(uri), path.Ext(uri))
	return NewLoader(nil, opts).Load(ctx, name, uri)
}
