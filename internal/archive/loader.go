// Package archive extracts an uploaded zip of invoice CSVs and
// classifies its members into the two logical roles the pipeline needs:
// the header table (one row per invoice) and the items table (one row
// per invoice line).
//
// Classification is by case/diacritic-insensitive substring match on the
// member name. Unrecognized members are deliberately ignored rather than
// rejected: exports frequently bundle extra files (readme, xml mirrors)
// and refusing them would break forward compatibility.
//
// Extraction uses a temp directory scoped to the Load call; it is removed
// on every exit path, including partial-extraction failures.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nfa/internal/table"
	"nfa/internal/textnorm"
)

// Role names used in diagnostics.
const (
	RoleHeader = "header"
	RoleItems  = "items"
)

// FormatError reports an archive that is not a zip, or whose members
// cannot be classified: either no member matched a required role, or
// several did.
type FormatError struct {
	Role   string
	Found  []string // matching member names; empty means none matched
	Reason string   // set for failures outside member classification
}

func (e *FormatError) Error() string {
	if e.Reason != "" {
		return "archive: " + e.Reason
	}
	if len(e.Found) == 0 {
		return fmt.Sprintf("archive: no member matches the %s role", e.Role)
	}
	return fmt.Sprintf("archive: %d members match the %s role: %s",
		len(e.Found), e.Role, strings.Join(e.Found, ", "))
}

// Code returns the stable machine code for console callers.
func (e *FormatError) Code() string { return "archive_format" }

// Options configure member classification and CSV parsing.
type Options struct {
	// HeaderPattern and ItemsPattern are matched as folded substrings
	// against member names. Defaults follow the NF-e export convention.
	HeaderPattern string
	ItemsPattern  string

	// Comma is the CSV field delimiter. Zero means ','.
	Comma rune

	// MaxMemberBytes bounds the decompressed size of a single member.
	// Zero means 256 MiB.
	MaxMemberBytes int64
}

func (o *Options) defaults() {
	if o.HeaderPattern == "" {
		o.HeaderPattern = "cabecalho"
	}
	if o.ItemsPattern == "" {
		o.ItemsPattern = "itens"
	}
	if o.Comma == 0 {
		o.Comma = ','
	}
	if o.MaxMemberBytes <= 0 {
		o.MaxMemberBytes = 256 << 20
	}
}

// Loader classifies and extracts invoice archives.
type Loader struct {
	opt Options
}

// NewLoader returns a Loader with defaults applied.
func NewLoader(opt Options) *Loader {
	opt.defaults()
	return &Loader{opt: opt}
}

// Result carries the two classified raw tables.
type Result struct {
	Header table.Raw
	Items  table.Raw
}

// Load classifies the archive members, extracts the two role files into
// a scoped temp directory, and parses them into raw tables. The temp
// directory never outlives the call.
func (l *Loader) Load(ctx context.Context, data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &FormatError{Reason: "not a zip archive: " + err.Error()}
	}

	headerFile, err := l.classify(zr, RoleHeader, l.opt.HeaderPattern)
	if err != nil {
		return nil, err
	}
	itemsFile, err := l.classify(zr, RoleItems, l.opt.ItemsPattern)
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "nfa-archive-")
	if err != nil {
		return nil, fmt.Errorf("archive: temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	res := &Result{}
	for _, m := range []struct {
		f   *zip.File
		dst *table.Raw
	}{
		{headerFile, &res.Header},
		{itemsFile, &res.Items},
	} {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		path, err := l.extract(tmp, m.f)
		if err != nil {
			return nil, err
		}
		raw, err := l.parseCSV(m.f.Name, path)
		if err != nil {
			return nil, err
		}
		*m.dst = *raw
	}
	return res, nil
}

// classify finds exactly one CSV member matching the role pattern.
func (l *Loader) classify(zr *zip.Reader, role, pattern string) (*zip.File, error) {
	var matches []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		if textnorm.ContainsFold(name, pattern) {
			matches = append(matches, f)
		}
	}
	if len(matches) != 1 {
		names := make([]string, len(matches))
		for i, f := range matches {
			names[i] = f.Name
		}
		return nil, &FormatError{Role: role, Found: names}
	}
	return matches[0], nil
}

// extract writes one member to the scoped temp dir, bounding the
// decompressed size so a crafted archive cannot exhaust the disk.
func (l *Loader) extract(dir string, f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("archive: open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	path := filepath.Join(dir, filepath.Base(f.Name))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("archive: create %s: %w", path, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, io.LimitReader(rc, l.opt.MaxMemberBytes+1))
	if err != nil {
		return "", fmt.Errorf("archive: extract %s: %w", f.Name, err)
	}
	if n > l.opt.MaxMemberBytes {
		return "", fmt.Errorf("archive: member %s exceeds %d bytes", f.Name, l.opt.MaxMemberBytes)
	}
	return path, nil
}

// parseCSV reads an extracted member into a Raw table. The header row
// defines the column set; short records are padded so every row shares it.
func (l *Loader) parseCSV(member, path string) (*table.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open extracted %s: %w", member, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = l.opt.Comma
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("archive: read header of %s: %w", member, err)
	}
	header := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		header[i] = strings.TrimSpace(h)
	}

	raw := &table.Raw{Name: member, Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", member, err)
		}
		row := make([]string, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		raw.Rows = append(raw.Rows, row)
	}
	return raw, nil
}
