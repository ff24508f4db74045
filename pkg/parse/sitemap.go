package parse

import (
	"bufio"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"cache-warmer/pkg/utils"
)

// --- XML Structs for Sitemap Parsing ---

// XMLURL represents a <url> element in a sitemap
type XMLURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// DocKind identifies what kind of sitemap document was parsed
type DocKind int

const (
	DocUnknown DocKind = iota
	DocSitemapIndex
	DocURLSet
)

// String returns a human-readable kind name
func (k DocKind) String() string {
	switch k {
	case DocSitemapIndex:
		return "sitemapindex"
	case DocURLSet:
		return "urlset"
	default:
		return "unknown"
	}
}

// Document is the parsed form of one sitemap file: its kind and the
// loc values of its entries (child sitemap URLs for an index, page
// URLs for a urlset).
type Document struct {
	Kind DocKind
	Locs []string
}

// Parse decodes a sitemap or sitemap index document. Element names are
// matched by local name only, so sitemaps with any namespace prefix
// (or none) parse identically. Unknown root elements get best-effort
// extraction: <sitemap> entries imply an index, <url> entries a urlset.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false // real-world sitemaps contain sloppy entities

	var rootName string
	var sitemapLocs, urlLocs []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: decoding sitemap XML: %w", utils.ErrParsing, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if rootName == "" {
			rootName = start.Name.Local
			continue
		}

		switch start.Name.Local {
		case "sitemap":
			var entry XMLSitemap
			if err := dec.DecodeElement(&entry, &start); err != nil {
				return nil, fmt.Errorf("%w: decoding <sitemap> entry: %w", utils.ErrParsing, err)
			}
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				sitemapLocs = append(sitemapLocs, loc)
			}
		case "url":
			var entry XMLURL
			if err := dec.DecodeElement(&entry, &start); err != nil {
				return nil, fmt.Errorf("%w: decoding <url> entry: %w", utils.ErrParsing, err)
			}
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				urlLocs = append(urlLocs, loc)
			}
		}
	}

	if rootName == "" {
		return nil, fmt.Errorf("%w: document has no root element", utils.ErrParsing)
	}

	switch rootName {
	case "sitemapindex":
		return &Document{Kind: DocSitemapIndex, Locs: sitemapLocs}, nil
	case "urlset":
		return &Document{Kind: DocURLSet, Locs: urlLocs}, nil
	}

	// Unknown root: infer from the entries found
	if len(sitemapLocs) > 0 {
		return &Document{Kind: DocSitemapIndex, Locs: sitemapLocs}, nil
	}
	if len(urlLocs) > 0 {
		return &Document{Kind: DocURLSet, Locs: urlLocs}, nil
	}
	return &Document{Kind: DocUnknown}, nil
}

// MaybeGunzip wraps r in a gzip reader when the stream starts with the
// gzip magic bytes. Many origins serve sitemap.xml.gz without a
// Content-Encoding header, so detection has to look at the payload.
func MaybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil || len(magic) < 2 {
		return br, nil
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: opening gzip stream: %w", utils.ErrParsing, err)
		}
		return gz, nil
	}
	return br, nil
}
