package metricsfile

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// LicenseHeader is written above the document marker of every rewritten file.
const LicenseHeader = `# This Source Code Form is subject to the terms of the Mozilla Public
# License, v. 2.0. If a copy of the MPL was not distributed with this
# file, You can obtain one at http://mozilla.org/MPL/2.0/.
`

// EncodeOptions controls how a Document is rendered. The zero value renders
// multiline strings in their decoded style and single-line strings plain.
type EncodeOptions struct {
	// MultilineStyle is applied to every string containing a newline.
	MultilineStyle yaml.Style
	// DefaultStyle is applied to every other string. yaml.v3 still quotes a
	// plain string when it would otherwise read back as another type. Words
	// that are only special to YAML 1.1 readers (yes, on, n, 1:20) keep the
	// style they were decoded with.
	DefaultStyle yaml.Style
	// IndentNestedMappings widens nesting from 2 to 4 spaces.
	IndentNestedMappings bool
	// KeepComments carries comments of the source file into the output.
	KeepComments bool
	// Header is written verbatim before the "---" marker. Empty omits both.
	Header string
}

// DefaultEncodeOptions renders multiline strings as literal blocks and
// prefixes the MPL header.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		MultilineStyle: yaml.LiteralStyle,
		DefaultStyle:   0,
		Header:         LicenseHeader,
	}
}

// Indent returns the indentation width used by the encoder.
func (o EncodeOptions) Indent() int {
	if o.IndentNestedMappings {
		return 4
	}
	return 2
}

// Encode writes the document to w. The document itself is not modified.
func (d *Document) Encode(w io.Writer, opts EncodeOptions) error {
	if opts.Header != "" {
		header := opts.Header
		if !strings.HasSuffix(header, "\n") {
			header += "\n"
		}
		if _, err := io.WriteString(w, header+"---\n"); err != nil {
			return fmt.Errorf("metricsfile: write header: %w", err)
		}
	}
	styled := cloneNode(d.root)
	applyStyles(styled, opts)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(opts.Indent())
	if err := enc.Encode(styled); err != nil {
		return fmt.Errorf("metricsfile: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("metricsfile: encode: %w", err)
	}
	return nil
}

// Marshal renders the document into memory.
func (d *Document) Marshal(opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func applyStyles(n *yaml.Node, opts EncodeOptions) {
	if !opts.KeepComments {
		n.HeadComment, n.LineComment, n.FootComment = "", "", ""
	}
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" {
		if strings.Contains(n.Value, "\n") {
			if opts.MultilineStyle != 0 {
				n.Style = opts.MultilineStyle
			}
		} else if opts.DefaultStyle != 0 || !yaml11Special(n.Value) {
			n.Style = opts.DefaultStyle
		}
	}
	for _, child := range n.Content {
		applyStyles(child, opts)
	}
}

var base60Float = regexp.MustCompile(`^[-+]?[0-9][0-9_]*(?::[0-5]?[0-9])+(?:\.[0-9_]*)?$`)

// yaml11Special reports whether a plain s resolves to a bool or number under
// YAML 1.1 (PyYAML) while yaml.v3 reads it as a string.
func yaml11Special(s string) bool {
	switch s {
	case "y", "Y", "yes", "Yes", "YES", "on", "On", "ON",
		"n", "N", "no", "No", "NO", "off", "Off", "OFF":
		return true
	}
	return base60Float.MatchString(s)
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	dup := *n
	if len(n.Content) > 0 {
		dup.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			dup.Content[i] = cloneNode(child)
		}
	}
	return &dup
}
