// Package request renders the data collection renewal request that is
// pasted into the renewal bug.
package request

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
)

// Title heads every request.
const Title = "Request for Data Collection Renewal"

// Separator closes the header and each block.
const Separator = "———"

const requestTemplate = `# {{ .Title }}
### Renew for {{ .Period }}
Total: {{ .Total }}
{{ .Separator }}

{{ range .Blocks -}}
` + "` {{ .Name }}`" + `
1) Provide a link to the initial Data Collection Review Request for this collection.
    - {{ .FirstReview }}

2) When will this collection now expire?
    - {{ .Expires }}

3) Why was the initial period of collection insufficient?
    - {{ .Reason }}

{{ $.Separator }}
{{ end -}}
`

var tmpl = template.Must(template.New("renewal_request").Parse(requestTemplate))

// Block answers the renewal questions for one kept metric.
type Block struct {
	Name        string
	FirstReview string
	Expires     int
	Reason      string
}

// Document is an ordered renewal request.
type Document struct {
	Period string
	Blocks []Block
}

// New returns an empty request for the given renewal period label
// ("1 year").
func New(period string) *Document {
	return &Document{Period: strings.TrimSpace(period)}
}

// Add appends a block; blocks render in the order they were added.
func (d *Document) Add(b Block) {
	d.Blocks = append(d.Blocks, b)
}

// Total is the number of renewed metrics.
func (d *Document) Total() int {
	return len(d.Blocks)
}

// Render writes the request text to w.
func (d *Document) Render(w io.Writer) error {
	data := map[string]any{
		"Title":     Title,
		"Period":    d.Period,
		"Total":     d.Total(),
		"Separator": Separator,
		"Blocks":    d.Blocks,
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("request: render: %w", err)
	}
	return nil
}

// Bytes renders the request into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
