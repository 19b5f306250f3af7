// Package metricsfile reads, edits, and rewrites Glean-style metrics.yaml
// documents.
//
// A Document is a mapping of section (category) names to mappings of metric
// names to metric records. The document is kept as a yaml.v3 node tree, so
// section and metric order is exactly the order of the source file, and keys
// the tool never touches (tags, descriptions, $schema, no_lint) round-trip
// structurally unchanged.
package metricsfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DataReviewsKey holds the ordered list of review references of a metric.
	DataReviewsKey = "data_reviews"
	// ExpiresKey holds the expiry version of a metric.
	ExpiresKey = "expires"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrMetricNotFound  = errors.New("metric not found")
	ErrInvalidRecord   = errors.New("invalid metric record")
)

// Document is an ordered, mutable metrics.yaml.
type Document struct {
	root *yaml.Node
}

// Load reads and parses the metrics file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metricsfile: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("metricsfile: %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a metrics document. An empty payload yields an empty document.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	}
	if root.Kind == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode}
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) == 0 {
		root.Content = []*yaml.Node{newMapping()}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode: top level must be a mapping")
	}
	return &Document{root: &root}, nil
}

func (d *Document) top() *yaml.Node {
	return d.root.Content[0]
}

// Sections returns the top-level keys whose value is a mapping, in file order.
func (d *Document) Sections() []string {
	var names []string
	top := d.top()
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i+1].Kind == yaml.MappingNode {
			names = append(names, top.Content[i].Value)
		}
	}
	return names
}

// Metrics returns the metric names of section in file order.
func (d *Document) Metrics(section string) []string {
	sec := d.section(section)
	if sec == nil {
		return nil
	}
	names := make([]string, 0, len(sec.Content)/2)
	for i := 0; i+1 < len(sec.Content); i += 2 {
		names = append(names, sec.Content[i].Value)
	}
	return names
}

// HasMetric reports whether section.metric exists.
func (d *Document) HasMetric(section, metric string) bool {
	_, _, err := d.record(section, metric)
	return err == nil
}

// ResolveKey splits a dotted "section.metric" name. Section names may contain
// dots themselves, so every split point is tried, rightmost first, and the
// first one naming an existing metric wins.
func (d *Document) ResolveKey(name string) (string, string, error) {
	trimmed := strings.TrimSpace(name)
	sectionSeen := false
	for i := strings.LastIndex(trimmed, "."); i > 0; i = strings.LastIndex(trimmed[:i], ".") {
		section, metric := trimmed[:i], trimmed[i+1:]
		if metric == "" {
			continue
		}
		if d.section(section) == nil {
			continue
		}
		sectionSeen = true
		if d.HasMetric(section, metric) {
			return section, metric, nil
		}
	}
	if !strings.Contains(trimmed, ".") {
		return "", "", fmt.Errorf("%q is not a dotted section.metric name: %w", name, ErrMetricNotFound)
	}
	if sectionSeen {
		return "", "", fmt.Errorf("%q: %w", name, ErrMetricNotFound)
	}
	return "", "", fmt.Errorf("%q: %w", name, ErrSectionNotFound)
}

// RemoveMetric deletes section.metric. The section itself stays, even when
// it ends up empty.
func (d *Document) RemoveMetric(section, metric string) error {
	sec := d.section(section)
	if sec == nil {
		return fmt.Errorf("%s: %w", section, ErrSectionNotFound)
	}
	idx := keyIndex(sec, metric)
	if idx < 0 {
		return fmt.Errorf("%s.%s: %w", section, metric, ErrMetricNotFound)
	}
	sec.Content = append(sec.Content[:idx], sec.Content[idx+2:]...)
	return nil
}

// DataReviews returns the review references of section.metric.
func (d *Document) DataReviews(section, metric string) ([]string, error) {
	seq, err := d.dataReviews(section, metric)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		refs = append(refs, item.Value)
	}
	return refs, nil
}

// AppendDataReview appends ref as the last review reference of section.metric.
func (d *Document) AppendDataReview(section, metric, ref string) error {
	seq, err := d.dataReviews(section, metric)
	if err != nil {
		return err
	}
	seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ref})
	return nil
}

// Expires returns the raw expiry value of section.metric.
func (d *Document) Expires(section, metric string) (string, bool) {
	_, rec, err := d.record(section, metric)
	if err != nil {
		return "", false
	}
	idx := keyIndex(rec, ExpiresKey)
	if idx < 0 {
		return "", false
	}
	return rec.Content[idx+1].Value, true
}

// SetExpires overwrites (or adds) the integer expiry version of section.metric.
func (d *Document) SetExpires(section, metric string, version int) error {
	_, rec, err := d.record(section, metric)
	if err != nil {
		return err
	}
	value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(version)}
	if idx := keyIndex(rec, ExpiresKey); idx >= 0 {
		prev := rec.Content[idx+1]
		value.LineComment = prev.LineComment
		rec.Content[idx+1] = value
		return nil
	}
	rec.Content = append(rec.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ExpiresKey}, value)
	return nil
}

func (d *Document) section(name string) *yaml.Node {
	top := d.top()
	idx := keyIndex(top, name)
	if idx < 0 {
		return nil
	}
	val := top.Content[idx+1]
	if val.Kind != yaml.MappingNode {
		return nil
	}
	return val
}

func (d *Document) record(section, metric string) (*yaml.Node, *yaml.Node, error) {
	sec := d.section(section)
	if sec == nil {
		return nil, nil, fmt.Errorf("%s: %w", section, ErrSectionNotFound)
	}
	idx := keyIndex(sec, metric)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%s.%s: %w", section, metric, ErrMetricNotFound)
	}
	rec := sec.Content[idx+1]
	if rec.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("%s.%s is not a mapping: %w", section, metric, ErrInvalidRecord)
	}
	return sec, rec, nil
}

func (d *Document) dataReviews(section, metric string) (*yaml.Node, error) {
	_, rec, err := d.record(section, metric)
	if err != nil {
		return nil, err
	}
	idx := keyIndex(rec, DataReviewsKey)
	if idx < 0 {
		return nil, fmt.Errorf("%s.%s has no %s: %w", section, metric, DataReviewsKey, ErrInvalidRecord)
	}
	seq := rec.Content[idx+1]
	if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s.%s %s is not a list: %w", section, metric, DataReviewsKey, ErrInvalidRecord)
	}
	return seq, nil
}

func keyIndex(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}
