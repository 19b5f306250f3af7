// Package renewal applies a release's renewal decisions to metrics.yaml and
// produces the renewal request.
package renewal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/metrics-renewal/internal/config"
	"github.com/kingrea/metrics-renewal/internal/decisions"
	"github.com/kingrea/metrics-renewal/internal/metricsfile"
	"github.com/kingrea/metrics-renewal/internal/request"
)

// Plan is everything a run needs: where to read, where to write, and how.
type Plan struct {
	Version       string
	NewDataReview string

	MetricsPath string
	// DecisionLists are tried in order; the first existing file is used.
	DecisionLists []string
	OutputPath    string
	RequestPath   string

	CadenceOffset int
	RenewalPeriod string
	Encode        metricsfile.EncodeOptions
}

// PlanFromConfig builds the plan for one invocation.
func PlanFromConfig(cfg *config.Config, version, newDataReview string) Plan {
	encode := metricsfile.DefaultEncodeOptions()
	encode.IndentNestedMappings = cfg.IndentNestedMappings()
	encode.KeepComments = cfg.KeepComments()
	return Plan{
		Version:       strings.TrimSpace(version),
		NewDataReview: strings.TrimSpace(newDataReview),
		MetricsPath:   cfg.MetricsPath(),
		DecisionLists: cfg.DecisionListPaths(version),
		OutputPath:    cfg.OutputPath(),
		RequestPath:   cfg.RequestPath(version),
		CadenceOffset: cfg.CadenceOffset(),
		RenewalPeriod: cfg.RenewalPeriod(),
		Encode:        encode,
	}
}

// Result summarizes a completed run.
type Result struct {
	UpdatedExpiry int
	Kept          []string
	Dropped       []string
	Request       *request.Document
	DecisionList  string
}

// ParseVersion validates the release version argument.
func ParseVersion(version string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(version))
	if err != nil || v < 0 {
		return 0, newError(ErrUsage, nil, "version %q is not a release number", version)
	}
	return v, nil
}

// Run loads both inputs, reconciles them, and writes both outputs. Nothing is
// written unless every decision applied cleanly.
func Run(ctx context.Context, plan Plan, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	version, err := ParseVersion(plan.Version)
	if err != nil {
		return nil, err
	}
	if plan.NewDataReview == "" {
		return nil, newError(ErrUsage, nil, "new data review reference is empty")
	}

	doc, err := loadMetrics(plan.MetricsPath)
	if err != nil {
		return nil, err
	}
	table, err := loadDecisions(plan.DecisionLists)
	if err != nil {
		return nil, err
	}
	logger.Info("inputs loaded",
		zap.String("metrics", plan.MetricsPath),
		zap.String("decisions", table.Path),
		zap.Int("rows", len(table.Rows)),
	)

	result, err := Reconcile(ctx, doc, table.Rows, Options{
		UpdatedExpiry: version + plan.CadenceOffset,
		NewDataReview: plan.NewDataReview,
		RenewalPeriod: plan.RenewalPeriod,
	}, logger)
	if err != nil {
		return nil, err
	}
	result.DecisionList = table.Path

	metricsOut, err := doc.Marshal(plan.Encode)
	if err != nil {
		return nil, newError(ErrSerialization, err, "%s", plan.OutputPath)
	}
	requestOut, err := result.Request.Bytes()
	if err != nil {
		return nil, newError(ErrSerialization, err, "%s", plan.RequestPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writeOutputs([]output{
		{path: plan.RequestPath, data: requestOut},
		{path: plan.OutputPath, data: metricsOut},
	}); err != nil {
		return nil, newError(ErrSerialization, err, "")
	}
	logger.Info("outputs written",
		zap.String("request", plan.RequestPath),
		zap.String("metrics", plan.OutputPath),
		zap.Int("kept", len(result.Kept)),
		zap.Int("dropped", len(result.Dropped)),
	)
	return result, nil
}

// Options are the per-run values applied to every kept metric.
type Options struct {
	UpdatedExpiry int
	NewDataReview string
	RenewalPeriod string
}

// Reconcile applies rows to doc in order. Dropped metrics are removed; kept
// metrics get NewDataReview appended to data_reviews and expires set to
// UpdatedExpiry, and contribute one block to the request.
func Reconcile(ctx context.Context, doc *metricsfile.Document, rows []decisions.Row, opts Options, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := &Result{
		UpdatedExpiry: opts.UpdatedExpiry,
		Request:       request.New(opts.RenewalPeriod),
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		section, metric, err := doc.ResolveKey(row.Name)
		if err != nil {
			return nil, newError(ErrKeyResolution, err, "line %d", row.Line)
		}
		log := logger.With(zap.String("metric", row.Name), zap.Int("line", row.Line))

		if !row.Keep {
			if err := doc.RemoveMetric(section, metric); err != nil {
				return nil, newError(ErrKeyResolution, err, "line %d", row.Line)
			}
			result.Dropped = append(result.Dropped, row.Name)
			log.Debug("metric dropped")
			continue
		}

		prior, err := row.PriorReviews()
		if err != nil {
			return nil, newError(ErrMalformedField, err, "%s", row.Name)
		}
		if len(prior) == 0 {
			return nil, newError(ErrMalformedField, nil, "%s line %d: %s lists no prior review", row.Name, row.Line, decisions.ColumnDataReviews)
		}
		if err := doc.AppendDataReview(section, metric, opts.NewDataReview); err != nil {
			return nil, recordError(err, row)
		}
		if err := doc.SetExpires(section, metric, opts.UpdatedExpiry); err != nil {
			return nil, recordError(err, row)
		}
		result.Request.Add(request.Block{
			Name:        row.Name,
			FirstReview: prior[0],
			Expires:     opts.UpdatedExpiry,
			Reason:      row.Reason,
		})
		result.Kept = append(result.Kept, row.Name)
		log.Debug("metric renewed", zap.Int("expires", opts.UpdatedExpiry))
	}
	return result, nil
}

func recordError(err error, row decisions.Row) error {
	if errors.Is(err, metricsfile.ErrInvalidRecord) {
		return newError(ErrMalformedField, err, "line %d", row.Line)
	}
	return newError(ErrKeyResolution, err, "line %d", row.Line)
}

func loadMetrics(path string) (*metricsfile.Document, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrInputNotFound, nil, "metrics file %s", path)
		}
		return nil, newError(ErrInputNotFound, err, "metrics file %s", path)
	}
	doc, err := metricsfile.Load(path)
	if err != nil {
		return nil, newError(ErrMalformedField, err, "")
	}
	return doc, nil
}

func loadDecisions(candidates []string) (*decisions.Table, error) {
	if len(candidates) == 0 {
		return nil, newError(ErrInputNotFound, nil, "no decision list configured")
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, newError(ErrInputNotFound, err, "decision list %s", path)
		}
		if info.IsDir() {
			return nil, newError(ErrInputNotFound, nil, "decision list %s is a directory", path)
		}
		table, err := decisions.Load(path)
		if err != nil {
			return nil, newError(ErrMalformedField, err, "")
		}
		return table, nil
	}
	return nil, newError(ErrInputNotFound, nil, "decision list %s", strings.Join(candidates, " or "))
}

// Summary is a one-line description of a result for logs and the console.
func (r *Result) Summary() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("renewed %d, removed %d, new expiry %d", len(r.Kept), len(r.Dropped), r.UpdatedExpiry)
}
