// Package optimizer is the entry point for query optimization. It wires
// the parse collaborator, the heuristic rewriter, and the cost-based
// search into one pipeline, annotates scans with schema metadata when the
// statistics provider knows it, and reports what each call did.
package optimizer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/rewrite"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/search"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/stats"
)

// Parser turns query text into an unoptimized plan tree. The optimizer
// only consumes plans; parsing stays a collaborator behind this seam.
type Parser interface {
	Parse(query string) (*plan.Node, error)
}

// Optimizer is the facade over the optimization pipeline.
type Optimizer struct {
	parser    Parser
	provider  stats.Provider
	rewriter  *rewrite.Rewriter
	search    *search.Search
	config    Config
	logger    *slog.Logger
	observers []Observer
}

// New creates an Optimizer with the default rule set, configuration, and
// logger. The parser may be nil when only OptimizePlan is used.
func New(parser Parser, provider stats.Provider) *Optimizer {
	return &Optimizer{
		parser:    parser,
		provider:  provider,
		rewriter:  rewrite.NewDefault(),
		search:    search.New(provider),
		config:    DefaultConfig(),
		logger:    slog.Default(),
		observers: make([]Observer, 0),
	}
}

// SetConfig replaces the optimizer configuration.
func (o *Optimizer) SetConfig(config Config) {
	o.config = config
}

// SetLogger replaces the logger. A nil logger falls back to slog.Default.
func (o *Optimizer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	o.logger = logger
}

// AddObserver registers an observer to receive lifecycle events
func (o *Optimizer) AddObserver(observer Observer) {
	o.observers = append(o.observers, observer)
}

// RemoveObserver unregisters an observer
func (o *Optimizer) RemoveObserver(observer Observer) {
	for i, obs := range o.observers {
		if obs == observer {
			o.observers = append(o.observers[:i], o.observers[i+1:]...)
			return
		}
	}
}

// notify sends an event to all registered observers
func (o *Optimizer) notify(event Event) {
	event.Timestamp = time.Now()
	for _, observer := range o.observers {
		observer.OnEvent(event)
	}
}

// Optimize parses query and runs the full pipeline over the result.
func (o *Optimizer) Optimize(ctx context.Context, query string) (*plan.LogicalPlan, error) {
	root, callID, err := o.parse(query)
	if err != nil {
		return nil, err
	}

	best, _, err := o.optimizeTree(ctx, callID, root)
	if err != nil {
		return nil, err
	}
	return &plan.LogicalPlan{Root: best, TotalCost: best.EstimatedCost}, nil
}

// OptimizePlan runs the pipeline over an already-built tree. The input is
// never modified; the returned plan is a new tree.
func (o *Optimizer) OptimizePlan(ctx context.Context, root *plan.Node) (*plan.LogicalPlan, error) {
	best, _, err := o.optimizeTree(ctx, uuid.NewString(), root)
	if err != nil {
		return nil, err
	}
	return &plan.LogicalPlan{Root: best, TotalCost: best.EstimatedCost}, nil
}

// Explanation describes one optimization call: the input query, the plan
// the pipeline settled on, and the rewrite counters.
type Explanation struct {
	OriginalQuery      string         `json:"original_query"`
	OptimizedPlan      *plan.Document `json:"optimized_plan"`
	TotalEstimatedCost float64        `json:"total_estimated_cost"`
	TotalEstimatedRows int64          `json:"total_estimated_rows"`
	RewriteStats       rewrite.Stats  `json:"rewrite_stats"`
}

// Explain optimizes query and reports the outcome in serializable form.
func (o *Optimizer) Explain(ctx context.Context, query string) (*Explanation, error) {
	root, callID, err := o.parse(query)
	if err != nil {
		return nil, err
	}

	best, rewriteStats, err := o.optimizeTree(ctx, callID, root)
	if err != nil {
		return nil, err
	}

	return &Explanation{
		OriginalQuery:      query,
		OptimizedPlan:      best.Document(),
		TotalEstimatedCost: best.EstimatedCost,
		TotalEstimatedRows: best.EstimatedRows,
		RewriteStats:       rewriteStats,
	}, nil
}

func (o *Optimizer) parse(query string) (*plan.Node, string, error) {
	callID := uuid.NewString()
	if o.parser == nil {
		return nil, "", errors.New("no parser configured")
	}

	o.notify(Event{Type: EventParseStart, CallID: callID, Data: query})
	root, err := o.parser.Parse(query)
	if err != nil {
		return nil, "", errors.Wrap(err, "parsing query")
	}
	o.notify(Event{Type: EventParseEnd, CallID: callID, Data: root.Label()})
	o.logger.Debug("parsed query", "call_id", callID, "root", root.Label())

	return root, callID, nil
}

// optimizeTree is the shared pipeline behind Optimize, OptimizePlan, and
// Explain: validate, annotate scans, rewrite, search.
func (o *Optimizer) optimizeTree(ctx context.Context, callID string, root *plan.Node) (*plan.Node, rewrite.Stats, error) {
	var noStats rewrite.Stats

	// Validation runs before any pass so a malformed tree fails here,
	// with its own error, rather than as a panic deep in a rule.
	if err := plan.Validate(root, o.config.limits()); err != nil {
		return nil, noStats, errors.Wrap(err, "validating plan")
	}

	annotated, err := o.annotateScans(ctx, root)
	if err != nil {
		return nil, noStats, err
	}

	o.notify(Event{Type: EventRewriteStart, CallID: callID})
	rewritten, rewriteStats := o.rewriter.Rewrite(annotated)
	o.notify(Event{Type: EventRewriteEnd, CallID: callID, Data: map[string]interface{}{
		"iterations":    rewriteStats.Iterations,
		"rules_applied": rewriteStats.RulesApplied,
	}})
	o.logger.Debug("rewrite complete",
		"call_id", callID,
		"iterations", rewriteStats.Iterations,
		"rules_applied", rewriteStats.RulesApplied,
	)

	o.notify(Event{Type: EventSearchStart, CallID: callID})
	best, err := o.search.Optimize(ctx, rewritten)
	if err != nil {
		return nil, noStats, errors.Wrap(err, "costing plan")
	}
	o.notify(Event{Type: EventSearchEnd, CallID: callID, Data: map[string]interface{}{
		"total_cost": best.EstimatedCost,
		"total_rows": best.EstimatedRows,
	}})
	o.logger.Debug("search complete",
		"call_id", callID,
		"total_cost", best.EstimatedCost,
		"total_rows", best.EstimatedRows,
	)

	return best, rewriteStats, nil
}

// annotateScans fills in Scan column metadata from the provider when it
// also knows schemas. Column names are what let filter pushdown attribute
// an unqualified predicate to one join side, so the annotation runs
// before the rewrite pass. Scans that already carry columns are kept.
func (o *Optimizer) annotateScans(ctx context.Context, root *plan.Node) (*plan.Node, error) {
	schema, ok := o.provider.(stats.SchemaProvider)
	if !ok {
		return root, nil
	}
	return o.annotate(ctx, schema, root)
}

func (o *Optimizer) annotate(ctx context.Context, schema stats.SchemaProvider, node *plan.Node) (*plan.Node, error) {
	if node.Kind == plan.KindScan {
		props := node.Props.(plan.ScanProps)
		if len(props.Columns) > 0 {
			return node, nil
		}
		columns, err := schema.TableColumns(ctx, props.Table)
		if err != nil {
			// Missing schema only disables pushdown attribution for this
			// table; if its statistics are missing too, the estimator
			// reports that on its own.
			if stats.IsNotFound(err) {
				return node, nil
			}
			return nil, errors.Wrapf(err, "annotating scan of %s", props.Table)
		}
		if len(columns) == 0 {
			return node, nil
		}
		return node.WithProps(plan.ScanProps{Table: props.Table, Columns: columns}), nil
	}

	changed := false
	children := make([]*plan.Node, len(node.Children))
	for i, child := range node.Children {
		annotated, err := o.annotate(ctx, schema, child)
		if err != nil {
			return nil, err
		}
		children[i] = annotated
		if annotated != child {
			changed = true
		}
	}
	if !changed {
		return node, nil
	}
	return node.WithChildren(children...), nil
}
