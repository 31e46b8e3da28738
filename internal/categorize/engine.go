package categorize

import (
	"context"
	"time"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/logger"
)

// Token budgeting for model batches. Estimates are character-derived at
// roughly four characters per token, plus a fixed per-item overhead for
// numbering and direction markup. The completion reserve keeps room for the
// label array in the response.
const (
	promptTokenBudget      = 3000
	completionTokenReserve = 1000
	perItemTokenOverhead   = 8

	defaultInterBatchDelay = 500 * time.Millisecond
)

// Engine labels transactions in place. Inflows take the Income label
// straight away; outflows go to the classifier in token-budgeted batches,
// with the keyword rules standing in for any batch the model cannot serve.
// A nil classifier runs the whole set through the rules.
type Engine struct {
	rules      RuleTable
	classifier Classifier
	delay      time.Duration
}

// NewEngine builds an engine. nil rules select DefaultRules; classifier may
// be nil for rule-only operation.
func NewEngine(rules RuleTable, classifier Classifier) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{
		rules:      rules,
		classifier: classifier,
		delay:      defaultInterBatchDelay,
	}
}

// Categorize annotates every transaction with a Category and a
// CategorySource. It never fails: classifier trouble degrades the affected
// batch to rule labels and the run keeps going.
func (e *Engine) Categorize(ctx context.Context, txs []*domain.Transaction) {
	log := logger.FromContext(ctx)

	var outflows []*domain.Transaction
	for _, tx := range txs {
		if tx.Direction == domain.Inflow {
			e.applyRule(tx)
			continue
		}
		outflows = append(outflows, tx)
	}

	if e.classifier == nil {
		for _, tx := range outflows {
			e.applyRule(tx)
		}
		return
	}

	batches := splitBatches(outflows)
	for i, batch := range batches {
		if i > 0 {
			sleepCtx(ctx, e.delay)
		}

		labels, err := e.classifier.ClassifyBatch(ctx, itemsOf(batch))
		if err != nil || len(labels) != len(batch) {
			if err != nil {
				log.Warn().Err(err).
					Int("batch", i+1).
					Int("size", len(batch)).
					Msg("model classification failed, falling back to rules")
			} else {
				log.Warn().
					Int("batch", i+1).
					Int("want", len(batch)).
					Int("got", len(labels)).
					Msg("model returned wrong label count, falling back to rules")
			}
			for _, tx := range batch {
				e.applyRule(tx)
			}
			continue
		}

		for j, tx := range batch {
			tx.Category = Standardize(labels[j])
			tx.CategorySource = domain.CategorySourceModel
		}
	}
}

func (e *Engine) applyRule(tx *domain.Transaction) {
	tx.Category = Standardize(e.rules.Match(tx.Description, tx.Direction))
	tx.CategorySource = domain.CategorySourceRule
}

func itemsOf(txs []*domain.Transaction) []Item {
	items := make([]Item, len(txs))
	for i, tx := range txs {
		items[i] = Item{Description: tx.Description, Direction: tx.Direction}
	}
	return items
}

func estimateTokens(description string) int {
	return len(description)/4 + perItemTokenOverhead
}

// splitBatches packs transactions into batches whose estimated prompt cost
// stays under the budget minus the completion reserve. An oversized single
// item still travels alone rather than being dropped.
func splitBatches(txs []*domain.Transaction) [][]*domain.Transaction {
	limit := promptTokenBudget - completionTokenReserve

	var batches [][]*domain.Transaction
	var cur []*domain.Transaction
	used := 0
	for _, tx := range txs {
		cost := estimateTokens(tx.Description)
		if len(cur) > 0 && used+cost > limit {
			batches = append(batches, cur)
			cur = nil
			used = 0
		}
		cur = append(cur, tx)
		used += cost
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// sleepCtx waits out the delay unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
