// Package search is the debounced title search box.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/bus"
	"github.com/jm289765/concept-graph-web/internal/debounce"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
)

// DefaultWindow is how long typing must pause before a query is sent.
const DefaultWindow = 300 * time.Millisecond

// Searcher runs title searches, typically the provider.
type Searcher interface {
	Search(ctx context.Context, query string) ([]node.SearchResult, error)
}

// Selector is anything a result can be opened in. Editors implement it.
type Selector interface {
	SetSelectedNode(ctx context.Context, id node.ID) node.ID
}

// Box holds the current query and the results of the latest search.
type Box struct {
	searcher Searcher
	logger   *zap.Logger
	debounce *debounce.Debouncer[string]
	results  *bus.Bus[[]node.SearchResult]

	mu      sync.Mutex
	seq     uint64
	query   string
	current []node.SearchResult
}

// New returns a search box over searcher. A window of zero or less uses
// DefaultWindow.
func New(searcher Searcher, window time.Duration, logger *zap.Logger) *Box {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Box{
		searcher: searcher,
		logger:   logger,
		results:  bus.New[[]node.SearchResult](),
		current:  []node.SearchResult{},
	}
	b.debounce = debounce.New(func(q string) { b.Run(context.Background(), q) }, window)
	return b
}

// Type records the query as typed and schedules a search once typing pauses.
func (b *Box) Type(query string) {
	b.mu.Lock()
	b.query = query
	b.mu.Unlock()
	b.debounce.Trigger(query)
}

// Flush runs a scheduled search immediately.
func (b *Box) Flush() bool {
	return b.debounce.Flush()
}

// Run searches for query now. A blank query clears the results without a
// request. Results of a search overtaken by a newer one are dropped.
func (b *Box) Run(ctx context.Context, query string) ([]node.SearchResult, error) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	var found []node.SearchResult
	if strings.TrimSpace(query) != "" {
		var err error
		found, err = b.searcher.Search(ctx, query)
		if err != nil {
			b.logger.Warn("Search failed", zap.String("query", query), zap.Error(err))
			return nil, err
		}
	}
	if found == nil {
		found = []node.SearchResult{}
	}

	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		return found, nil
	}
	b.current = found
	b.mu.Unlock()

	b.results.Publish(append([]node.SearchResult{}, found...))
	return found, nil
}

// Query returns the text last typed.
func (b *Box) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// Results returns the latest results in provider order.
func (b *Box) Results() []node.SearchResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]node.SearchResult{}, b.current...)
}

// OnResults registers h for every new result list.
func (b *Box) OnResults(h bus.Handler[[]node.SearchResult]) bus.Subscription {
	return b.results.Subscribe(h)
}

// SetWindow changes the typing pause for later queries.
func (b *Box) SetWindow(d time.Duration) {
	if d <= 0 {
		d = DefaultWindow
	}
	b.debounce.SetWindow(d)
}

func (b *Box) Window() time.Duration {
	return b.debounce.Window()
}

// Open selects r in target and returns the resulting selection.
func Open(ctx context.Context, r node.SearchResult, target Selector) node.ID {
	return target.SetSelectedNode(ctx, r.ID)
}

// Close drops any scheduled search.
func (b *Box) Close() {
	b.debounce.Cancel()
}
