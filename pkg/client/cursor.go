package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/gi8lino/restgen/pkg/registry"
)

// DefaultMaxPages caps Drain when the caller passes no limit.
const DefaultMaxPages = 50

// ErrPageLimit is returned by Drain when more pages remain after the cap.
var ErrPageLimit = errors.New("page limit reached")

// Page is one page of a paginated result set.
type Page struct {
	Items    []any
	Next     string // empty when there is no next page
	Previous string // empty when there is no previous page
	Offset   int
	Limit    int
	Count    int
}

// pageLoader fetches the page behind link. A nil page with a nil error
// means the failure was ignored and the cursor must keep its state.
type pageLoader func(ctx context.Context, link string) (*Page, error)

// Cursor holds exactly one page. Advance and Retreat replace it wholesale.
type Cursor struct {
	mu   sync.Mutex
	page *Page
	load pageLoader
}

func newCursor(page *Page, load pageLoader) *Cursor {
	return &Cursor{page: page, load: load}
}

// Page returns a copy of the current page.
func (c *Cursor) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := *c.page
	p.Items = slices.Clone(p.Items)
	return p
}

// Items returns the items of the current page.
func (c *Cursor) Items() []any { return c.Page().Items }

// Offset returns the offset reported for the current page.
func (c *Cursor) Offset() int { return c.Page().Offset }

// Limit returns the page size reported for the current page.
func (c *Cursor) Limit() int { return c.Page().Limit }

// Count returns the total number of items reported by the backend.
func (c *Cursor) Count() int { return c.Page().Count }

// HasNext reports whether a next page link is present.
func (c *Cursor) HasNext() bool { return c.Page().Next != "" }

// HasPrevious reports whether a previous page link is present.
func (c *Cursor) HasPrevious() bool { return c.Page().Previous != "" }

// Advance loads the next page. It does nothing when there is none.
func (c *Cursor) Advance(ctx context.Context) error {
	_, err := c.move(ctx, func(p *Page) string { return p.Next })
	return err
}

// Retreat loads the previous page. It does nothing when there is none.
func (c *Cursor) Retreat(ctx context.Context) error {
	_, err := c.move(ctx, func(p *Page) string { return p.Previous })
	return err
}

// move follows the link picked from the current page and reports whether
// the page was replaced. Navigation is serialized.
func (c *Cursor) move(ctx context.Context, pick func(*Page) string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	link := pick(c.page)
	if link == "" {
		return false, nil
	}
	if c.load == nil {
		return false, fmt.Errorf("cursor cannot follow %q: no loader", link)
	}
	page, err := c.load(ctx, link)
	if err != nil {
		return false, err
	}
	if page == nil {
		return false, nil
	}
	c.page = page
	return true, nil
}

// Pages yields the current page and then every following page, advancing
// the cursor lazily. Iteration stops on the first error.
func (c *Cursor) Pages(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		for {
			page := c.Page()
			if !yield(&page, nil) {
				return
			}
			moved, err := c.move(ctx, func(p *Page) string { return p.Next })
			if err != nil {
				yield(nil, err)
				return
			}
			if !moved {
				return
			}
		}
	}
}

// Drain advances through at most maxPages pages (DefaultMaxPages if <= 0)
// and concatenates their items. If pages remain after the cap, the items
// collected so far are returned together with ErrPageLimit.
func (c *Cursor) Drain(ctx context.Context, maxPages int) ([]any, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var (
		items []any
		seen  int
	)
	for page, err := range c.Pages(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, page.Items...)
		seen++
		if seen >= maxPages {
			if page.Next != "" {
				return items, fmt.Errorf("%w: stopped after %d pages", ErrPageLimit, seen)
			}
			break
		}
	}
	return items, nil
}

// parsePage reads the { next, previous, results, offset, limit, count } shape.
// results may be a single object or a sequence.
func parsePage(m map[string]any, ctor registry.Constructor) (*Page, error) {
	page := &Page{
		Next:     asLink(m["next"]),
		Previous: asLink(m["previous"]),
		Offset:   asInt(m["offset"]),
		Limit:    asInt(m["limit"]),
		Count:    asInt(m["count"]),
	}

	var err error
	results := m["results"]
	switch seq, ok := asSequence(results); {
	case ok:
		page.Items, err = constructAll(ctor, seq)
	case results == nil:
		page.Items = []any{}
	default:
		var item any
		item, err = construct(ctor, results)
		page.Items = []any{item}
	}
	if err != nil {
		return nil, fmt.Errorf("page results: %w", err)
	}
	return page, nil
}
