package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// StaticPage is an in-memory Page backed by a fixed html string. It is used
// to run the automation against saved pages and in tests. Clicks are recorded
// and handed to OnClick, which may replace the html to simulate the page's
// reaction.
type StaticPage struct {
	mu         sync.Mutex
	location   string
	windowName string
	html       string
	clicks     []string
	snapshots  int

	// OnClick is called after a click was recorded, with the page lock
	// released.
	OnClick func(p *StaticPage, el Element)
}

func NewStaticPage(location, html string) *StaticPage {
	return &StaticPage{
		location: location,
		html:     html,
	}
}

func (p *StaticPage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *StaticPage) WindowName(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windowName, nil
}

func (p *StaticPage) SetWindowName(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windowName = name
	return nil
}

// SetHTML replaces the content of the page.
func (p *StaticPage) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// Snapshot parses the current html. Button-like elements without an explicit
// identity get one derived from their position in the document.
func (p *StaticPage) Snapshot(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	h, loc := p.html, p.location
	p.snapshots++
	p.mu.Unlock()

	d, err := NewDocument(strings.NewReader(h), loc)
	if err != nil {
		return nil, err
	}
	d.doc.Find(ButtonSelector).Each(func(i int, s *goquery.Selection) {
		if _, ok := s.Attr(IDAttr); !ok {
			s.SetAttr(IDAttr, fmt.Sprintf("s%d", i))
		}
	})
	return d, nil
}

func (p *StaticPage) Click(ctx context.Context, el Element) error {
	if el.ID() == "" {
		return errors.New("cannot click an element without identity")
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, el.ID())
	onClick := p.OnClick
	p.mu.Unlock()
	if onClick != nil {
		onClick(p, el)
	}
	return nil
}

// Clicks returns the identities of all clicked elements in click order.
func (p *StaticPage) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Snapshots returns how often the DOM was inspected.
func (p *StaticPage) Snapshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots
}
