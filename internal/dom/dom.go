// Package dom provides the page capability the automator works against and
// the goquery backed snapshot documents it inspects.
package dom

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// IDAttr is the attribute used to give every button-like element of a page a
// stable identity across snapshots. Drivers stamp it into the live DOM before
// taking a snapshot so that a snapshot element can be clicked later on.
const IDAttr = "data-autofollow-id"

// ButtonSelector matches all button-like elements of a page.
const ButtonSelector = `button, [role="button"]`

var loginFormSelectors = []string{
	"form.login__form",
	"input#username",
	`input[name="session_key"]`,
	`form[action*="login-submit"]`,
}

// A Page is one browsing context (a browser tab) as seen from the automator.
type Page interface {
	// Location returns the current url of the page.
	Location(ctx context.Context) (string, error)
	// WindowName returns the persistent name of the browsing context.
	WindowName(ctx context.Context) (string, error)
	SetWindowName(ctx context.Context, name string) error
	// Snapshot returns the current state of the DOM.
	Snapshot(ctx context.Context) (*Document, error)
	// Click clicks the live element that el was taken from.
	Click(ctx context.Context, el Element) error
}

// Document is an immutable snapshot of a page's DOM.
type Document struct {
	doc      *goquery.Document
	location string
}

// NewDocument parses the html read from r. location is the url the html was
// taken from.
func NewDocument(r io.Reader, location string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("error while parsing document: %w", err)
	}
	return &Document{doc: doc, location: location}, nil
}

// NewDocumentFromString is a convenience wrapper around NewDocument.
func NewDocumentFromString(s, location string) (*Document, error) {
	return NewDocument(strings.NewReader(s), location)
}

func (d *Document) Location() string {
	return d.location
}

// Lang returns the language attribute of the document element.
func (d *Document) Lang() string {
	return strings.TrimSpace(d.doc.Find("html").First().AttrOr("lang", ""))
}

// CanonicalURL returns the href of the canonical link element, if any.
func (d *Document) CanonicalURL() string {
	return strings.TrimSpace(d.doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""))
}

// HasLoginForm reports whether the page asks the user to sign in.
func (d *Document) HasLoginForm() bool {
	for _, sel := range loginFormSelectors {
		if d.doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// Query returns all elements matching the css selector in document order.
func (d *Document) Query(selector string) []Element {
	var elements []Element
	d.doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		elements = append(elements, Element{sel: s})
	})
	return elements
}

// Buttons returns every button-like element of the document.
func (d *Document) Buttons() []Element {
	return d.Query(ButtonSelector)
}

// ElementByID looks up an element by the identity stamped into IDAttr.
func (d *Document) ElementByID(id string) (Element, bool) {
	if id == "" {
		return Element{}, false
	}
	s := d.doc.Find(fmt.Sprintf(`[%s="%s"]`, IDAttr, id)).First()
	if s.Length() == 0 {
		return Element{}, false
	}
	return Element{sel: s}, true
}

func (d *Document) HTML() (string, error) {
	return goquery.OuterHtml(d.doc.Selection)
}

// Element is a single element of a Document.
type Element struct {
	sel *goquery.Selection
}

// ID returns the identity stamped into the element by the page driver.
func (e Element) ID() string {
	if e.sel == nil {
		return ""
	}
	return e.sel.AttrOr(IDAttr, "")
}

func (e Element) Attr(name string) (string, bool) {
	if e.sel == nil {
		return "", false
	}
	return e.sel.Attr(name)
}

// Disabled reports whether the element carries a disabled attribute. An
// explicit disabled="false" is not treated as disabled.
func (e Element) Disabled() bool {
	v, ok := e.Attr("disabled")
	return ok && !strings.EqualFold(strings.TrimSpace(v), "false")
}

// Text returns the text content of the element and all its descendants.
func (e Element) Text() string {
	if e.sel == nil || len(e.sel.Nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	textContent(e.sel.Nodes[0], &sb)
	return sb.String()
}

// LabelTexts returns the text content of every nested span.
func (e Element) LabelTexts() []string {
	if e.sel == nil {
		return nil
	}
	var texts []string
	e.sel.Find("span").Each(func(i int, s *goquery.Selection) {
		var sb strings.Builder
		textContent(s.Nodes[0], &sb)
		texts = append(texts, sb.String())
	})
	return texts
}

func (e Element) String() string {
	if e.sel == nil {
		return "<nil>"
	}
	h, err := goquery.OuterHtml(e.sel)
	if err != nil {
		return "<" + goquery.NodeName(e.sel) + ">"
	}
	return h
}

func textContent(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		textContent(c, sb)
	}
}
