package dom

import (
	"context"
	"strings"
	"testing"
)

const (
	htmlCompanyPage = `<!DOCTYPE html>
<html lang="en-US">
<head>
	<link rel="canonical" href="https://www.linkedin.com/company/acme/">
	<script>var follow = "Following";</script>
</head>
<body>
	<div class="org-top-card">
		<button class="follow artdeco-button" data-control-name="follow" aria-label="Follow Acme">
			<svg></svg>
			<span class="artdeco-button__text">
				Follow
			</span>
		</button>
		<button disabled="false">Message</button>
		<button disabled>Visit website</button>
		<div role="button" aria-pressed="true"><!-- Follow -->More</div>
	</div>
</body>
</html>`
	htmlLoginPage = `<html lang="en"><body><form class="login__form"><input id="username" name="session_key"></form></body></html>`
)

func TestDocumentMetadata(t *testing.T) {
	d, err := NewDocumentFromString(htmlCompanyPage, "https://www.linkedin.com/company/acme/")
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if d.Lang() != "en-US" {
		t.Fatalf("expected lang 'en-US' but got '%s'", d.Lang())
	}
	if d.CanonicalURL() != "https://www.linkedin.com/company/acme/" {
		t.Fatalf("unexpected canonical url '%s'", d.CanonicalURL())
	}
	if d.HasLoginForm() {
		t.Fatalf("expected no login form")
	}
}

func TestDocumentLoginForm(t *testing.T) {
	d, err := NewDocumentFromString(htmlLoginPage, "https://www.linkedin.com/login")
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if !d.HasLoginForm() {
		t.Fatalf("expected a login form")
	}
}

func TestElementTextAndLabels(t *testing.T) {
	d, err := NewDocumentFromString(htmlCompanyPage, "")
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	buttons := d.Buttons()
	if len(buttons) != 4 {
		t.Fatalf("expected 4 buttons but got %d", len(buttons))
	}
	follow := buttons[0]
	if strings.TrimSpace(follow.Text()) != "Follow" {
		t.Fatalf("expected text 'Follow' but got '%s'", follow.Text())
	}
	labels := follow.LabelTexts()
	if len(labels) != 1 || strings.TrimSpace(labels[0]) != "Follow" {
		t.Fatalf("unexpected label texts %q", labels)
	}
	if v, _ := follow.Attr("data-control-name"); v != "follow" {
		t.Fatalf("expected control name 'follow' but got '%s'", v)
	}
	// comments are not part of the text content
	if strings.TrimSpace(buttons[3].Text()) != "More" {
		t.Fatalf("expected text 'More' but got '%s'", buttons[3].Text())
	}
}

func TestElementDisabled(t *testing.T) {
	d, err := NewDocumentFromString(htmlCompanyPage, "")
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	buttons := d.Buttons()
	expected := []bool{false, false, true, false}
	for i, b := range buttons {
		if b.Disabled() != expected[i] {
			t.Errorf("button %d: expected disabled=%v but got %v", i, expected[i], b.Disabled())
		}
	}
}

func TestStaticPageAssignsStableIDs(t *testing.T) {
	p := NewStaticPage("https://www.linkedin.com/company/acme/", htmlCompanyPage)
	ctx := context.Background()
	first, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	second, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	b1, b2 := first.Buttons(), second.Buttons()
	for i := range b1 {
		if b1[i].ID() == "" || b1[i].ID() != b2[i].ID() {
			t.Fatalf("button %d: ids differ between snapshots: '%s' vs '%s'", i, b1[i].ID(), b2[i].ID())
		}
	}
	el, ok := second.ElementByID(b1[0].ID())
	if !ok || el.ID() != b1[0].ID() {
		t.Fatalf("expected to find element %s", b1[0].ID())
	}
	if p.Snapshots() != 2 {
		t.Fatalf("expected 2 snapshots but got %d", p.Snapshots())
	}
}

func TestStaticPageClick(t *testing.T) {
	p := NewStaticPage("https://www.linkedin.com/company/acme/", htmlCompanyPage)
	p.OnClick = func(p *StaticPage, el Element) {
		p.SetHTML(`<html lang="en"><body><button aria-pressed="true">Following</button></body></html>`)
	}
	ctx := context.Background()
	d, _ := p.Snapshot(ctx)
	if err := p.Click(ctx, d.Buttons()[0]); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if clicks := p.Clicks(); len(clicks) != 1 || clicks[0] != "s0" {
		t.Fatalf("unexpected clicks %v", clicks)
	}
	d, _ = p.Snapshot(ctx)
	if strings.TrimSpace(d.Buttons()[0].Text()) != "Following" {
		t.Fatalf("expected the page to reflect the click")
	}
	if err := p.Click(ctx, Element{}); err == nil {
		t.Fatalf("expected an error when clicking an element without identity")
	}
}

func TestStaticPageWindowName(t *testing.T) {
	p := NewStaticPage("", "")
	ctx := context.Background()
	if err := p.SetWindowName(ctx, "prospection::{}"); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if n, _ := p.WindowName(ctx); n != "prospection::{}" {
		t.Fatalf("unexpected window name '%s'", n)
	}
}
