// Package page renders the tribute HTML document from a fixed embedded template.
//
// Every configured string goes through html/template contextual escaping; the
// tribute texts are escaped first and then have newlines turned into <br>.
package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/maxverstappen583/Tribute/tribute"
)

//go:embed templates/index.html.tmpl
var templatesFS embed.FS

// Section ids accepted by the open query parameter.
const (
	SectionThanks  = "thanks"
	SectionGlory   = "glory"
	SectionWho     = "who"
	SectionCounter = "counter"
	SectionBot     = "bot"
)

// Sections lists the recognised section ids in page order.
func Sections() []string {
	return []string{SectionThanks, SectionGlory, SectionWho, SectionCounter, SectionBot}
}

// IsSection reports whether id names a page section.
func IsSection(id string) bool {
	for _, s := range Sections() {
		if s == id {
			return true
		}
	}
	return false
}

// Data is everything the page shows. Count is nil when no count is available.
type Data struct {
	FriendName    string
	YourName      string
	StartYear     string
	EndYear       string
	ImageURL      string
	CommandName   string
	CommandPrefix string
	Texts         tribute.Texts
	Count         *int64
	Open          string
}

type section struct {
	ID    string
	Title string
	Body  template.HTML
	Open  bool
}

type view struct {
	FriendName string
	YourName   string
	StartYear  string
	EndYear    string
	ImageURL   string
	Tributes   []section
	FAQ        []section
	HasCount   bool
	Visits     string
}

// Renderer executes the embedded page template.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded template.
func New() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Render writes the full HTML document for d to w.
func (r *Renderer) Render(w io.Writer, d Data) error {
	return r.tmpl.ExecuteTemplate(w, "index.html.tmpl", buildView(d))
}

// RenderString renders the document into a string.
func (r *Renderer) RenderString(d Data) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TextHTML escapes s and converts newlines to <br>.
func TextHTML(s string) template.HTML {
	//nolint:gosec // G203: input is escaped before the only markup is inserted
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
}

func buildView(d Data) view {
	open := d.Open
	if !IsSection(open) {
		open = ""
	}
	mk := func(id, title, body string) section {
		return section{ID: id, Title: title, Body: TextHTML(body), Open: id == open}
	}

	cmd := d.CommandName
	if cmd == "" {
		cmd = "tribute"
	}
	prefix := d.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}

	v := view{
		FriendName: d.FriendName,
		YourName:   d.YourName,
		StartYear:  d.StartYear,
		EndYear:    d.EndYear,
		ImageURL:   d.ImageURL,
		Tributes: []section{
			mk(SectionThanks, "Thank you", d.Texts.Thanks),
			mk(SectionGlory, "Remembering & Glorifying", d.Texts.Glory),
		},
		FAQ: []section{
			mk(SectionWho, "Who was "+d.FriendName+"?",
				d.FriendName+" was my friend from "+d.StartYear+" to "+d.EndYear+". This page holds the words I wanted to say."),
			mk(SectionCounter, "What is the visit counter?",
				"Each time this page is opened the counter goes up by one.\nReading the tribute in chat does not count as a visit."),
			mk(SectionBot, "Is there a chat bot?",
				"Yes. In Discord use /"+cmd+" or "+prefix+cmd+" to post the tribute, and /start for a link to this page."),
		},
	}
	if d.Count != nil {
		v.HasCount = true
		v.Visits = strconv.FormatInt(*d.Count, 10)
	}
	return v
}
