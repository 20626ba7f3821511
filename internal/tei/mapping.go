package tei

import (
	"strings"

	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

// ToMapping flattens the tree into the article mapping: main title,
// abstract, body sections and, when the header names any, a "; "-joined
// author list.
func (t *Tree) ToMapping() entity.ParsedMapping {
	m := entity.ParsedMapping{
		Title:    t.title(),
		Abstract: t.abstract(),
		Sections: t.sections(),
	}
	if names := t.authorNames(); len(names) > 0 {
		joined := strings.Join(names, "; ")
		m.Authors = &joined
	}
	return m
}

func (t *Tree) title() string {
	header := t.Header()
	main := header.FindFunc(func(n *Node) bool {
		if !n.Is("title") {
			return false
		}
		typ, _ := n.Attr("type")
		return typ == "main"
	})
	if main == nil {
		main = header.Child("fileDesc").Child("titleStmt").Child("title")
	}
	return clean(main.Text())
}

func (t *Tree) abstract() string {
	abs := t.Header().Find("abstract")
	if abs == nil {
		return ""
	}
	paras := abs.FindAll("p")
	if len(paras) == 0 {
		return clean(abs.Text())
	}
	parts := make([]string, 0, len(paras))
	for _, p := range paras {
		if s := clean(p.Text()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (t *Tree) sections() []entity.Section {
	out := []entity.Section{}
	for _, div := range t.Body().ChildrenNamed("div") {
		heading := clean(div.Child("head").Text())
		var parts []string
		for _, p := range div.FindAll("p") {
			if s := clean(p.Text()); s != "" {
				parts = append(parts, s)
			}
		}
		text := strings.Join(parts, " ")
		if heading == "" && text == "" {
			continue
		}
		out = append(out, entity.Section{Heading: heading, Text: text})
	}
	return out
}

// authorNames reads persName entries from the header's source description.
func (t *Tree) authorNames() []string {
	var names []string
	for _, pers := range t.Header().Find("sourceDesc").FindAll("persName") {
		if name := personName(pers); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Author converts a header author element into an entity.Author. ok is false
// when the element has no persName.
func Author(n *Node) (entity.Author, bool) {
	pers := n.Find("persName")
	if pers == nil {
		return entity.Author{}, false
	}
	first, _ := forenames(pers)
	last := clean(pers.Child("surname").Text())
	email := clean(n.Child("email").Text())
	return entity.NewAuthor(first, last, email), true
}

func personName(pers *Node) string {
	first, middle := forenames(pers)
	parts := []string{first, middle, clean(pers.Child("surname").Text())}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// forenames returns the first forename and any middle names. A forename
// without a type counts as first.
func forenames(pers *Node) (first, middle string) {
	var mids []string
	for _, f := range pers.ChildrenNamed("forename") {
		name := clean(f.Text())
		if name == "" {
			continue
		}
		typ, _ := f.Attr("type")
		if typ == "middle" || (first != "" && typ != "first") {
			mids = append(mids, name)
			continue
		}
		if first == "" {
			first = name
		}
	}
	return first, strings.Join(mids, " ")
}

// clean collapses runs of whitespace and trims the result.
func clean(s string) string { return strings.Join(strings.Fields(s), " ") }
