package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
)

const sampleTEI = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
<teiHeader><fileDesc><titleStmt><title type="main">T</title></titleStmt>
<sourceDesc><biblStruct><analytic><author><persName><forename type="first">Ada</forename><surname>Lovelace</surname></persName></author></analytic></biblStruct></sourceDesc>
</fileDesc><profileDesc><abstract><p>A</p></abstract></profileDesc></teiHeader>
<text><body><div><head>H1</head><p>B1</p></div></body></text></TEI>`

type stubClient struct {
	raw   []byte
	err   error
	calls int
}

func (s *stubClient) ProcessFulltext(context.Context, string) ([]byte, error) {
	s.calls++
	return s.raw, s.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writePDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	client := &stubClient{raw: []byte(sampleTEI)}
	p := NewParser(client, Config{}, quietLogger())

	doc, err := p.Parse(context.Background(), writePDF(t, "%PDF"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := doc.Mapping
	if m.Title != "T" || m.Abstract != "A" || len(m.Sections) != 1 {
		t.Fatalf("unexpected mapping %+v", m)
	}
	if m.Authors == nil || *m.Authors != "Ada Lovelace" {
		t.Fatalf("Authors = %v, want Ada Lovelace", m.Authors)
	}
	if n := len(doc.Tree.HeaderAuthors()); n != 1 {
		t.Fatalf("tree header authors = %d, want 1", n)
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client *stubClient
	}{
		{"no result", &stubClient{}},
		{"not tei", &stubClient{raw: []byte("<html/>")}},
		{"grobid error", &stubClient{err: errors.New("status 500")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.client, Config{}, quietLogger())
			_, err := p.ParseToMapping(context.Background(), writePDF(t, "%PDF"))
			if !errors.Is(err, common.ErrParse) {
				t.Fatalf("err = %v, want ErrParse", err)
			}
			if _, err := p.ParseToTree(context.Background(), writePDF(t, "%PDF")); !errors.Is(err, common.ErrParse) {
				t.Fatalf("ParseToTree err = %v, want ErrParse", err)
			}
		})
	}
}

func TestParse_CachesByContent(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "cache")
	client := &stubClient{raw: []byte(sampleTEI)}
	p := NewParser(client, Config{CacheDir: cache}, quietLogger())

	first := writePDF(t, "%PDF same bytes")
	second := writePDF(t, "%PDF same bytes")
	for _, path := range []string{first, second, first} {
		if _, err := p.Parse(context.Background(), path); err != nil {
			t.Fatalf("Parse(%s): %v", path, err)
		}
	}
	if client.calls != 1 {
		t.Fatalf("grobid calls = %d, want 1", client.calls)
	}
	entries, err := os.ReadDir(cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".xml" {
		t.Fatalf("cache entries = %v, want one .tei.xml", entries)
	}

	if _, err := p.Parse(context.Background(), writePDF(t, "%PDF other bytes")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("grobid calls = %d, want 2", client.calls)
	}
}
