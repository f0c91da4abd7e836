package extract

import (
	"strings"
	"testing"
)

func TestTextPlain(t *testing.T) {
	got := Text("notes.TXT", []byte("Bitcoin rallied 12% this week."))
	if got != "Bitcoin rallied 12% this week." {
		t.Errorf("Text() = %q", got)
	}
}

func TestTextInvalidUTF8(t *testing.T) {
	got := Text("notes.txt", []byte{'o', 'k', 0xff})
	if got != "ok�" {
		t.Errorf("Text() = %q, want replacement character", got)
	}
}

func TestTextUnsupportedType(t *testing.T) {
	if got := Text("sheet.xlsx", []byte("PK\x03\x04")); got != "" {
		t.Errorf("Text() = %q, want empty body for unsupported type", got)
	}
}

func TestTextMalformedPDF(t *testing.T) {
	got := Text("broken.pdf", []byte("this is not a pdf"))
	if !strings.HasPrefix(got, "Error while extracting the PDF:") {
		t.Errorf("Text() = %q, want extraction error message", got)
	}
}

func TestPDFTextRejectsGarbage(t *testing.T) {
	if _, err := PDFText([]byte{0x00, 0x01}); err == nil {
		t.Error("PDFText should fail on non-PDF input")
	}
}

func TestHTMLText(t *testing.T) {
	page := `<html><head><title>Rates outlook</title><script>var x = 1;</script></head>
<body>
  <nav>Home | Markets</nav>
  <article><h1>Central banks</h1>
  <p>Rates are expected to   stay high.</p></article>
  <footer>Copyright</footer>
</body></html>`

	got := Text("outlook.html", []byte(page))

	if !strings.HasPrefix(got, "Rates outlook\n") {
		t.Errorf("Title should lead the text, got %q", got)
	}
	if !strings.Contains(got, "Central banks Rates are expected to stay high.") {
		t.Errorf("Article text missing or not normalised: %q", got)
	}
	for _, noise := range []string{"var x", "Home | Markets", "Copyright"} {
		if strings.Contains(got, noise) {
			t.Errorf("Text should not contain %q: %q", noise, got)
		}
	}
}

func TestHTMLTextFallsBackToBody(t *testing.T) {
	got, err := HTMLText([]byte(`<html><body><div>Emerging markets stabilise</div></body></html>`))
	if err != nil {
		t.Fatalf("HTMLText failed: %v", err)
	}
	if got != "Emerging markets stabilise" {
		t.Errorf("HTMLText() = %q", got)
	}
}

func TestCleanPDFText(t *testing.T) {
	got := cleanPDFText("  Title  \n\n\n  line one\n   \nline two  ")
	if got != "Title\nline one\nline two" {
		t.Errorf("cleanPDFText() = %q", got)
	}
}

func TestCombine(t *testing.T) {
	got := Combine([]Document{
		{Name: "a.txt", Text: "alpha"},
		{Name: "b.pdf", Text: ""},
	})
	want := "Document: a.txt\nalpha\n\n---\n\nDocument: b.pdf\n"
	if got != want {
		t.Errorf("Combine() = %q, want %q", got, want)
	}

	if Combine(nil) != "" {
		t.Error("Combine(nil) should be empty")
	}
}
