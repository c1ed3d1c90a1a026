package epub

import (
	"archive/zip"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/google/uuid"
)

// DefaultChapterWords is how many words go into one rebuilt chapter when the
// translated text carries no chapter structure of its own.
const DefaultChapterWords = 4000

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

const stylesCSS = `body { margin: 1em; font-family: serif; line-height: 1.5; }
h1, h2 { text-align: center; }
p { text-indent: 1.2em; margin: 0 0 0.3em 0; }
`

// Build writes book as an EPUB 2.0 archive at outPath. Member order is fixed:
// mimetype stored uncompressed first, then META-INF/container.xml, the
// package document, the NCX, the stylesheet, and chapters in ascending order.
// Readers that scan the archive sequentially depend on this exact layout.
func Build(outPath string, book *Book) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create epub file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	// The mimetype member must be first and must not be compressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to create mimetype member: %w", err)
	}
	if _, err := mw.Write([]byte("application/epub+zip")); err != nil {
		return fmt.Errorf("failed to write mimetype member: %w", err)
	}

	bookID := "urn:uuid:" + uuid.NewString()

	ordered := []struct {
		name    string
		content string
	}{
		{"META-INF/container.xml", containerXML},
		{"content.opf", renderOPF(book, bookID)},
		{"toc.ncx", renderNCX(book, bookID)},
		{"styles.css", stylesCSS},
	}
	for i, ch := range book.Chapters {
		ordered = append(ordered, struct {
			name    string
			content string
		}{chapterFileName(i), renderChapter(ch)})
	}

	for _, member := range ordered {
		w, err := zw.Create(member.name)
		if err != nil {
			return fmt.Errorf("failed to create archive member %s: %w", member.name, err)
		}
		if _, err := w.Write([]byte(member.content)); err != nil {
			return fmt.Errorf("failed to write archive member %s: %w", member.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize epub archive: %w", err)
	}
	return nil
}

// SplitChapters cuts translated plain text into chapters of at most
// wordsPerChapter words, cutting only at paragraph boundaries.
func SplitChapters(text string, wordsPerChapter int) []Chapter {
	if wordsPerChapter <= 0 {
		wordsPerChapter = DefaultChapterWords
	}

	paragraphs := strings.Split(text, "\n\n")
	var chapters []Chapter
	var sb strings.Builder
	words := 0

	flush := func() {
		if sb.Len() == 0 {
			return
		}
		chapters = append(chapters, Chapter{
			Title: fmt.Sprintf("Chapter %d", len(chapters)+1),
			Text:  strings.TrimSpace(sb.String()),
		})
		sb.Reset()
		words = 0
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pw := len(strings.Fields(p))
		if words > 0 && words+pw > wordsPerChapter {
			flush()
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p)
		words += pw
	}
	flush()

	if len(chapters) == 0 {
		chapters = []Chapter{{Title: "Chapter 1", Text: ""}}
	}
	return chapters
}

func chapterFileName(index int) string {
	return fmt.Sprintf("chapter_%03d.xhtml", index+1)
}

func renderOPF(book *Book, bookID string) string {
	title := book.Title
	if title == "" {
		title = "Untitled"
	}
	lang := book.Language
	if lang == "" {
		lang = "en"
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="BookId" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
`)
	fmt.Fprintf(&sb, "    <dc:identifier id=\"BookId\" opf:scheme=\"UUID\">%s</dc:identifier>\n", bookID)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", html.EscapeString(title))
	if book.Author != "" {
		fmt.Fprintf(&sb, "    <dc:creator>%s</dc:creator>\n", html.EscapeString(book.Author))
	}
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", html.EscapeString(lang))
	sb.WriteString(`  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="css" href="styles.css" media-type="text/css"/>
`)
	for i := range book.Chapters {
		fmt.Fprintf(&sb, "    <item id=\"chapter%d\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n", i+1, chapterFileName(i))
	}
	sb.WriteString(`  </manifest>
  <spine toc="ncx">
`)
	for i := range book.Chapters {
		fmt.Fprintf(&sb, "    <itemref idref=\"chapter%d\"/>\n", i+1)
	}
	sb.WriteString(`  </spine>
</package>
`)
	return sb.String()
}

func renderNCX(book *Book, bookID string) string {
	title := book.Title
	if title == "" {
		title = "Untitled"
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
`)
	fmt.Fprintf(&sb, "    <meta name=\"dtb:uid\" content=\"%s\"/>\n", bookID)
	sb.WriteString(`    <meta name="dtb:depth" content="1"/>
  </head>
`)
	fmt.Fprintf(&sb, "  <docTitle><text>%s</text></docTitle>\n", html.EscapeString(title))
	sb.WriteString("  <navMap>\n")
	for i, ch := range book.Chapters {
		chTitle := ch.Title
		if chTitle == "" {
			chTitle = fmt.Sprintf("Chapter %d", i+1)
		}
		fmt.Fprintf(&sb, `    <navPoint id="nav%d" playOrder="%d">
      <navLabel><text>%s</text></navLabel>
      <content src="%s"/>
    </navPoint>
`, i+1, i+1, html.EscapeString(chTitle), chapterFileName(i))
	}
	sb.WriteString("  </navMap>\n</ncx>\n")
	return sb.String()
}

func renderChapter(ch Chapter) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
`)
	fmt.Fprintf(&sb, "  <title>%s</title>\n", html.EscapeString(ch.Title))
	sb.WriteString(`  <link rel="stylesheet" type="text/css" href="styles.css"/>
</head>
<body>
`)
	if ch.Title != "" {
		fmt.Fprintf(&sb, "  <h2>%s</h2>\n", html.EscapeString(ch.Title))
	}
	for _, p := range strings.Split(ch.Text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(html.EscapeString(p), "\n", "<br/>")
		fmt.Fprintf(&sb, "  <p>%s</p>\n", p)
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
