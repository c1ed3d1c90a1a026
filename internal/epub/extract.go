package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kvasir-lab/doctrans/pkg/log"
)

var reBlankLines = regexp.MustCompile(`\n{3,}`)

// Extract opens the EPUB at epubPath and walks its content files in spine
// order, reducing each to paragraph-delimited plain text. A chapter that
// cannot be read or parsed is replaced with a short note instead of failing
// the whole book.
func Extract(epubPath string) (*Book, error) {
	reader, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub archive: %w", err)
	}
	defer reader.Close()

	members := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		members[f.Name] = f
	}

	opfPath, err := readContainer(members)
	if err != nil {
		return nil, err
	}

	pkg, err := readPackage(members, opfPath)
	if err != nil {
		return nil, err
	}

	manifest := make(map[string]Item, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		manifest[item.ID] = item
	}

	opfDir := path.Dir(opfPath)
	book := &Book{
		Title:    pkg.Metadata.Title,
		Author:   pkg.Metadata.Creator,
		Language: pkg.Metadata.Language,
	}

	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := manifest[ref.IDRef]
		if !ok {
			log.Warn("Spine references unknown manifest item %s, skipping", ref.IDRef)
			continue
		}
		if item.MediaType != "application/xhtml+xml" && item.MediaType != "text/html" {
			continue
		}

		href := item.Href
		if opfDir != "." {
			href = path.Join(opfDir, item.Href)
		}

		text, err := extractChapterText(members, href)
		if err != nil {
			log.Warn("Chapter %s could not be extracted: %v", href, err)
			text = fmt.Sprintf("[chapter %s could not be extracted]", path.Base(href))
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		book.Chapters = append(book.Chapters, Chapter{
			Title: path.Base(href),
			Text:  text,
		})
	}

	if len(book.Chapters) == 0 {
		return nil, errors.New("no readable content files found in epub")
	}

	return book, nil
}

func readContainer(members map[string]*zip.File) (string, error) {
	f, ok := members["META-INF/container.xml"]
	if !ok {
		return "", errors.New("container.xml not found in epub")
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open container.xml: %w", err)
	}
	defer rc.Close()

	var container Container
	if err := xml.NewDecoder(rc).Decode(&container); err != nil {
		return "", fmt.Errorf("failed to parse container.xml: %w", err)
	}
	if len(container.RootFiles) == 0 {
		return "", errors.New("container.xml declares no rootfile")
	}
	return container.RootFiles[0].FullPath, nil
}

func readPackage(members map[string]*zip.File, opfPath string) (*Package, error) {
	f, ok := members[opfPath]
	if !ok {
		return nil, fmt.Errorf("package document not found: %s", opfPath)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open package document: %w", err)
	}
	defer rc.Close()

	var pkg Package
	if err := xml.NewDecoder(rc).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package document: %w", err)
	}
	return &pkg, nil
}

// extractChapterText strips the chapter's markup to text, keeping paragraph
// boundaries as blank lines. goquery tolerates malformed markup, so a broken
// chapter still yields whatever text can be recovered.
func extractChapterText(members map[string]*zip.File, href string) (string, error) {
	f, ok := members[href]
	if !ok {
		return "", fmt.Errorf("content file missing from archive")
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open content file: %w", err)
	}
	defer rc.Close()

	doc, err := goquery.NewDocumentFromReader(rc)
	if err != nil {
		return "", fmt.Errorf("failed to parse content file: %w", err)
	}

	var sb strings.Builder
	selection := doc.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote")
	if selection.Length() == 0 {
		// No block structure at all; fall back to the body text.
		return strings.TrimSpace(doc.Find("body").Text()), nil
	}

	selection.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	})

	out := strings.TrimSpace(sb.String())
	out = reBlankLines.ReplaceAllString(out, "\n\n")
	return out, nil
}
