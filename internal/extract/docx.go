package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// DOCX reads paragraphs from the WordprocessingML body of a .docx file.
type DOCX struct{}

// Extract implements Extractor.
func (DOCX) Extract(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &ExtractionError{Path: path, Err: err}
		}
		defer rc.Close()

		paras, err := parseDocumentXML(rc)
		if err != nil {
			return nil, &ExtractionError{Path: path, Err: err}
		}
		return paras, nil
	}
	return nil, &ExtractionError{Path: path, Err: errNoDocument}
}

// parseDocumentXML streams w:p elements, concatenating w:t runs and turning
// w:tab and w:br into spaces.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		cur    strings.Builder
		inPara int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara++
			case "t":
				inText = true
			case "tab", "br", "cr":
				if inPara > 0 {
					cur.WriteByte(' ')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				inPara--
				if inPara == 0 {
					paras = append(paras, cur.String())
					cur.Reset()
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && inPara > 0 {
				cur.Write(t)
			}
		}
	}
	return cleanParagraphs(paras), nil
}
