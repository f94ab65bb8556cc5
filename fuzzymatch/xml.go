package fuzzymatch

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// XMLNode is one text-bearing element of a flattened XML document.
type XMLNode struct {
	// Path is the slash-joined element path, e.g. /book/chapter/title.
	Path string `json:"path" yaml:"Path"`
	Text string `json:"text" yaml:"Text"`
}

// ExtractXML tokenizes the document and returns the text content of
// every element that has any, with its element path.
func ExtractXML(r io.Reader) ([]XMLNode, error) {
	dec := xml.NewDecoder(r)

	var nodes []XMLNode
	var stack []string
	var texts []*strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			texts = append(texts, &strings.Builder{})
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.New("unbalanced xml")
			}
			text := strings.TrimSpace(texts[len(texts)-1].String())
			if text != "" {
				nodes = append(nodes, XMLNode{
					Path: "/" + strings.Join(stack, "/"),
					Text: text,
				})
			}
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			}
		}
	}
	return nodes, nil
}

// SearchXML flattens the document and fuzzy-searches every element's
// text, annotating matches with the element path. Offsets are relative
// to the element text.
func SearchXML(r io.Reader, query string, opts ...Option) ([]Match, error) {
	nodes, err := ExtractXML(r)
	if err != nil {
		return nil, err
	}

	var all []Match
	for _, node := range nodes {
		matches, err := Search(node.Text, query, opts...)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			m.Path = node.Path
			all = append(all, m)
		}
	}
	sortMatches(all)
	return all, nil
}
