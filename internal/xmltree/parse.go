package xmltree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrEmptyDocument is returned when the input holds no root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// ParseError reports a file that could not be parsed. It is fatal for that
// file only.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse xml: %s", e.Err)
	}
	return fmt.Sprintf("parse xml %s: %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewDocument returns an empty etree document that decodes the same
// charsets as Parse.
func NewDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	return doc
}

// Parse reads a whole XML document and returns its root node.
func Parse(r io.Reader) (*Node, error) {
	doc := NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, &ParseError{Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Err: ErrEmptyDocument}
	}
	return build(root), nil
}

// ParseFile parses the XML file at path.
func ParseFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	root, err := Parse(f)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return root, nil
}

func build(el *etree.Element) *Node {
	n := newNode(el.Tag)
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		n.Attrs[a.Key] = a.Value
	}

	var text strings.Builder
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.Children[t.Tag] = append(n.Children[t.Tag], build(t))
		case *etree.CharData:
			text.WriteString(t.Data)
		}
	}
	n.Text = strings.TrimSpace(text.String())
	return n
}

// charsetReader decodes the encodings declared by government extracts,
// typically ISO-8859-1 or windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
