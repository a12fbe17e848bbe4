package interchange

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// DecodeError reports an interchange document that cannot be parsed.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode interchange document: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode reads a document rooted at either a suite or a suites element.
// Parse failures are returned as *DecodeError.
func Decode(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &DecodeError{Err: errors.New("no root element")}
			}

			return nil, &DecodeError{Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case RootSuite:
			var s Suite
			if err := dec.DecodeElement(&s, &start); err != nil {
				return nil, &DecodeError{Err: err}
			}

			return &Document{Root: RootSuite, Suites: []Suite{s}}, nil
		case RootSuites:
			var s Suites
			if err := dec.DecodeElement(&s, &start); err != nil {
				return nil, &DecodeError{Err: err}
			}

			return &Document{Root: RootSuites, Suites: s.Suites}, nil
		default:
			return nil, &DecodeError{Err: fmt.Errorf("unexpected root element %q", start.Name.Local)}
		}
	}
}
