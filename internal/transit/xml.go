package transit

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"trailhead-planner/internal/hiking"
)

// Responses are SOAP-ish documents; we only care about a handful of leaf
// elements, so decoding scans for them by local name regardless of nesting.

type xmlPoint struct {
	ID   int    `xml:"Id"`
	Name string `xml:"Name"`
	Type string `xml:"Type"`
	X    int    `xml:"X"`
	Y    int    `xml:"Y"`
}

func (p xmlPoint) stopArea() hiking.StopArea {
	return hiking.StopArea{ID: p.ID, Name: strings.TrimSpace(p.Name), X: p.X, Y: p.Y}
}

type xmlJourney struct {
	Departure string `xml:"DepDateTime"`
	Arrival   string `xml:"ArrDateTime"`
	Changes   int    `xml:"NoOfChanges"`
}

const providerTimeLayout = "2006-01-02T15:04:05"

func (j xmlJourney) journey(loc *time.Location) (hiking.Journey, error) {
	dep, err := time.ParseInLocation(providerTimeLayout, strings.TrimSpace(j.Departure), loc)
	if err != nil {
		return hiking.Journey{}, fmt.Errorf("departure time: %w", err)
	}
	arr, err := time.ParseInLocation(providerTimeLayout, strings.TrimSpace(j.Arrival), loc)
	if err != nil {
		return hiking.Journey{}, fmt.Errorf("arrival time: %w", err)
	}
	if arr.Before(dep) {
		return hiking.Journey{}, fmt.Errorf("arrival %s before departure %s", j.Arrival, j.Departure)
	}
	return hiking.Journey{DepartureTime: dep, ArrivalTime: arr, Changes: j.Changes}, nil
}

// decodeAll collects every <name> element in the document. A non-zero <Code>
// anywhere in the document is reported as a provider error.
func decodeAll[T any](r io.Reader, name string) ([]T, error) {
	d := xml.NewDecoder(r)
	var out []T
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed response: %v", ErrProvider, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case name:
			var v T
			if err := d.DecodeElement(&v, &se); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %v", ErrProvider, name, err)
			}
			out = append(out, v)
		case "Code":
			var code string
			if err := d.DecodeElement(&code, &se); err != nil {
				return nil, fmt.Errorf("%w: decode code: %v", ErrProvider, err)
			}
			if c := strings.TrimSpace(code); c != "" && c != "0" {
				return nil, fmt.Errorf("%w: response code %s", ErrProvider, c)
			}
		}
	}
}
