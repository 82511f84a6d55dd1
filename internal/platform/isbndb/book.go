package isbndb

import (
	"encoding/json"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/knowledge-backend/internal/domain"
)

type bookEnvelope struct {
	Book *rawBook `json:"book"`
}

type searchEnvelope struct {
	Total int       `json:"total"`
	Books []rawBook `json:"books"`
}

// rawBook is the upstream record. Every nested field is optional.
type rawBook struct {
	Title                string                   `json:"title"`
	TitleLong            string                   `json:"title_long"`
	ISBN                 string                   `json:"isbn"`
	ISBN13               string                   `json:"isbn13"`
	ISBN10               string                   `json:"isbn10"`
	Publisher            string                   `json:"publisher"`
	Language             string                   `json:"language"`
	DatePublished        string                   `json:"date_published"`
	Pages                flexInt                  `json:"pages"`
	Image                string                   `json:"image"`
	Synopsis             string                   `json:"synopsis"`
	Overview             string                   `json:"overview"`
	Authors              []string                 `json:"authors"`
	Subjects             []string                 `json:"subjects"`
	DimensionsStructured map[string]*rawDimension `json:"dimensions_structured"`
	OtherISBNs           []rawOtherISBN           `json:"other_isbns"`
}

type rawDimension struct {
	Unit  string  `json:"unit"`
	Value flexNum `json:"value"`
}

type rawOtherISBN struct {
	ISBN    string `json:"isbn"`
	Binding string `json:"binding"`
}

// Dimension is the stored shape of one physical measurement.
type Dimension struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

// flexInt accepts numbers and numeric strings; anything else decodes to 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		if i, err := strconv.Atoi(n.String()); err == nil {
			*f = flexInt(i)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*f = flexInt(i)
		}
	}
	return nil
}

type flexNum float64

func (f *flexNum) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexNum(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexNum(v)
		}
	}
	return nil
}

func (r *rawBook) normalize() *domain.Book {
	b := &domain.Book{
		Title:         firstNonEmpty(r.Title, r.TitleLong),
		Publisher:     strings.TrimSpace(r.Publisher),
		PublishedDate: strings.TrimSpace(r.DatePublished),
		PageCount:     int(r.Pages),
		CoverURL:      strings.TrimSpace(r.Image),
		Language:      strings.ToLower(strings.TrimSpace(r.Language)),
		Synopsis:      firstNonEmpty(r.Synopsis, r.Overview),
	}
	if r.TitleLong != "" && r.Title != "" && strings.HasPrefix(r.TitleLong, r.Title) {
		b.Subtitle = strings.TrimLeft(strings.TrimPrefix(r.TitleLong, r.Title), ":;- ")
	}

	isbn13 := firstNonEmpty(r.ISBN13, isbnOfLength(r.ISBN, 13))
	isbn10 := firstNonEmpty(r.ISBN10, isbnOfLength(r.ISBN, 10))
	if isbn13 != "" {
		b.ISBN13 = &isbn13
	}
	if isbn10 != "" {
		b.ISBN10 = &isbn10
	}

	b.Authors = jsonList(cleanList(r.Authors))
	b.Subjects = jsonList(cleanList(r.Subjects))

	if len(r.DimensionsStructured) > 0 {
		dims := map[string]Dimension{}
		for name, d := range r.DimensionsStructured {
			if d == nil || float64(d.Value) <= 0 {
				continue
			}
			dims[strings.ToLower(strings.TrimSpace(name))] = Dimension{
				Unit:  strings.ToLower(strings.TrimSpace(d.Unit)),
				Value: float64(d.Value),
			}
		}
		if len(dims) > 0 {
			if raw, err := json.Marshal(dims); err == nil {
				b.Dimensions = datatypes.JSON(raw)
			}
		}
	}

	others := make([]string, 0, len(r.OtherISBNs))
	for _, o := range r.OtherISBNs {
		if v := strings.TrimSpace(o.ISBN); v != "" && v != isbn13 && v != isbn10 {
			others = append(others, v)
		}
	}
	b.OtherISBNs = jsonList(cleanList(others))
	return b
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func jsonList(in []string) datatypes.JSON {
	if len(in) == 0 {
		return nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func isbnOfLength(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(s) == n {
		return s
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
