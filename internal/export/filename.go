package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jo-hoe/healthdash/internal/core"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	ExtCSV = "csv"
	ExtPDF = "pdf"
)

// VaccinationFilename builds e.g. vaccination_data_Kenya_Measles_from_2010_to_2012.csv.
func VaccinationFilename(f core.Filters, ext string) string {
	return filename("vaccination_data", []string{f.Country, f.Region, f.Antigen}, f.YearStart, f.YearEnd, ext)
}

// InfectionFilename builds e.g. infection_data_Kenya_Developing_from_2010.pdf.
func InfectionFilename(f core.Filters, ext string) string {
	return filename("infection_data", []string{f.Country, f.EconomicStatus, f.InfectionType}, f.YearStart, f.YearEnd, ext)
}

func filename(base string, values []string, yearStart, yearEnd, ext string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, v := range values {
		if v != "" {
			b.WriteString("_")
			b.WriteString(sanitizeFilenamePart(v))
		}
	}
	if yearStart != "" {
		b.WriteString("_from_")
		b.WriteString(sanitizeFilenamePart(yearStart))
	}
	if yearEnd != "" {
		b.WriteString("_to_")
		b.WriteString(sanitizeFilenamePart(yearEnd))
	}
	b.WriteString(".")
	b.WriteString(ext)
	return b.String()
}

// sanitizeFilenamePart replaces spaces with underscores and drops characters that would
// break the Content-Disposition header or a file path.
func sanitizeFilenamePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '"', '\\', '/', '\r', '\n', ';':
			return -1
		}
		return r
	}, s)
}

// ContentDisposition returns the attachment header value for name.
// Names outside printable ASCII get an ASCII filename fallback plus the
// UTF-8 filename* parameter of RFC 5987.
func ContentDisposition(name string) string {
	fallback := asciiFilename(name)
	header := `attachment; filename="` + fallback + `"`
	if fallback != name {
		header += "; filename*=UTF-8''" + encodeExtValue(name)
	}
	return header
}

// asciiFilename strips diacritics and replaces whatever is still not printable ASCII.
func asciiFilename(name string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		stripped = name
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '_'
		}
		return r
	}, stripped)
}

// encodeExtValue percent-encodes every byte outside the RFC 5987 attr-char set.
func encodeExtValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
