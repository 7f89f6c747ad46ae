package salt

import (
	"fmt"
	"regexp"
	"time"

	"cloud.google.com/go/civil"
)

const dateLayout = "02.01.2006"

var dateRegex = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// ParseDate parses a portal date of the form DD.MM.YYYY.
func ParseDate(s string) (civil.Date, error) {
	if !dateRegex.MatchString(s) {
		return civil.Date{}, &FormatError{Input: s, Err: fmt.Errorf("expected DD.MM.YYYY")}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return civil.Date{}, &FormatError{Input: s, Err: err}
	}
	return civil.DateOf(t), nil
}
