package salt

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseFixture(t testing.TB, html string) (Bills, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return InvoiceListParser{BaseURL: "https://myaccount.salt.ch"}.ParseBills(doc)
}

func billList(items ...string) string {
	return `<div data-at-invoices><ul class="body-data"><li>` +
		strings.Join(items, "</li><li>") +
		`</li></ul></div>`
}

func TestParseBills(t *testing.T) {
	bills, err := parseFixture(t, billsPage)
	require.NoError(t, err)
	require.Len(t, bills, 2)

	require.Equal(t, civil.Date{Year: 2018, Month: time.May, Day: 1}, bills[0].Period.Start)
	require.Equal(t, civil.Date{Year: 2018, Month: time.May, Day: 31}, bills[0].Period.End)
	require.Equal(t, 45.90, bills[0].Price)
	require.Equal(t, civil.Date{Year: 2018, Month: time.June, Day: 30}, bills[0].DueDate)
	require.Equal(t, "https://myaccount.salt.ch/de/bills/pdf/2018-5.pdf", bills[0].PDFURL)

	require.Equal(t, time.June, bills[1].Period.Start.Month)
	require.Equal(t, 52.10, bills[1].Price)
}

func TestParseBillsNoInvoices(t *testing.T) {
	bills, err := parseFixture(t, loginPage)
	require.NoError(t, err)
	require.Empty(t, bills)
}

func TestParseBillsInvalid(t *testing.T) {
	valid := []string{
		"01.05.2018 bis 31.05.2018",
		"<span>CHF 45.90</span>",
		"30.06.2018",
		`<a href="/pdf">PDF</a>`,
	}

	testCases := []struct {
		name   string
		items  []string
		format bool
	}{
		{name: "three items", items: valid[:3]},
		{name: "five items", items: append(append([]string{}, valid...), "extra")},
		{name: "short period", items: []string{"01.05.2018", valid[1], valid[2], valid[3]}},
		{name: "bad period date", items: []string{"2018-05-01 bis 31.05.2018", valid[1], valid[2], valid[3]}, format: true},
		{name: "reversed period", items: []string{"31.05.2018 bis 01.05.2018", valid[1], valid[2], valid[3]}},
		{name: "no price span", items: []string{valid[0], "CHF 45.90", valid[2], valid[3]}},
		{name: "empty price", items: []string{valid[0], "<span>gratis</span>", valid[2], valid[3]}},
		{name: "bad due date", items: []string{valid[0], valid[1], "30/06/2018", valid[3]}, format: true},
		{name: "no link", items: []string{valid[0], valid[1], valid[2], "PDF"}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseFixture(t, billList(test.items...))
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "got %v", err)
			require.Equal(t, 0, parseErr.Index)
			require.NotEmpty(t, parseErr.Snippet)

			var formatErr *FormatError
			require.Equal(t, test.format, errors.As(err, &formatErr))
		})
	}
}

func TestParseBillsErrorPosition(t *testing.T) {
	html := `<div data-at-invoices>
<ul class="body-data"><li>01.05.2018 bis 31.05.2018</li><li><span>1</span></li><li>30.06.2018</li><li><a href="/a">a</a></li></ul>
<ul class="body-data"><li>01.06.2018 bis 30.06.2018</li><li><span>2</span></li><li>31.07.2018</li></ul>
</div>`
	_, err := parseFixture(t, html)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, 1, parseErr.Index)
	require.Contains(t, parseErr.Error(), "expected 4 items, found 3")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abc...", truncate("abcdef", 3))

	// every ä is two bytes
	s := strings.Repeat("ä", 10)
	for n := 1; n < len(s); n++ {
		cut := truncate(s, n)
		require.True(t, utf8.ValidString(cut), "n=%d", n)
		require.LessOrEqual(t, len(cut), n+len("..."))
	}
}

func TestParseBillsSnippetUTF8(t *testing.T) {
	_, err := parseFixture(t, billList(
		strings.Repeat("Fällig ", 40),
		"<span>1</span>",
		"30.06.2018",
	))
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.True(t, utf8.ValidString(parseErr.Snippet))
	require.True(t, strings.HasSuffix(parseErr.Snippet, "..."))
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		text     string
		expected float64
	}{
		{text: "CHF 45.90", expected: 45.90},
		{text: "45.90 CHF", expected: 45.90},
		{text: "CHF 1'045.90", expected: 1045.90},
		{text: "-12.50", expected: 12.50},
		// comma decimals are not normalized
		{text: "45,90", expected: 4590},
	}
	for _, test := range testCases {
		price, err := parsePrice(test.text)
		require.NoError(t, err, test.text)
		require.Equal(t, test.expected, price, test.text)
	}

	_, err := parsePrice("CHF")
	require.Error(t, err)
}

func testBills() Bills {
	return Bills{
		{
			Period: Period{
				Start: civil.Date{Year: 2018, Month: time.May, Day: 1},
				End:   civil.Date{Year: 2018, Month: time.May, Day: 31},
			},
			Price: 45.90,
		},
		{
			Period: Period{
				Start: civil.Date{Year: 2018, Month: time.June, Day: 1},
				End:   civil.Date{Year: 2018, Month: time.June, Day: 30},
			},
			Price: 52.10,
		},
		{
			Period: Period{
				Start: civil.Date{Year: 2018, Month: time.June, Day: 15},
				End:   civil.Date{Year: 2018, Month: time.June, Day: 30},
			},
			Price: 3.00,
		},
	}
}

func TestBillsByMonth(t *testing.T) {
	bills := testBills()

	may, ok := bills.ByMonth(2018, time.May)
	require.True(t, ok)
	require.Equal(t, 45.90, may.Price)

	june, ok := bills.ByMonth(2018, time.June)
	require.True(t, ok)
	require.Equal(t, 52.10, june.Price, "first match in document order wins")

	_, ok = bills.ByMonth(2019, time.January)
	require.False(t, ok)

	_, ok = Bills{}.ByMonth(2018, time.May)
	require.False(t, ok)
}

func TestBillsSince(t *testing.T) {
	bills := testBills()

	require.Len(t, bills.Since(civil.Date{Year: 2018, Month: time.June, Day: 1}), 2)
	require.Len(t, bills.Since(civil.Date{Year: 2018, Month: time.June, Day: 2}), 1)
	require.Len(t, bills.Since(civil.Date{Year: 2000, Month: time.January, Day: 1}), 3)
	require.Empty(t, bills.Since(civil.Date{Year: 2019, Month: time.January, Day: 1}))
}

func TestBillFileNames(t *testing.T) {
	bill := testBills()[0]
	require.Equal(t, "2018-5.pdf", bill.FileName())
	require.Equal(t, "2018-5-payment.pdf", bill.PaymentDetailFileName())
}

func TestCacheReplace(t *testing.T) {
	var cache Cache
	bills := testBills()

	cache.Replace(bills)
	cache.Replace(bills)
	require.Equal(t, 3, cache.Len())

	cache.Replace(bills[:1])
	require.Equal(t, 1, cache.Len())
	_, ok := cache.ByMonth(2018, time.June)
	require.False(t, ok)

	// the cache keeps its own copy
	bills[0].Price = 0
	require.Equal(t, 45.90, cache.Bills()[0].Price)

	// and hands out copies
	got := cache.Bills()
	got[0].Price = 1
	require.Equal(t, 45.90, cache.Bills()[0].Price)
}
