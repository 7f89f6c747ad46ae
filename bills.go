package salt

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	invoicesSelector = "div[data-at-invoices]"
	billSelector     = "ul[class*='body-data']"
	billColumns      = 4
	snippetLength    = 120
)

// Period is the billing cycle a bill covers, both ends inclusive.
type Period struct {
	Start civil.Date
	End   civil.Date
}

type Bill struct {
	Period  Period
	Price   float64
	DueDate civil.Date
	// PDFURL is only valid within the session that listed the bill.
	PDFURL string
}

// FileName is the conventional name of the downloaded invoice, e.g. 2018-5.pdf.
func (b Bill) FileName() string {
	return fmt.Sprintf("%d-%d.pdf", b.Period.Start.Year, int(b.Period.Start.Month))
}

// PaymentDetailFileName is the name of the extracted payment detail page.
func (b Bill) PaymentDetailFileName() string {
	return fmt.Sprintf("%d-%d-payment.pdf", b.Period.Start.Year, int(b.Period.Start.Month))
}

// Bills is a list of bills in the order the portal shows them.
type Bills []Bill

// ByMonth returns the first bill whose period starts in the given month.
func (bs Bills) ByMonth(year int, month time.Month) (Bill, bool) {
	for _, b := range bs {
		if b.Period.Start.Year == year && b.Period.Start.Month == month {
			return b, true
		}
	}
	return Bill{}, false
}

// Since returns the bills whose period starts on or after cutoff.
func (bs Bills) Since(cutoff civil.Date) Bills {
	var ret Bills
	for _, b := range bs {
		if !b.Period.Start.Before(cutoff) {
			ret = append(ret, b)
		}
	}
	return ret
}

// BillParser turns a bills page into bills.
type BillParser interface {
	ParseBills(doc *goquery.Document) (Bills, error)
}

// InvoiceListParser reads the invoice list markup of the portal. Every bill
// is a ul with exactly four li: period, price, due date and PDF link.
type InvoiceListParser struct {
	BaseURL string
}

var priceCleaner = regexp.MustCompile(`[^\d.]`)

// parsePrice drops everything but digits and dots, so "45,90" reads as 4590.
func parsePrice(text string) (float64, error) {
	n := priceCleaner.ReplaceAllString(text, "")
	if n == "" {
		return 0, fmt.Errorf("no price in %q", text)
	}
	return strconv.ParseFloat(n, 64)
}

func snippet(s *goquery.Selection) string {
	h, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	return truncate(strings.Join(strings.Fields(h), " "), snippetLength)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func (p InvoiceListParser) ParseBills(doc *goquery.Document) (Bills, error) {
	ret := Bills{}
	var err error
	doc.Find(invoicesSelector).First().ChildrenFiltered(billSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var bill Bill
		bill, err = p.parseBill(s)
		if err != nil {
			err = &ParseError{Index: i, Snippet: snippet(s), Err: err}
			return false
		}
		ret = append(ret, bill)
		return true
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (p InvoiceListParser) parseBill(s *goquery.Selection) (Bill, error) {
	var bill Bill

	cols := s.Find("li")
	if cols.Length() != billColumns {
		return bill, fmt.Errorf("expected %d items, found %d", billColumns, cols.Length())
	}

	// from, "bis", to
	dates := strings.Fields(cols.Eq(0).Text())
	if len(dates) < 3 {
		return bill, fmt.Errorf("expected billing period, found %q", cols.Eq(0).Text())
	}
	start, err := ParseDate(dates[0])
	if err != nil {
		return bill, err
	}
	end, err := ParseDate(dates[2])
	if err != nil {
		return bill, err
	}
	if end.Before(start) {
		return bill, fmt.Errorf("billing period ends %s before it starts %s", end, start)
	}
	bill.Period = Period{Start: start, End: end}

	price := cols.Eq(1).ChildrenFiltered("span").First()
	if price.Length() == 0 {
		return bill, fmt.Errorf("price not found")
	}
	bill.Price, err = parsePrice(price.Text())
	if err != nil {
		return bill, err
	}

	bill.DueDate, err = ParseDate(strings.TrimSpace(cols.Eq(2).Text()))
	if err != nil {
		return bill, err
	}

	href, ok := cols.Eq(3).ChildrenFiltered("a").First().Attr("href")
	if !ok {
		return bill, fmt.Errorf("pdf link not found")
	}
	bill.PDFURL = p.BaseURL + href

	return bill, nil
}

// Bills lists the bills of the logged in account in portal order.
func (s Service) Bills(ctx context.Context) (Bills, error) {
	ctx, span := tracer.Start(ctx, "Bills")
	defer span.End()

	doc, err := s.getDocument(ctx, s.billsPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch bills page")
		return nil, err
	}
	bills, err := s.parser.ParseBills(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse bills page")
		return nil, err
	}
	span.SetAttributes(attribute.Int("bills", len(bills)))
	return bills, nil
}
