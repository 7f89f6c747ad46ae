package salt

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PaymentDetailCutoff is the first billing period with the current invoice
// layout, the payment detail moved from the second to the fourth page.
var PaymentDetailCutoff = civil.Date{Year: 2018, Month: time.June, Day: 1}

// PageSelector returns the zero-based index of the payment detail page for
// an invoice covering period.
type PageSelector func(period Period) int

// CutoffPageSelector picks before for periods starting before cutoff and
// after otherwise.
func CutoffPageSelector(cutoff civil.Date, before, after int) PageSelector {
	return func(period Period) int {
		if period.Start.Before(cutoff) {
			return before
		}
		return after
	}
}

var DefaultPageSelector = CutoffPageSelector(PaymentDetailCutoff, 1, 3)

var (
	pdfConfOnce sync.Once
	pdfConf     *model.Configuration
)

func pdfConfiguration() *model.Configuration {
	pdfConfOnce.Do(func() {
		api.DisableConfigDir()
		pdfConf = model.NewDefaultConfiguration()
		pdfConf.ValidationMode = model.ValidationRelaxed
		pdfConf.WriteObjectStream = false
		pdfConf.WriteXRefStream = false
	})
	return pdfConf
}

// ExtractPage writes a new PDF to dst that holds only page pageIndex
// (zero-based) of src.
func ExtractPage(src io.ReadSeeker, dst io.Writer, pageIndex int) error {
	conf := pdfConfiguration()

	count, err := api.PageCount(src, conf)
	if err != nil {
		return err
	}
	if pageIndex < 0 || pageIndex >= count {
		return &FormatError{
			Input: strconv.Itoa(pageIndex),
			Err:   fmt.Errorf("page index out of range, document has %d pages", count),
		}
	}

	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return api.Trim(src, dst, []string{strconv.Itoa(pageIndex + 1)}, conf)
}

func ExtractPageFile(srcPath string, dstPath string, pageIndex int) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	err = ExtractPage(src, dst, pageIndex)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dstPath)
	}
	return err
}

// ExtractPaymentDetail extracts the payment detail page of a downloaded
// invoice, choosing the page with sel.
func ExtractPaymentDetail(bill Bill, srcPath string, dstPath string, sel PageSelector) error {
	if sel == nil {
		sel = DefaultPageSelector
	}
	return ExtractPageFile(srcPath, dstPath, sel(bill.Period))
}
