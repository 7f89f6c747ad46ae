package salt

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DownloadBill streams the invoice PDF of bill into w. The caller owns w.
func (s Service) DownloadBill(ctx context.Context, bill Bill, w io.Writer) (int64, error) {
	ctx, span := tracer.Start(ctx, "DownloadBill")
	defer span.End()

	res, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(bill.PDFURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request pdf")
		return 0, &NetworkError{Method: http.MethodGet, URL: bill.PDFURL, Err: err}
	}
	endRequestSpan(res)
	body := res.RawBody()
	defer body.Close()

	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.Status())
		return 0, &NetworkError{Method: http.MethodGet, URL: bill.PDFURL, StatusCode: res.StatusCode()}
	}

	n, err := io.Copy(w, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy pdf")
		return n, &NetworkError{Method: http.MethodGet, URL: bill.PDFURL, Err: err}
	}
	span.SetAttributes(attribute.Int64("bytes", n))
	return n, nil
}

// DownloadBillFile downloads bill to filename. The PDF is written to a
// temporary file next to filename first and only renamed once complete.
func (s Service) DownloadBillFile(ctx context.Context, bill Bill, filename string) error {
	out, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(out.Name())

	n, err := s.DownloadBill(ctx, bill, out)
	if err == nil {
		err = out.Chmod(0644)
	}
	if err != nil {
		out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	if err = os.Rename(out.Name(), filename); err != nil {
		return err
	}

	slog.InfoContext(ctx, "bill downloaded", "file", filename, "bytes", n)
	return nil
}
