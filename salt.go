// Package salt scrapes bills from the Salt customer portal.
package salt

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	DefaultBaseURL   = "https://myaccount.salt.ch"
	DefaultLoginURL  = "https://sessions.salt.ch/cas/login"
	DefaultBillsPath = "/de/bills/"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	defaultTimeout   = 30 * time.Second

	loginFormSelector = "form#idmpform input"
)

type ServiceOptions struct {
	// BaseURL is the portal origin, bill PDF links are relative to it.
	BaseURL   string
	LoginURL  string
	BillsPath string
	Timeout   time.Duration
	UserAgent string
	// CloudflareBypass wraps the transport so requests look like a browser.
	CloudflareBypass bool
	// Parser defaults to an InvoiceListParser for BaseURL.
	Parser BillParser
}

// Service is an HTTP session against the portal. It is not safe for
// concurrent use, the cookie state is shared by every call.
type Service struct {
	client    *resty.Client
	baseURL   string
	loginURL  string
	billsPath string
	parser    BillParser
}

func NewService(opts ServiceOptions) (Service, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.LoginURL == "" {
		opts.LoginURL = DefaultLoginURL
	}
	if opts.BillsPath == "" {
		opts.BillsPath = DefaultBillsPath
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Parser == nil {
		opts.Parser = InvoiceListParser{BaseURL: opts.BaseURL}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return Service{}, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	if opts.CloudflareBypass {
		client.SetTransport(cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport))
	}
	instrumentResty(client)

	return Service{
		client:    client,
		baseURL:   opts.BaseURL,
		loginURL:  opts.LoginURL,
		billsPath: opts.BillsPath,
		parser:    opts.Parser,
	}, nil
}

// decodeHTMLBody converts the body to UTF-8 using the charset announced in
// the Content-Type header.
func decodeHTMLBody(body io.Reader, contentType string) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	label := params["charset"]
	if label == "" {
		return body
	}
	e, err := htmlindex.Get(label)
	if err != nil {
		slog.Debug("unknown charset, reading body as is", "charset", label)
		return body
	}
	return e.NewDecoder().Reader(body)
}

func (s Service) getDocument(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := s.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, &NetworkError{Method: http.MethodGet, URL: url, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &NetworkError{Method: http.MethodGet, URL: url, StatusCode: res.StatusCode()}
	}
	return goquery.NewDocumentFromReader(
		decodeHTMLBody(bytes.NewReader(res.Body()), res.Header().Get("Content-Type")),
	)
}

// loginFormValues collects the name and default value of every input of the
// login form, so hidden tokens are sent back untouched.
func loginFormValues(doc *goquery.Document) map[string]string {
	values := map[string]string{}
	doc.Find(loginFormSelector).Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		values[name] = s.AttrOr("value", "")
	})
	return values
}

// Login submits the portal login form. A wrong password is not reported
// here, the session just stays anonymous; use VerifyLogin to check.
func (s Service) Login(ctx context.Context, username string, password string) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	doc, err := s.getDocument(ctx, s.loginURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login form")
		return err
	}

	values := loginFormValues(doc)
	if len(values) == 0 {
		slog.WarnContext(ctx, "login form not found, posting credentials only", "url", s.loginURL)
	}
	values["username"] = username
	values["password"] = password

	res, err := s.client.R().
		SetContext(ctx).
		SetFormData(values).
		Post(s.loginURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return &NetworkError{Method: http.MethodPost, URL: s.loginURL, Err: err}
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "login request rejected")
		return &NetworkError{Method: http.MethodPost, URL: s.loginURL, StatusCode: res.StatusCode()}
	}

	slog.DebugContext(ctx, "login form submitted", "fields", len(values))
	return nil
}

// VerifyLogin fetches the bills page and checks that the invoice list is
// there, which only happens for an authenticated session.
func (s Service) VerifyLogin(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "VerifyLogin")
	defer span.End()

	doc, err := s.getDocument(ctx, s.billsPath)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if doc.Find(invoicesSelector).Length() == 0 {
		span.SetStatus(codes.Error, ErrNotLoggedIn.Error())
		return ErrNotLoggedIn
	}
	return nil
}
