package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"sublet_monitor/models"
)

// Sheet cells are free text typed by strangers; strip any markup before the
// template escapes what is left.
var cellPolicy = bluemonday.StrictPolicy()

type RenderOptions struct {
	SheetURL string
	MaxRent  float64
	Now      func() time.Time
}

type listingView struct {
	Row         int
	Name        string
	Rent        string
	RawRent     string
	Bedrooms    string
	Rooms       string
	Dates       string
	Contact     string
	Description string
}

type excludedView struct {
	Name    string
	RawRent string
	Unit    string
	Contact string
	Reason  string
}

type emailView struct {
	Heading   string
	Summary   string
	Listings  []listingView
	Excluded  []excludedView
	ViewURL   string
	Generated string
}

var emailTemplate = template.Must(template.New("email").Parse(`<html><body style="font-family: -apple-system, Arial, sans-serif; max-width:600px; margin:0 auto; padding:16px;">
<h2 style="color:#1a1a1a;">{{.Heading}}</h2>
<p style="color:#666;">{{.Summary}}</p>
{{range .Listings}}<div style="border:1px solid #ddd; border-radius:8px; padding:16px; margin-bottom:12px; background:#fafafa;">
  <div style="font-size:18px; font-weight:bold; color:#1a1a1a;">{{.Name}}</div>
  <div style="color:#2d7d2d; font-size:16px; font-weight:bold; margin:4px 0;">{{.Rent}} <span style="color:#888; font-size:13px; font-weight:normal;">({{.RawRent}})</span></div>
  <div style="margin:4px 0; color:#555;"><strong>{{.Bedrooms}}</strong> &mdash; {{.Rooms}}</div>
  <div style="margin:4px 0; color:#555;">{{.Dates}}</div>
  <div style="margin:4px 0;"><strong>Contact:</strong> {{.Contact}}</div>
  <div style="margin:8px 0; color:#333; font-size:14px; line-height:1.4;">{{.Description}}</div>
</div>
{{end}}{{if .Excluded}}<h3 style="color:#888; margin-top:28px;">Did Not Match Filters ({{len .Excluded}})</h3>
<p style="color:#999; font-size:13px;">Review in case something was misparsed.</p>
<table style="width:100%; border-collapse:collapse; font-size:13px; color:#555;">
  <tr style="background:#f0f0f0; text-align:left;"><th style="padding:6px 8px;">Name</th><th style="padding:6px 8px;">Rent</th><th style="padding:6px 8px;">Unit</th><th style="padding:6px 8px;">Contact</th><th style="padding:6px 8px;">Reason</th></tr>
{{range .Excluded}}  <tr><td style="padding:6px 8px; border-bottom:1px solid #eee;">{{.Name}}</td><td style="padding:6px 8px; border-bottom:1px solid #eee;">{{.RawRent}}</td><td style="padding:6px 8px; border-bottom:1px solid #eee;">{{.Unit}}</td><td style="padding:6px 8px; border-bottom:1px solid #eee;">{{.Contact}}</td><td style="padding:6px 8px; border-bottom:1px solid #eee; color:#c44;">{{.Reason}}</td></tr>
{{end}}</table>
{{end}}<hr style="border:none; border-top:1px solid #eee; margin:20px 0;">
<p style="color:#999; font-size:12px;">{{if .ViewURL}}<a href="{{.ViewURL}}">View full spreadsheet</a> &bull; {{end}}Generated {{.Generated}}</p>
</body></html>
`))

// RenderNew builds the subject and HTML body announcing new listings.
func RenderNew(newListings []models.Listing, excluded []models.Excluded, opts RenderOptions) (string, string, error) {
	n := len(newListings)
	subject := fmt.Sprintf("🏠 %d New Housing Listing%s", n, plural(n))
	view := emailView{
		Heading:  "New Housing Listings",
		Summary:  fmt.Sprintf("%d new listing%s under %s/mo, entire units only", n, plural(n), FormatMoney(opts.MaxRent)),
		Listings: listingViews(newListings),
		Excluded: excludedViews(excluded),
	}
	body, err := render(view, opts)
	return subject, body, err
}

// RenderDigest builds the "nothing new" email listing every accepted listing.
func RenderDigest(accepted []models.Listing, opts RenderOptions) (string, string, error) {
	n := len(accepted)
	view := emailView{
		Heading:  "Housing Monitor Digest",
		Summary:  fmt.Sprintf("No new listings. %d current listing%s under %s/mo.", n, plural(n), FormatMoney(opts.MaxRent)),
		Listings: listingViews(accepted),
	}
	body, err := render(view, opts)
	return "🏠 Housing Monitor: No New Listings", body, err
}

func render(view emailView, opts RenderOptions) (string, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	view.ViewURL = ViewURL(opts.SheetURL)
	view.Generated = now().Format("2006-01-02 15:04")

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// ViewURL turns a CSV export link into the human-readable sheet link.
func ViewURL(sheetURL string) string {
	if i := strings.Index(sheetURL, "/export"); i >= 0 {
		return sheetURL[:i]
	}
	return sheetURL
}

// listingViews orders cards cheapest first, unparseable rents last. Equal
// rents keep source order. This differs from the source-order input the
// notifier receives; only the email layout is sorted.
func listingViews(listings []models.Listing) []listingView {
	sorted := make([]models.Listing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortRent(sorted[i]) < sortRent(sorted[j])
	})

	views := make([]listingView, 0, len(sorted))
	for _, l := range sorted {
		views = append(views, listingView{
			Row:         l.Row,
			Name:        orDefault(clean(l.PosterName), "Unknown"),
			Rent:        monthlyRent(l),
			RawRent:     orDefault(clean(l.RawRent), "N/A"),
			Bedrooms:    clean(l.RawBedrooms),
			Rooms:       clean(l.OfferedUnit),
			Dates:       clean(l.AvailabilityWindow),
			Contact:     clean(l.Contact),
			Description: clean(l.Description),
		})
	}
	return views
}

func excludedViews(excluded []models.Excluded) []excludedView {
	views := make([]excludedView, 0, len(excluded))
	for _, e := range excluded {
		l := e.Listing
		views = append(views, excludedView{
			Name:    orDefault(clean(l.PosterName), "Unknown"),
			RawRent: orDefault(clean(l.RawRent), "N/A"),
			Unit:    clean(l.RawBedrooms) + " / " + clean(l.OfferedUnit),
			Contact: clean(l.Contact),
			Reason:  ReasonLabel(e),
		})
	}
	return views
}

// ReasonLabel describes an exclusion for a human reader.
func ReasonLabel(e models.Excluded) string {
	switch e.Reason {
	case models.ReasonTakenOrPending:
		return "taken or pending"
	case models.ReasonPartialUnit:
		return "not entire unit"
	case models.ReasonMalformed:
		return "rent unparseable"
	case models.ReasonOverBudget:
		return "rent " + FormatMoney(e.Listing.RentAmount)
	default:
		return string(e.Reason)
	}
}

func monthlyRent(l models.Listing) string {
	if l.HasMalformed(models.FieldRent) {
		return "???"
	}
	return FormatMoney(l.RentAmount) + "/mo"
}

func sortRent(l models.Listing) float64 {
	if l.HasMalformed(models.FieldRent) {
		return math.Inf(1)
	}
	return l.RentAmount
}

// FormatMoney renders whole dollars with thousands separators: $1,299.
func FormatMoney(amount float64) string {
	digits := strconv.FormatInt(int64(math.Round(math.Abs(amount))), 10)
	var b strings.Builder
	if amount < 0 {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(cellPolicy.Sanitize(s)))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
