package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"sublet_monitor/models"
)

// ConsoleNotifier prints results as tables. Useful for dry runs and cron
// jobs whose output is mailed by the system.
type ConsoleNotifier struct {
	w    io.Writer
	opts RenderOptions
}

func NewConsoleNotifier(w io.Writer, opts RenderOptions) *ConsoleNotifier {
	return &ConsoleNotifier{w: w, opts: opts}
}

func (n *ConsoleNotifier) Send(ctx context.Context, newListings []models.Listing, excluded []models.Excluded) error {
	fmt.Fprintf(n.w, "%d new listing%s under %s/mo\n", len(newListings), plural(len(newListings)), FormatMoney(n.opts.MaxRent))
	n.listingTable(newListings)

	if len(excluded) > 0 {
		fmt.Fprintf(n.w, "\nDid not match filters (%d)\n", len(excluded))
		t := table.NewWriter()
		t.SetOutputMirror(n.w)
		t.AppendHeader(table.Row{"Row", "Name", "Rent", "Unit", "Contact", "Reason"})
		for _, e := range excluded {
			l := e.Listing
			t.AppendRow(table.Row{l.Row, clean(l.PosterName), clean(l.RawRent), clean(l.RawBedrooms) + " / " + clean(l.OfferedUnit), clean(l.Contact), ReasonLabel(e)})
		}
		t.Render()
	}

	if url := ViewURL(n.opts.SheetURL); url != "" {
		fmt.Fprintf(n.w, "\nSheet: %s\n", url)
	}
	return nil
}

func (n *ConsoleNotifier) SendDigest(ctx context.Context, accepted []models.Listing) error {
	fmt.Fprintf(n.w, "No new listings. %d current listing%s:\n", len(accepted), plural(len(accepted)))
	n.listingTable(accepted)
	return nil
}

func (n *ConsoleNotifier) Alert(ctx context.Context, failures []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(n.w)
	t.SetTitle("Health check failures")
	t.AppendHeader(table.Row{"#", "Failure"})
	for i, f := range failures {
		t.AppendRow(table.Row{i + 1, f})
	}
	t.Render()
	return nil
}

func (n *ConsoleNotifier) listingTable(listings []models.Listing) {
	if len(listings) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(n.w)
	t.AppendHeader(table.Row{"Row", "Name", "Rent", "Bedrooms", "Rooms", "Dates", "Contact"})
	for _, v := range listingViews(listings) {
		t.AppendRow(table.Row{v.Row, v.Name, v.Rent, v.Bedrooms, v.Rooms, v.Dates, v.Contact})
	}
	t.Render()
}
