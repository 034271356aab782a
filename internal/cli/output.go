package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/conditions"
)

type printer interface {
	Outcome(r conditions.Record) error
	Summary(s aggregate.Summary) error
}

func newPrinter(format string, w io.Writer) printer {
	if format == "json" {
		return &jsonPrinter{enc: json.NewEncoder(w)}
	}
	return &textPrinter{w: w, styles: defaultStyles()}
}

type jsonPrinter struct {
	enc *json.Encoder
}

func (p *jsonPrinter) Outcome(r conditions.Record) error { return p.enc.Encode(r) }

func (p *jsonPrinter) Summary(s aggregate.Summary) error {
	return p.enc.Encode(conditions.SummaryRecord{Summary: s})
}

type styles struct {
	id      lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
	rules   map[string]lipgloss.Style
	heading lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		id:    lipgloss.NewStyle().Bold(true).Width(6),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		fail:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		rules: map[string]lipgloss.Style{
			"VFR":  lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Width(5),
			"MVFR": lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Width(5),
			"IFR":  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Width(5),
			"LIFR": lipgloss.NewStyle().Foreground(lipgloss.Color("#D670D6")).Width(5),
		},
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
	}
}

type textPrinter struct {
	w      io.Writer
	styles styles
}

func (p *textPrinter) Outcome(r conditions.Record) error {
	s := p.styles
	if r.Status == conditions.StatusSuccess && r.Metar != nil {
		rules, ok := s.rules[r.Metar.FlightRules]
		if !ok {
			rules = s.muted.Width(5)
		}
		_, err := fmt.Fprintf(p.w, "%s %s %s %s\n",
			s.ok.Render("ok  "), s.id.Render(r.ID), rules.Render(r.Metar.FlightRules), r.Metar.Raw)
		return err
	}
	detail := "unknown error"
	if r.Error != nil {
		detail = fmt.Sprintf("%s after %d attempt(s): %s", r.Error.Kind, r.Error.Attempts, r.Error.Message)
	}
	_, err := fmt.Fprintf(p.w, "%s %s %s\n", s.fail.Render("fail"), s.id.Render(r.ID), s.muted.Render(detail))
	return err
}

func (p *textPrinter) Summary(sum aggregate.Summary) error {
	s := p.styles
	state := sum.State.String()
	switch sum.State {
	case aggregate.Completed:
		state = s.ok.Render(state)
	default:
		state = s.fail.Render(state)
	}
	lines := []string{
		s.heading.Render("summary") + " " + state,
		fmt.Sprintf("  dispatched %d  succeeded %d  failed %d  peak in-flight %d  %dms",
			sum.Dispatched, sum.Succeeded, sum.Failed, sum.PeakInFlight, sum.DurationMS),
	}
	if sum.DirectoryError != "" {
		lines = append(lines, "  "+s.fail.Render("directory: "+sum.DirectoryError))
	}
	_, err := fmt.Fprintln(p.w, strings.Join(lines, "\n"))
	return err
}
