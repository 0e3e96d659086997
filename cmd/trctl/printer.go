package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfxdev/go-transmission"
)

var (
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	tierStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON}
}

// pairs prints aligned key/value rows.
func (p *printer) pairs(rows [][2]string) error {
	if p.json {
		m := make(map[string]string, len(rows))
		for _, row := range rows {
			m[row[0]] = row[1]
		}
		return p.object(m)
	}

	width := 0
	for _, row := range rows {
		width = max(width, lipgloss.Width(row[0]))
	}
	key := keyStyle.Width(width + 2)
	for _, row := range rows {
		if _, err := fmt.Fprintln(p.w, key.Render(row[0])+row[1]); err != nil {
			return err
		}
	}
	return nil
}

// object prints v as JSON, or as sorted key/value rows of its wire fields.
func (p *printer) object(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if p.json {
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([][2]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]string{k, string(fields[k])})
	}
	return p.pairs(rows)
}

func (p *printer) trackers(trackers []transmission.Tracker) error {
	if len(trackers) == 0 {
		_, err := fmt.Fprintln(p.w, "no trackers")
		return err
	}
	for _, t := range trackers {
		status := okStyle.Render(t.Status.String())
		if msg, failed := t.ErrorMessage(); failed {
			status = errorStyle.Render(msg)
		}
		line := fmt.Sprintf("%s %s  %s  peers %d seeders %d leechers %d",
			tierStyle.Render(fmt.Sprintf("[%d]", t.Tier)),
			t.AnnounceURL, status, t.Peers, t.Seeders, t.Leechers)
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) tiers(tiers transmission.TrackerTiers) error {
	if p.json {
		return p.object([]transmission.Tier(tiers))
	}
	for i, tier := range tiers {
		header := tierStyle.Render(fmt.Sprintf("tier %d", i))
		if _, err := fmt.Fprintf(p.w, "%s\n  %s\n", header, strings.Join(tier, "\n  ")); err != nil {
			return err
		}
	}
	return nil
}

// unescapeNewlines lets tier text be passed as a single shell argument.
func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
