// Command kbars-view is a terminal browser for an on-disk bundle. The main
// view groups instruments into liquidity tiers with window statistics over
// the trailing daily bars; enter opens a per-instrument bar detail view.
// Left/right steps the as-of date through the trading calendar.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kbars/internal/config"
	"kbars/internal/dashboard"
	"kbars/internal/datasource"
	"kbars/internal/domain"
	"kbars/internal/store"
	"kbars/internal/util"
)

// detailBarCount is how many bars the per-instrument detail view loads.
const detailBarCount = 60

// Styles.
var (
	tierActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	tierModerateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	tierSporadicStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	idStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	idHlStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")) // brighter blue for highlight
	gainStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	turnoverStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	headerBarStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	detailBarStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")) // black on yellow
	footerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	highlightBG       = lipgloss.Color("236") // dark grey background
)

// hlStyle returns a copy of s with the highlight background applied when hl is true.
func hlStyle(s lipgloss.Style, hl bool) lipgloss.Style {
	if hl {
		return s.Background(highlightBG)
	}
	return s
}

func tierStyle(name string) lipgloss.Style {
	switch name {
	case dashboard.TierActive:
		return tierActiveStyle
	case dashboard.TierModerate:
		return tierModerateStyle
	case dashboard.TierSporadic:
		return tierSporadicStyle
	default:
		return lipgloss.NewStyle()
	}
}

type model struct {
	source      *datasource.DataSource
	instruments []domain.Instrument
	calendar    []time.Time
	asOfIdx     int // index into calendar
	window      int // bars per stats window
	snapshot    dashboard.Snapshot
	sortMode    int

	// Selection.
	selected string // order book ID

	// Detail view.
	detailMode bool
	detailFreq domain.Frequency
	detailBars []domain.DayBar

	viewport      viewport.Model
	ready         bool
	width, height int
	logger        *slog.Logger
}

func initialModel(source *datasource.DataSource, instruments []domain.Instrument, calendar []time.Time, asOfIdx, window int, logger *slog.Logger) model {
	m := model{
		source:      source,
		instruments: instruments,
		calendar:    calendar,
		asOfIdx:     asOfIdx,
		window:      window,
		detailFreq:  domain.FreqDaily,
		logger:      logger,
	}
	m.rebuild()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) asOf() time.Time {
	return m.calendar[m.asOfIdx]
}

// rebuild recomputes the tier snapshot at the current as-of date. Bars live
// in memory, so this is cheap enough to run synchronously on every keypress.
func (m *model) rebuild() {
	asOf := m.asOf()
	series := make([]dashboard.InstrumentSeries, 0, len(m.instruments))
	for _, inst := range m.instruments {
		bars, err := m.source.HistoryBars(inst, m.window, domain.FreqDaily, asOf, datasource.HistoryOptions{
			SkipSuspended: true,
			IncludeNow:    true,
		})
		if err != nil || len(bars) == 0 {
			continue
		}
		series = append(series, dashboard.InstrumentSeries{Instrument: inst, Bars: bars})
	}
	m.snapshot = dashboard.ComputeSnapshot(util.FormatDate(asOf), series, m.sortMode)

	ids := m.flatIDs()
	if len(ids) == 0 {
		m.selected = ""
		return
	}
	for _, id := range ids {
		if id == m.selected {
			return
		}
	}
	m.selected = ids[0]
}

// loadDetail loads the bar series for the selected instrument. Suspended
// days stay in so gaps are visible.
func (m *model) loadDetail() {
	m.detailBars = nil
	inst, ok := m.source.Instrument(m.selected)
	if !ok {
		return
	}
	bars, err := m.source.HistoryBars(inst, detailBarCount, m.detailFreq, m.asOf(), datasource.HistoryOptions{
		IncludeNow: true,
	})
	if err != nil {
		m.logger.Warn("loading detail bars", "id", m.selected, "freq", m.detailFreq, "error", err)
		return
	}
	m.detailBars = bars
}

// gotoDate moves the as-of date to the given calendar index.
func (m *model) gotoDate(idx int) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(m.calendar)-1 {
		idx = len(m.calendar) - 1
	}
	if idx == m.asOfIdx {
		return
	}
	m.asOfIdx = idx
	m.rebuild()
	if m.detailMode {
		m.loadDetail()
	}
}

// flatIDs returns the order book IDs of every row in render order.
func (m model) flatIDs() []string {
	var ids []string
	for _, tier := range m.snapshot.Tiers {
		for _, s := range tier.Stats {
			ids = append(ids, s.OrderBookID)
		}
	}
	return ids
}

// selectedLine returns the content line of the selected row, replaying the
// layout of renderContent: each tier is a blank line, a tier header and a
// column header, then one line per row.
func (m model) selectedLine() int {
	line := 0
	for _, tier := range m.snapshot.Tiers {
		line += 3
		for _, s := range tier.Stats {
			if s.OrderBookID == m.selected {
				return line
			}
			line++
		}
	}
	return -1
}

func (m *model) ensureVisible() {
	line := m.selectedLine()
	if line < 0 {
		return
	}
	yOff := m.viewport.YOffset
	vpH := m.viewport.Height
	if line < yOff {
		m.viewport.SetYOffset(line)
	} else if line >= yOff+vpH {
		m.viewport.SetYOffset(line - vpH + 1)
	}
}

func nextFreq(f domain.Frequency) domain.Frequency {
	switch f {
	case domain.FreqDaily:
		return domain.FreqWeekly
	case domain.FreqWeekly:
		return domain.FreqMonthly
	default:
		return domain.FreqDaily
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			if m.detailMode {
				return m, nil
			}
			m.sortMode = (m.sortMode + 1) % dashboard.SortModeCount
			dashboard.ResortSnapshot(&m.snapshot, m.sortMode)
			if m.ready {
				m.viewport.SetContent(m.renderContent())
			}
			return m, nil
		case "up", "down":
			if m.detailMode {
				break // scroll the detail view
			}
			ids := m.flatIDs()
			if len(ids) == 0 {
				return m, nil
			}
			cur := 0
			for i, id := range ids {
				if id == m.selected {
					cur = i
					break
				}
			}
			if msg.String() == "up" {
				if cur > 0 {
					cur--
				}
			} else {
				if cur < len(ids)-1 {
					cur++
				}
			}
			m.selected = ids[cur]
			m.viewport.SetContent(m.renderContent())
			m.ensureVisible()
			return m, nil
		case "enter":
			if m.detailMode || m.selected == "" {
				return m, nil
			}
			m.detailMode = true
			m.loadDetail()
			if m.ready {
				m.viewport.SetContent(m.renderContent())
				m.viewport.GotoTop()
			}
			return m, nil
		case "esc":
			if !m.detailMode {
				return m, nil
			}
			m.detailMode = false
			m.detailBars = nil
			if m.ready {
				m.viewport.SetContent(m.renderContent())
				m.ensureVisible()
			}
			return m, nil
		case "f":
			if !m.detailMode {
				return m, nil
			}
			m.detailFreq = nextFreq(m.detailFreq)
			m.loadDetail()
			if m.ready {
				m.viewport.SetContent(m.renderContent())
				m.viewport.GotoTop()
			}
			return m, nil
		case "left":
			m.gotoDate(m.asOfIdx - 1)
			if m.ready {
				m.viewport.SetContent(m.renderContent())
			}
			return m, nil
		case "right":
			m.gotoDate(m.asOfIdx + 1)
			if m.ready {
				m.viewport.SetContent(m.renderContent())
			}
			return m, nil
		case "home":
			m.gotoDate(len(m.calendar) - 1)
			if m.ready {
				m.viewport.SetContent(m.renderContent())
				m.viewport.GotoTop()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 1
		footerH := 1
		vpHeight := m.height - headerH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
			m.viewport.SetContent(m.renderContent())
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	pos := fmt.Sprintf("%d/%d", m.asOfIdx+1, len(m.calendar))

	var headerBar string
	if m.detailMode {
		headerText := fmt.Sprintf(
			" %s  %s  %d bars    %s    [%s] ",
			m.selected, m.detailFreq, len(m.detailBars), m.snapshot.Label, pos,
		)
		headerBar = detailBarStyle.Render(padOrTrunc(headerText, m.width))
	} else {
		count := 0
		for _, t := range m.snapshot.Tiers {
			count += t.Count
		}
		headerText := fmt.Sprintf(
			" kbars  %s    instruments: %s    window: %d bars    sort: %s    [%s] ",
			m.snapshot.Label, dashboard.FormatInt(count), m.window,
			dashboard.SortModeLabel(m.sortMode), pos,
		)
		headerBar = headerBarStyle.Render(padOrTrunc(headerText, m.width))
	}

	pct := m.viewport.ScrollPercent() * 100
	footerLeft := " q quit  s sort  up/dn select  enter detail  esc back  f freq  left/right date  home latest"
	footerRight := fmt.Sprintf("%.0f%% ", pct)
	gap := m.width - len(footerLeft) - len(footerRight)
	if gap < 0 {
		gap = 0
	}
	footerText := footerLeft + strings.Repeat(" ", gap) + footerRight
	footerBar := footerStyle.Render(padOrTrunc(footerText, m.width))

	return headerBar + "\n" + m.viewport.View() + "\n" + footerBar
}

func (m model) renderContent() string {
	var b strings.Builder
	if m.detailMode {
		m.renderDetail(&b)
		return b.String()
	}
	if len(m.snapshot.Tiers) == 0 {
		b.WriteString(dimStyle.Render("  (no instruments with bars at this date)"))
		b.WriteString("\n")
		return b.String()
	}
	for _, tier := range m.snapshot.Tiers {
		b.WriteString("\n")
		style := tierStyle(tier.Name)
		tierHeader := fmt.Sprintf(" %s  %s instruments ", tier.Name, dashboard.FormatInt(tier.Count))
		b.WriteString(style.Render(tierHeader))
		lineLen := m.width - len(tierHeader) - 1
		if lineLen > 0 {
			b.WriteString(dimStyle.Render(" " + strings.Repeat("─", lineLen)))
		}
		b.WriteString("\n")

		colLine := fmt.Sprintf("  %-3s %-14s %7s %7s %7s %7s %7s %7s %7s %9s %9s  %s",
			"#", "ID", "Open", "High", "Low", "Close", "Chg%", "Gain%", "Loss%", "Vol", "TO", "Symbol")
		b.WriteString(colHeaderStyle.Render(colLine))
		b.WriteString("\n")

		for i, s := range tier.Stats {
			m.writeStatsRow(&b, i, s)
		}
	}
	return b.String()
}

func (m model) writeStatsRow(b *strings.Builder, i int, s *dashboard.InstrumentStats) {
	hl := s.OrderBookID == m.selected
	sp := hlStyle(lipgloss.NewStyle(), hl).Render(" ")

	b.WriteString(hlStyle(dimStyle, hl).Render(fmt.Sprintf("  %-3d", i+1)))
	rowIDStyle := idStyle
	if hl {
		rowIDStyle = idHlStyle
	}
	b.WriteString(hlStyle(rowIDStyle, hl).Render(fmt.Sprintf("%-14s", s.OrderBookID)))

	for _, p := range []float64{s.Open, s.High, s.Low, s.Close} {
		b.WriteString(sp)
		b.WriteString(hlStyle(priceStyle, hl).Render(fmt.Sprintf("%7s", dashboard.FormatPrice(p))))
	}

	b.WriteString(sp)
	chgPad := fmt.Sprintf("%7s", dashboard.FormatChange(s.ChangePct))
	switch {
	case s.ChangePct > 0:
		b.WriteString(hlStyle(gainStyle, hl).Render(chgPad))
	case s.ChangePct < 0:
		b.WriteString(hlStyle(lossStyle, hl).Render(chgPad))
	default:
		b.WriteString(hlStyle(dimStyle, hl).Render(chgPad))
	}

	b.WriteString(sp)
	gainPad := fmt.Sprintf("%7s", dashboard.FormatGain(s.MaxGain))
	if s.MaxGain >= 0.05 {
		b.WriteString(hlStyle(gainStyle, hl).Render(gainPad))
	} else {
		b.WriteString(hlStyle(dimStyle, hl).Render(gainPad))
	}

	b.WriteString(sp)
	lossPad := fmt.Sprintf("%7s", dashboard.FormatLoss(s.MaxLoss))
	if s.MaxLoss >= 0.05 {
		b.WriteString(hlStyle(lossStyle, hl).Render(lossPad))
	} else {
		b.WriteString(hlStyle(dimStyle, hl).Render(lossPad))
	}

	b.WriteString(sp)
	b.WriteString(hlStyle(dimStyle, hl).Render(fmt.Sprintf("%9s", dashboard.FormatAmount(s.Volume))))

	b.WriteString(sp)
	toPad := fmt.Sprintf("%9s", dashboard.FormatAmount(s.Turnover))
	if s.Turnover >= 1e9 {
		b.WriteString(hlStyle(turnoverStyle, hl).Render(toPad))
	} else {
		b.WriteString(hlStyle(dimStyle, hl).Render(toPad))
	}

	b.WriteString(hlStyle(dimStyle, hl).Render("  " + s.Symbol))
	if hl {
		// Pad remaining width with highlight background.
		b.WriteString(lipgloss.NewStyle().Background(highlightBG).Render(" "))
	}
	b.WriteString("\n")
}

func (m model) renderDetail(b *strings.Builder) {
	inst, ok := m.source.Instrument(m.selected)
	if !ok {
		b.WriteString(dimStyle.Render("  (no instrument selected)"))
		b.WriteString("\n")
		return
	}

	b.WriteString(idStyle.Render(fmt.Sprintf("  %s  %s", inst.OrderBookID, inst.Symbol)))
	b.WriteString("\n\n")
	if len(m.detailBars) == 0 {
		b.WriteString(dimStyle.Render("  (no bars at this date)"))
		b.WriteString("\n")
		return
	}

	future := inst.Type == domain.TypeFuture && m.detailFreq == domain.FreqDaily
	var colLine string
	if future {
		colLine = fmt.Sprintf("  %-12s %8s %8s %8s %8s %8s %9s %9s",
			"Date", "Open", "High", "Low", "Close", "Settle", "Vol", "OI")
	} else {
		colLine = fmt.Sprintf("  %-12s %8s %8s %8s %8s %9s %9s",
			"Date", "Open", "High", "Low", "Close", "Vol", "TO")
	}
	b.WriteString(colHeaderStyle.Render(colLine))
	b.WriteString("\n")

	for _, bar := range m.detailBars {
		rowStyle := priceStyle
		if bar.Volume == 0 {
			rowStyle = dimStyle // suspended day
		}
		if future {
			b.WriteString(rowStyle.Render(fmt.Sprintf("  %-12s %8s %8s %8s %8s %8s %9s %9s",
				dashboard.FormatBarDate(bar.Date),
				dashboard.FormatPrice(bar.Open), dashboard.FormatPrice(bar.High),
				dashboard.FormatPrice(bar.Low), dashboard.FormatPrice(bar.Close),
				dashboard.FormatPrice(bar.Settlement),
				dashboard.FormatAmount(bar.Volume),
				dashboard.FormatAmount(bar.OpenInterest))))
		} else {
			b.WriteString(rowStyle.Render(fmt.Sprintf("  %-12s %8s %8s %8s %8s %9s %9s",
				dashboard.FormatBarDate(bar.Date),
				dashboard.FormatPrice(bar.Open), dashboard.FormatPrice(bar.High),
				dashboard.FormatPrice(bar.Low), dashboard.FormatPrice(bar.Close),
				dashboard.FormatAmount(bar.Volume),
				dashboard.FormatAmount(bar.TotalTurnover))))
		}
		b.WriteString("\n")
	}
}

// padOrTrunc pads s with spaces to width, or truncates if longer.
func padOrTrunc(s string, width int) string {
	n := len(s)
	if n >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-n)
}

func defaultBundleDir() string {
	if cfg, err := config.Load(config.Path()); err == nil {
		return cfg.Bundle.Dir
	}
	return config.Default().Bundle.Dir
}

func main() {
	bundleDir := flag.String("bundle", defaultBundleDir(), "bundle directory")
	dateStr := flag.String("date", "", "as-of date YYYY-MM-DD (default: last trading day)")
	window := flag.Int("window", 20, "bars per stats window")
	typeStr := flag.String("type", "", "filter by instrument type (CS, INDX, Future, ETF, LOF)")
	flag.Parse()

	logPath := fmt.Sprintf("/tmp/kbars-view-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, "info", "text")
	util.SetDefault(logger)

	ctx := context.Background()
	fmt.Fprint(os.Stderr, "opening bundle...")
	bundle, err := store.OpenBundle(ctx, *bundleDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nopening bundle: %v\n", err)
		os.Exit(1)
	}
	defer bundle.Close()

	source := datasource.NewFromBundle(bundle, logger)
	var instruments []domain.Instrument
	for _, inst := range source.AllInstruments() {
		if *typeStr != "" && string(inst.Type) != *typeStr {
			continue
		}
		instruments = append(instruments, inst)
	}
	fmt.Fprintf(os.Stderr, " %s instruments\n", dashboard.FormatInt(len(instruments)))

	calendar := source.TradingCalendar()
	if len(calendar) == 0 {
		fmt.Fprintln(os.Stderr, "bundle has no trading calendar")
		os.Exit(1)
	}
	asOfIdx := len(calendar) - 1
	if *dateStr != "" {
		d, err := util.ParseDate(*dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parsing -date: %v\n", err)
			os.Exit(1)
		}
		asOfIdx = 0
		for i, c := range calendar {
			if !c.After(d) {
				asOfIdx = i
			}
		}
	}
	logger.Info("kbars-view starting",
		"bundle", *bundleDir, "instruments", len(instruments),
		"as_of", util.FormatDate(calendar[asOfIdx]), "window", *window)

	p := tea.NewProgram(
		initialModel(source, instruments, calendar, asOfIdx, *window, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
