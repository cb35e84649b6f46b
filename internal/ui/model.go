package ui

import (
	"fmt"
	"strings"
	"time"

	"crypto_dash/internal/dashboard"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/fetch"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/search"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// chartWindows are the price chart ranges cycled with 'd'.
var chartWindows = []int{1, 7, 30, 90}

const (
	headerLines = 3 // header bar, global stats, search line
	footerLines = 1
	sparkWidth  = 14
	searchWidth = 32
)

// changedMsg is delivered whenever the session reports a change.
type changedMsg struct{}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

// Model is the bubbletea model of the dashboard. It renders session state and
// forwards key presses; all data work happens in the session.
type Model struct {
	session  *dashboard.Session
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width     int
	height    int
	ready     bool
	searching bool
	cursor    int
	status    string
}

// NewModel creates the model for s. The session must already be started.
func NewModel(s *dashboard.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Search coins by name or symbol"
	ti.Prompt = "/ "
	ti.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		session: s,
		input:   ti,
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.session.Changes()), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-headerLines-footerLines, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width, m.viewport.Height = msg.Width, h
		}
		// The input pads to its width; suggestions follow it on the same line
		m.input.Width = min(max(msg.Width/4, 10), searchWidth)
		m.refreshContent()
		return m, nil

	case changedMsg:
		m.refreshContent()
		return m, waitForChange(m.session.Changes())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.searching && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft &&
			msg.Y == headerLines-1 {
			return m.clickSuggestion(msg.X)
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	eng := m.session.Search
	switch msg.String() {
	case "esc":
		eng.HandleKey(search.KeyEscape)
		m.leaveSearch()
		return m, nil
	case "enter":
		if eng.HandleKey(search.KeyEnter) {
			m.input.SetValue(eng.Text())
		}
		m.leaveSearch()
		return m, nil
	case "up":
		eng.HandleKey(search.KeyUp)
		return m, nil
	case "down":
		eng.HandleKey(search.KeyDown)
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		eng.SetInput(v)
	}
	return m, cmd
}

// clickSuggestion commits the suggestion under column x, if any.
func (m Model) clickSuggestion(x int) (tea.Model, tea.Cmd) {
	eng := m.session.Search
	if !eng.IsOpen() {
		return m, nil
	}
	if i := m.suggestionAt(x); eng.Select(i) {
		m.input.SetValue(eng.Text())
		m.leaveSearch()
	}
	return m, nil
}

// suggestionAt maps a column of the search line to a suggestion index, -1 for none.
func (m Model) suggestionAt(x int) int {
	pos := lipgloss.Width(m.input.View()) + len(suggestionSep)
	for i, label := range suggestionLabels(m.session.Search.Suggestions()) {
		w := lipgloss.Width(label)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + len(suggestionSep)
	}
	return -1
}

func (m *Model) leaveSearch() {
	m.searching = false
	m.input.Blur()
	m.session.Search.Blur()
	m.cursor = 0
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	_, detailOpen := s.Selected()
	m.status = ""

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		s.Search.Focus()
		return m, m.input.Focus()
	case "esc":
		if detailOpen {
			s.CloseDetail()
		}
	case "1":
		s.SetView(dashboard.ViewMarkets)
		m.cursor = 0
	case "2":
		s.SetView(dashboard.ViewWatchlist)
		m.cursor = 0
	case "c":
		if err := s.CycleCurrency(); err != nil {
			m.status = "Could not save currency: " + err.Error()
		}
	case "s":
		s.CycleSortKey()
	case "r":
		s.ToggleDirection()
	case "R":
		s.Retry()
	case "F":
		s.ToggleFavoritesOnly()
		m.cursor = 0
	case "f":
		if c, ok := m.current(); ok {
			if _, err := s.ToggleFavorite(c.ID); err != nil {
				m.status = "Could not save favourites: " + err.Error()
			}
		}
	case "enter":
		if c, ok := m.current(); ok && !detailOpen {
			s.OpenDetail(c)
		}
	case "d":
		if detailOpen {
			s.SetChartDays(nextWindow(s.ChartDays()))
		}
	case "[":
		s.PrevPage()
		m.cursor = 0
	case "]":
		s.NextPage()
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows())-1 {
			m.cursor++
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.refreshContent()
	return m, nil
}

func nextWindow(days int) int {
	for i, d := range chartWindows {
		if d == days {
			return chartWindows[(i+1)%len(chartWindows)]
		}
	}
	return chartWindows[0]
}

// rows returns the coins of the active view in display order.
func (m *Model) rows() []domain.Coin {
	if m.session.View() == dashboard.ViewWatchlist {
		coins, _ := m.session.WatchlistCoins()
		return coins
	}
	return m.session.VisibleCoins()
}

func (m *Model) current() (domain.Coin, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return domain.Coin{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	if rows := m.rows(); m.cursor >= len(rows) {
		m.cursor = max(len(rows)-1, 0)
	}

	if _, open := m.session.Selected(); open {
		m.viewport.SetContent(m.renderDetail())
		return
	}
	m.viewport.SetContent(m.renderList())

	// Keep the cursor row on screen; the list starts after the panel lines
	line := m.cursor + m.listOffset()
	if line < m.viewport.YOffset {
		m.viewport.SetYOffset(line)
	} else if line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return strings.Join([]string{
		m.renderHeader(),
		m.renderGlobal(),
		m.renderSearch(),
		m.viewport.View(),
		m.renderFooter(),
	}, "\n")
}

func (m Model) renderHeader() string {
	s := m.session
	key, dir := s.Sort()
	arrow := "↓"
	if dir == domain.SortAsc {
		arrow = "↑"
	}

	busy := "  "
	if s.Busy.Visible() {
		busy = m.spinner.View() + " "
	}

	favOnly := ""
	if s.FavoritesOnly() {
		favOnly = "  ★ only"
	}

	text := fmt.Sprintf(" %sCrypto Dash  %s  %s  page %d  sort: %s %s%s ",
		busy, s.View(), s.Currency().Label(), s.Page(), key.Label(), arrow, favOnly)
	return headerStyle.Render(padOrTrunc(text, m.width))
}

func (m Model) renderGlobal() string {
	snap := m.session.Global()
	switch snap.Status {
	case fetch.Failed:
		return errorStyle.Render(" "+snap.Message) + dimStyle.Render("  (R to retry)")
	case fetch.Idle:
		return ""
	}
	if !snap.HasData {
		return dimStyle.Render(" Loading global market stats...")
	}

	g := snap.Data
	cur := m.session.Currency()
	parts := []string{}
	if v, ok := g.TotalMarketCapIn(cur); ok {
		parts = append(parts, "Mkt Cap "+FormatMoney(v, cur))
	}
	if v, ok := g.TotalVolumeIn(cur); ok {
		parts = append(parts, "24h Vol "+FormatMoney(v, cur))
	}
	for _, d := range g.TopDominance(2) {
		parts = append(parts, strings.ToUpper(d.Symbol)+" "+d.Percent.StringFixed(1)+"%")
	}
	parts = append(parts,
		"Coins "+FormatCount(g.ActiveCoins()),
		"Markets "+FormatCount(g.MarketCount()),
	)
	return " " + strings.Join(parts, dimStyle.Render("  │  "))
}

func (m Model) renderSearch() string {
	eng := m.session.Search
	line := m.input.View()
	if !m.searching || !eng.IsOpen() {
		return line
	}

	active := eng.ActiveIndex()
	items := suggestionLabels(eng.Suggestions())
	for i := range items {
		if i == active {
			items[i] = activeSuggest.Render(items[i])
		}
	}
	if len(items) == 0 {
		items = append(items, dimStyle.Render("no matches"))
	}
	return line + suggestionSep + strings.Join(items, suggestionSep)
}

const suggestionSep = "  "

func suggestionLabels(coins []domain.Coin) []string {
	labels := make([]string, len(coins))
	for i, c := range coins {
		labels[i] = fmt.Sprintf("%s (%s)", c.Name, strings.ToUpper(c.Symbol))
	}
	return labels
}

func (m Model) renderFooter() string {
	left := " q quit  / search  1/2 view  c currency  s sort  r reverse  f fav  F fav-only  enter detail  [ ] page  R retry"
	if m.status != "" {
		left = " " + m.status
	}

	ms := infra.GlobalMetrics.Snapshot()
	right := fmt.Sprintf("updated %s  req %d  err %d  avg %s  stale %d ",
		FormatUpdated(m.session.Markets().UpdatedAt),
		ms.RequestsTotal, ms.RequestErrors, ms.AvgLatency.Round(time.Millisecond), ms.StaleDiscarded)

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return footerStyle.Render(padOrTrunc(left+strings.Repeat(" ", gap)+right, m.width))
}

// listOffset is the number of panel lines above the first table row.
func (m *Model) listOffset() int {
	if m.session.View() == dashboard.ViewWatchlist {
		return 1
	}
	return 4
}

func (m *Model) renderList() string {
	var b strings.Builder
	s := m.session

	if s.View() == dashboard.ViewWatchlist {
		snap := s.Watchlist()
		b.WriteString(colHeadStyle.Render(tableHeader()) + "\n")
		if msg, done := statusLine(snap.Status, snap.HasData, snap.Message, "watchlist"); done {
			b.WriteString(msg)
			return b.String()
		}
		coins, missing := s.WatchlistCoins()
		if len(coins) == 0 && len(missing) == 0 {
			b.WriteString(dimStyle.Render("  No favourites yet. Press f on a coin to add it."))
		}
		m.writeRows(&b, coins)
		if len(missing) > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  Not in the top %d: %s", len(s.Watchlist().Data), strings.Join(missing, ", "))) + "\n")
		}
		return b.String()
	}

	// Movers and trending panel
	gainers, losers := s.Movers()
	b.WriteString(titleStyle.Render("Top gainers ") + moverList(gainers) + "\n")
	b.WriteString(titleStyle.Render("Top losers  ") + moverList(losers) + "\n")
	b.WriteString(titleStyle.Render("Trending    ") + trendingList(s.Trending()) + "\n")
	b.WriteString(colHeadStyle.Render(tableHeader()) + "\n")

	snap := s.Markets()
	if msg, done := statusLine(snap.Status, snap.HasData, snap.Message, "markets"); done {
		b.WriteString(msg)
		return b.String()
	}
	coins := s.VisibleCoins()
	if len(coins) == 0 {
		b.WriteString(dimStyle.Render("  No coins match the current filters."))
	}
	m.writeRows(&b, coins)
	return b.String()
}

// statusLine renders the non-data states of a view. done is false once rows can be drawn.
func statusLine(st fetch.Status, hasData bool, message, what string) (string, bool) {
	switch {
	case st == fetch.Failed:
		return errorStyle.Render("  "+message) + dimStyle.Render("  (R to retry)"), true
	case !hasData:
		return dimStyle.Render("  Loading " + what + "..."), true
	}
	return "", false
}

func tableHeader() string {
	return fmt.Sprintf("  %4s %-1s %-20s %-7s %16s %9s %12s %12s  %s",
		"#", "", "NAME", "SYMBOL", "PRICE", "24H", "MCAP", "VOLUME", "7D")
}

func (m *Model) writeRows(b *strings.Builder, coins []domain.Coin) {
	cur := m.session.Currency()
	for i := range coins {
		c := &coins[i]
		star := " "
		if m.session.Favorites.Has(c.ID) {
			star = favStyle.Render("★")
		}
		rank := "-"
		if c.MarketCapRank > 0 {
			rank = fmt.Sprint(c.MarketCapRank)
		}
		spark := ""
		if c.HasSparkline() {
			spark = Sparkline(c.Sparkline.Price, sparkWidth)
		}

		style := changeStyle(c.ChangeDirection())
		line := fmt.Sprintf("  %4s %s %-20s %-7s %16s %s %12s %12s  %s",
			rank,
			star,
			Truncate(c.Name, 20),
			Truncate(strings.ToUpper(c.Symbol), 7),
			FormatPrice(c.CurrentPrice, cur),
			style.Render(fmt.Sprintf("%9s", FormatPercent(c.PriceChangePercentage24h))),
			FormatMoney(c.MarketCap, cur),
			FormatMoney(c.TotalVolume, cur),
			style.Render(spark),
		)
		if i == m.cursor {
			line = lipgloss.NewStyle().Background(cursorBG).Render(padOrTrunc(line, m.width))
		}
		b.WriteString(line + "\n")
	}
}

func moverList(coins []domain.Coin) string {
	if len(coins) == 0 {
		return dimStyle.Render("-")
	}
	parts := make([]string, len(coins))
	for i := range coins {
		c := &coins[i]
		parts[i] = strings.ToUpper(c.Symbol) + " " + changeStyle(c.ChangeDirection()).Render(FormatPercent(c.PriceChangePercentage24h))
	}
	return strings.Join(parts, "  ")
}

func trendingList(snap fetch.Snapshot[struct{}, []domain.TrendingCoin]) string {
	if snap.Status == fetch.Failed {
		return errorStyle.Render(snap.Message)
	}
	if !snap.HasData {
		return dimStyle.Render("...")
	}
	parts := make([]string, 0, len(snap.Data))
	for _, t := range snap.Data {
		parts = append(parts, t.Name)
	}
	return strings.Join(parts, dimStyle.Render(" · "))
}

func (m *Model) renderDetail() string {
	s := m.session
	coin, _ := s.Selected()
	cur := s.Currency()
	width := max(m.width-6, 20)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", coin.Name, strings.ToUpper(coin.Symbol))))
	b.WriteString(dimStyle.Render("   esc close  d chart window  f favourite") + "\n")
	if icon := s.IconPath(coin.ID); icon != "" {
		b.WriteString(dimStyle.Render("Icon "+icon) + "\n")
	}
	b.WriteString("\n")

	detail := s.Detail()
	switch {
	case detail.Status == fetch.Failed:
		b.WriteString(errorStyle.Render(detail.Message) + dimStyle.Render("  (R to retry)") + "\n")
	case !detail.HasData:
		b.WriteString(dimStyle.Render("Loading details...") + "\n")
	default:
		d := detail.Data
		price, mcap, vol := na, na, na
		if v, ok := d.PriceIn(cur); ok {
			price = FormatPrice(v, cur)
		}
		if v, ok := d.MarketCapIn(cur); ok {
			mcap = FormatMoney(v, cur)
		}
		if v, ok := d.VolumeIn(cur); ok {
			vol = FormatMoney(v, cur)
		}
		rank := na
		if d.MarketCapRank > 0 {
			rank = fmt.Sprintf("#%d", d.MarketCapRank)
		}
		fmt.Fprintf(&b, "Price %s   Market cap %s   Volume %s   Rank %s\n", price, mcap, vol, rank)
		fmt.Fprintf(&b, "Supply %s / %s   FDV %s   Genesis %s\n",
			FormatSupply(coin.CirculatingSupply), FormatSupply(coin.MaxSupply),
			FormatCompactNull(coin.FullyDilutedValuation), orNA(d.GenesisDate))
		if sites := d.Links.Websites(3); len(sites) > 0 {
			b.WriteString("Web " + strings.Join(sites, "  ") + "\n")
		}
		if ex := d.Links.Explorers(3); len(ex) > 0 {
			b.WriteString("Explorers " + strings.Join(ex, "  ") + "\n")
		}
		if d.Description != "" {
			b.WriteString(lipgloss.NewStyle().Width(width).Render(Truncate(d.Description, width*3)) + "\n")
		}
	}
	b.WriteString("\n")

	// Price chart in the selected currency
	chart := s.Chart()
	title := fmt.Sprintf("Price %dd (%s)", s.ChartDays(), cur.Label())
	switch {
	case chart.Status == fetch.Failed:
		b.WriteString(panelStyle.Render(title + "\n" + errorStyle.Render(chart.Message)))
	case !chart.HasData:
		b.WriteString(panelStyle.Render(title + "\n" + dimStyle.Render("Loading chart...")))
	default:
		b.WriteString(panelStyle.Render(title + "\n" + Sparkline(domain.Values(chart.Data.Prices), width-4)))
	}
	b.WriteString("\n")

	// OHLC candles are always quoted in USD
	candles := s.Candles()
	title = "OHLC (USD)"
	switch {
	case candles.Status == fetch.Failed:
		b.WriteString(panelStyle.Render(title + "\n" + errorStyle.Render(candles.Message)))
	case !candles.HasData:
		b.WriteString(panelStyle.Render(title + "\n" + dimStyle.Render("Loading candles...")))
	default:
		lo, hi := domain.PriceRange(candles.Data)
		rows := CandleChart(candles.Data, width-4, 10)
		body := fmt.Sprintf("high %.2f\n%s\nlow %.2f", hi, strings.Join(rows, "\n"), lo)
		b.WriteString(panelStyle.Render(title + "\n" + body))
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return na
	}
	return s
}

func padOrTrunc(s string, width int) string {
	w := lipgloss.Width(s)
	if width <= 0 || w == width {
		return s
	}
	if w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
