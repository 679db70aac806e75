// Package tui provides a terminal UI that follows the Warden conversation
// log and tool activity live.
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/wardenhq/warden/pkg/apis/v1alpha1"
	"github.com/wardenhq/warden/pkg/client"
)

// App is the main TUI application. It polls the Warden REST API and
// displays the event log, per-category stats, and the tool inventory in
// a navigable table view.
type App struct {
	app         *tview.Application
	pages       *tview.Pages
	header      *tview.TextView
	footer      *tview.TextView
	table       *tview.Table
	filterInput *tview.InputField
	detailView  *tview.TextView
	layout      *tview.Flex

	client      *client.Client
	serverAddr  string
	currentView string // "events", "stats", "tools"
	filter      string
	follow      bool

	// Cached data from the last successful refresh.
	events  []v1alpha1.Event
	stats   map[v1alpha1.Category]int
	tools   []v1alpha1.ToolInfo
	lastErr error

	mu sync.Mutex

	// mainFlex is the outermost vertical flex (header + content + footer).
	mainFlex *tview.Flex

	// describeOpen tracks whether the detail panel is visible.
	describeOpen bool
	// filterOpen tracks whether the filter input is visible.
	filterOpen bool
}

// NewApp creates a new TUI application connected to the given Warden API server.
func NewApp(serverAddr string) *App {
	a := &App{
		app:         tview.NewApplication(),
		client:      client.New(serverAddr),
		serverAddr:  serverAddr,
		currentView: "events",
		follow:      true,
	}

	// -- Header --
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	// -- Footer --
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	// -- Table --
	a.table = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0). // header row stays fixed
		SetSeparator(tview.Borders.Vertical)
	a.table.SetBorder(false)
	a.table.SetBorderPadding(0, 0, 1, 1)

	// -- Filter input --
	a.filterInput = tview.NewInputField().
		SetLabel(" Filter: ").
		SetFieldWidth(40).
		SetFieldBackgroundColor(tcell.ColorBlack).
		SetLabelColor(tcell.ColorYellow)

	a.filterInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			a.mu.Lock()
			a.filter = a.filterInput.GetText()
			a.mu.Unlock()
			a.hideFilter()
			a.updateTable()
			a.app.SetFocus(a.table)
		case tcell.KeyEscape:
			a.mu.Lock()
			a.filter = ""
			a.mu.Unlock()
			a.filterInput.SetText("")
			a.hideFilter()
			a.updateTable()
			a.app.SetFocus(a.table)
		}
	})

	// -- Detail view --
	a.detailView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	a.detailView.SetBorder(true).
		SetTitle(" Event ").
		SetBorderColor(tcell.ColorDodgerBlue)

	// -- Build the main layout --
	contentFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(a.table, 0, 1, true)

	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(contentFlex, 0, 1, true).
		AddItem(a.footer, 1, 0, false)

	a.layout = contentFlex

	a.pages = tview.NewPages().
		AddPage("main", a.mainFlex, true, true)

	a.updateHeader()
	a.updateFooter()
	a.setupKeyBindings()

	a.app.SetRoot(a.pages, true).SetFocus(a.table)

	return a
}

// Run starts the background refresh goroutine and runs the TUI event loop.
func (a *App) Run() error {
	// Perform an initial synchronous refresh so the table is populated
	// before the first render.
	a.refresh()

	// Background poller.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			a.refresh()
			a.app.QueueUpdateDraw(func() {
				a.updateTable()
			})
		}
	}()

	return a.app.Run()
}

// ---------------------------------------------------------------------------
// Key bindings
// ---------------------------------------------------------------------------

func (a *App) setupKeyBindings() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// When the filter input has focus, let it handle its own keys.
		if a.filterOpen {
			return event
		}

		// When the detail panel is open, Escape closes it.
		if a.describeOpen && event.Key() == tcell.KeyEscape {
			a.hideDescribe()
			return nil
		}

		switch event.Key() {
		case tcell.KeyRune:
			switch event.Rune() {
			case '1':
				a.switchView("events")
				return nil
			case '2':
				a.switchView("stats")
				return nil
			case '3':
				a.switchView("tools")
				return nil
			case '/':
				a.showFilter()
				return nil
			case 'q':
				a.app.Stop()
				return nil
			case 'r':
				go func() {
					a.refresh()
					a.app.QueueUpdateDraw(func() {
						a.updateTable()
					})
				}()
				return nil
			case 'f':
				a.mu.Lock()
				a.follow = !a.follow
				a.mu.Unlock()
				a.updateHeader()
				return nil
			case 'C':
				a.confirmClear()
				return nil
			case 'j':
				row, _ := a.table.GetSelection()
				if row < a.table.GetRowCount()-1 {
					a.table.Select(row+1, 0)
				}
				return nil
			case 'k':
				row, _ := a.table.GetSelection()
				if row > 1 { // row 0 is the header
					a.table.Select(row-1, 0)
				}
				return nil
			}
		case tcell.KeyEnter:
			a.showDescribe()
			return nil
		case tcell.KeyEscape:
			if a.filter != "" {
				a.mu.Lock()
				a.filter = ""
				a.mu.Unlock()
				a.updateTable()
			}
			return nil
		}

		return event
	})
}

// ---------------------------------------------------------------------------
// View switching
// ---------------------------------------------------------------------------

func (a *App) switchView(view string) {
	a.mu.Lock()
	a.currentView = view
	a.mu.Unlock()

	a.updateHeader()

	go func() {
		a.refresh()
		a.app.QueueUpdateDraw(func() {
			a.updateTable()
		})
	}()
}

// ---------------------------------------------------------------------------
// Data refresh
// ---------------------------------------------------------------------------

func (a *App) refresh() {
	a.mu.Lock()
	view := a.currentView
	a.mu.Unlock()

	switch view {
	case "events":
		events, err := a.client.Memory()
		a.mu.Lock()
		a.events = events
		a.lastErr = err
		a.mu.Unlock()
	case "stats":
		resp, err := a.client.Stats()
		a.mu.Lock()
		if err == nil {
			a.stats = resp.Stats
		}
		a.lastErr = err
		a.mu.Unlock()
	case "tools":
		tools, err := a.client.Tools()
		a.mu.Lock()
		a.tools = tools
		a.lastErr = err
		a.mu.Unlock()
	}
}

// ---------------------------------------------------------------------------
// Table rendering
// ---------------------------------------------------------------------------

func (a *App) updateTable() {
	a.table.Clear()

	a.mu.Lock()
	view := a.currentView
	filter := strings.ToLower(a.filter)
	follow := a.follow
	err := a.lastErr
	a.mu.Unlock()

	if err != nil {
		a.setTableHeaders([]string{"ERROR"})
		a.table.SetCell(1, 0,
			tview.NewTableCell(fmt.Sprintf("Error: %v", err)).
				SetTextColor(tcell.ColorRed))
		return
	}

	switch view {
	case "events":
		a.renderEvents(filter)
	case "stats":
		a.renderStats(filter)
	case "tools":
		a.renderTools(filter)
	}

	// Follow mode keeps the newest event selected in the log view.
	if a.table.GetRowCount() > 1 {
		if view == "events" && follow {
			a.table.Select(a.table.GetRowCount()-1, 0)
		} else {
			a.table.Select(1, 0)
		}
	}
}

func (a *App) setTableHeaders(headers []string) {
	for col, h := range headers {
		cell := tview.NewTableCell(h).
			SetTextColor(tcell.ColorWhite).
			SetBackgroundColor(tcell.ColorDarkCyan).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false).
			SetExpansion(1)
		a.table.SetCell(0, col, cell)
	}
}

// matchesFilter returns true if any of the values contain the filter string.
func matchesFilter(filter string, values ...string) bool {
	if filter == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), filter) {
			return true
		}
	}
	return false
}

func (a *App) renderEvents(filter string) {
	headers := []string{"SEQ", "TIME", "ROLE", "CATEGORY", "TOOL", "PAYLOAD"}
	a.setTableHeaders(headers)

	a.mu.Lock()
	events := a.events
	a.mu.Unlock()

	row := 1
	for i := range events {
		ev := &events[i]
		seq := fmt.Sprintf("%d", ev.Sequence)
		role := string(ev.Role)
		category := string(ev.Category)
		payload := oneLine(ev.Payload, 60)

		if !matchesFilter(filter, seq, role, category, ev.ToolName, payload) {
			continue
		}

		a.table.SetCell(row, 0, tview.NewTableCell(seq))
		a.table.SetCell(row, 1, tview.NewTableCell(ev.Timestamp.Format("15:04:05")))
		a.table.SetCell(row, 2, tview.NewTableCell(role).
			SetTextColor(roleColor(ev.Role)))
		a.table.SetCell(row, 3, tview.NewTableCell(category))
		a.table.SetCell(row, 4, tview.NewTableCell(ev.ToolName))
		cell := tview.NewTableCell(payload).SetExpansion(1)
		if ev.Status == v1alpha1.StatusError {
			cell.SetTextColor(tcell.ColorRed)
		}
		a.table.SetCell(row, 5, cell)
		row++
	}
}

func (a *App) renderStats(filter string) {
	headers := []string{"CATEGORY", "CALLS"}
	a.setTableHeaders(headers)

	a.mu.Lock()
	stats := a.stats
	a.mu.Unlock()

	row := 1
	for _, c := range v1alpha1.Categories {
		count := fmt.Sprintf("%d", stats[c])

		if !matchesFilter(filter, string(c), count) {
			continue
		}

		a.table.SetCell(row, 0, tview.NewTableCell(string(c)).SetExpansion(1))
		cell := tview.NewTableCell(count).SetExpansion(1)
		if stats[c] > 0 {
			cell.SetTextColor(tcell.ColorGreen)
		}
		a.table.SetCell(row, 1, cell)
		row++
	}
}

func (a *App) renderTools(filter string) {
	headers := []string{"NAME", "CATEGORY", "REQUIRED", "DESCRIPTION"}
	a.setTableHeaders(headers)

	a.mu.Lock()
	tools := a.tools
	a.mu.Unlock()

	row := 1
	for i := range tools {
		t := &tools[i]
		required := strings.Join(t.Required, ",")

		if !matchesFilter(filter, t.Name, string(t.Category), required, t.Description) {
			continue
		}

		a.table.SetCell(row, 0, tview.NewTableCell(t.Name))
		a.table.SetCell(row, 1, tview.NewTableCell(string(t.Category)))
		a.table.SetCell(row, 2, tview.NewTableCell(required))
		a.table.SetCell(row, 3, tview.NewTableCell(oneLine(t.Description, 70)).SetExpansion(1))
		row++
	}
}

// ---------------------------------------------------------------------------
// Detail panel
// ---------------------------------------------------------------------------

func (a *App) showDescribe() {
	a.mu.Lock()
	view := a.currentView
	a.mu.Unlock()

	if view != "events" {
		return
	}

	row, _ := a.table.GetSelection()
	if row < 1 || row >= a.table.GetRowCount() {
		return
	}

	seqText := a.table.GetCell(row, 0).Text

	a.mu.Lock()
	var selected *v1alpha1.Event
	for i := range a.events {
		if fmt.Sprintf("%d", a.events[i].Sequence) == seqText {
			selected = &a.events[i]
			break
		}
	}
	a.mu.Unlock()

	if selected == nil {
		return
	}

	a.detailView.Clear()
	a.detailView.SetText(formatEventDescribe(selected))

	if !a.describeOpen {
		a.layout.AddItem(a.detailView, 0, 1, false)
		a.describeOpen = true
	}
}

func (a *App) hideDescribe() {
	if a.describeOpen {
		a.layout.RemoveItem(a.detailView)
		a.describeOpen = false
		a.app.SetFocus(a.table)
	}
}

func formatEventDescribe(ev *v1alpha1.Event) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[::b]Sequence:[-::-]  %d\n", ev.Sequence))
	b.WriteString(fmt.Sprintf("[::b]Timestamp:[-::-] %s\n", ev.Timestamp.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("[::b]Role:[-::-]      [%s]%s[-]\n", roleColorName(ev.Role), ev.Role))
	b.WriteString(fmt.Sprintf("[::b]Category:[-::-]  %s\n", ev.Category))
	if ev.ToolName != "" {
		b.WriteString(fmt.Sprintf("[::b]Tool:[-::-]      %s\n", ev.ToolName))
	}
	if ev.CallID != "" {
		b.WriteString(fmt.Sprintf("[::b]Call ID:[-::-]   %s\n", ev.CallID))
	}
	if ev.Status != "" {
		if ev.Status == v1alpha1.StatusError {
			b.WriteString(fmt.Sprintf("[::b]Status:[-::-]    [red]%s[-]\n", ev.Status))
		} else {
			b.WriteString(fmt.Sprintf("[::b]Status:[-::-]    [green]%s[-]\n", ev.Status))
		}
	}
	b.WriteString(fmt.Sprintf("\n[::b]Payload:[-::-]\n%s\n", tview.Escape(ev.Payload)))
	return b.String()
}

// ---------------------------------------------------------------------------
// Filter
// ---------------------------------------------------------------------------

func (a *App) showFilter() {
	if a.filterOpen {
		return
	}
	a.filterOpen = true
	a.filterInput.SetText(a.filter)

	// Replace footer with filter input in the main vertical flex.
	a.mainFlex.RemoveItem(a.footer)
	a.mainFlex.AddItem(a.filterInput, 1, 0, true)
	a.app.SetFocus(a.filterInput)
}

func (a *App) hideFilter() {
	if !a.filterOpen {
		return
	}
	a.filterOpen = false

	// Restore footer in place of filter input.
	a.mainFlex.RemoveItem(a.filterInput)
	a.mainFlex.AddItem(a.footer, 1, 0, false)
	a.app.SetFocus(a.table)
}

// ---------------------------------------------------------------------------
// Clear with confirmation
// ---------------------------------------------------------------------------

func (a *App) confirmClear() {
	modal := tview.NewModal().
		SetText("Wipe the entire conversation log?").
		AddButtons([]string{"Clear", "Cancel"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			if buttonLabel == "Clear" {
				a.clearMemory()
			}
			a.pages.RemovePage("confirm")
			a.app.SetFocus(a.table)
		})
	modal.SetBackgroundColor(tcell.ColorDarkRed)

	a.pages.AddPage("confirm", modal, true, true)
}

func (a *App) clearMemory() {
	if _, err := a.client.ClearMemory(); err != nil {
		a.footer.SetText(fmt.Sprintf(" [red]Clear failed: %v[-]", err))
		go func() {
			time.Sleep(3 * time.Second)
			a.app.QueueUpdateDraw(func() {
				a.updateFooter()
			})
		}()
		return
	}

	go func() {
		a.refresh()
		a.app.QueueUpdateDraw(func() {
			a.updateTable()
		})
	}()
}

// ---------------------------------------------------------------------------
// Header & Footer
// ---------------------------------------------------------------------------

func (a *App) updateHeader() {
	views := []struct {
		key  string
		name string
	}{
		{"1", "Events"},
		{"2", "Stats"},
		{"3", "Tools"},
	}

	viewMap := map[string]string{
		"1": "events",
		"2": "stats",
		"3": "tools",
	}

	var parts []string
	for _, v := range views {
		if viewMap[v.key] == a.currentView {
			parts = append(parts, fmt.Sprintf("[::b]<%s>[%s][::-]", v.key, v.name))
		} else {
			parts = append(parts, fmt.Sprintf("<%s>%s", v.key, v.name))
		}
	}

	extra := ""
	a.mu.Lock()
	if a.follow {
		extra = " | [green]follow[-]"
	}
	if a.filter != "" {
		extra += fmt.Sprintf(" | [yellow]filter: %s[-]", a.filter)
	}
	a.mu.Unlock()

	a.header.SetText(fmt.Sprintf(" [::b]Warden[::-] | %s | %s%s",
		a.serverAddr, strings.Join(parts, "  "), extra))
}

func (a *App) updateFooter() {
	a.footer.SetText(" [yellow]<enter>[white]Detail  [yellow]<f>[white]Follow  [yellow]</>[white]Filter  [yellow]<C>[white]Clear  [yellow]<q>[white]Quit  [yellow]<r>[white]Refresh  [yellow]<esc>[white]Back")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// oneLine folds a payload onto a single line and truncates it for a cell.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// roleColor returns the tcell color appropriate for an event role.
func roleColor(role v1alpha1.Role) tcell.Color {
	switch role {
	case v1alpha1.RoleUser:
		return tcell.ColorGreen
	case v1alpha1.RoleAgent:
		return tcell.ColorAqua
	case v1alpha1.RoleToolCall:
		return tcell.ColorYellow
	case v1alpha1.RoleToolResult:
		return tcell.ColorWhite
	default:
		return tcell.ColorWhite
	}
}

// roleColorName returns the tview color tag name for an event role.
func roleColorName(role v1alpha1.Role) string {
	switch role {
	case v1alpha1.RoleUser:
		return "green"
	case v1alpha1.RoleAgent:
		return "aqua"
	case v1alpha1.RoleToolCall:
		return "yellow"
	case v1alpha1.RoleToolResult:
		return "white"
	default:
		return "white"
	}
}
