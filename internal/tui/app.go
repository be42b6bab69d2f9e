// Package tui provides a k9s-style terminal UI over an agentcheck server.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
	"github.com/klubi/agentcheck/pkg/client"
)

const (
	viewRuns     = "runs"
	viewProfiles = "profiles"
)

// App polls the agentcheck API and shows check runs and profiles in a
// navigable table.
type App struct {
	app         *tview.Application
	pages       *tview.Pages
	header      *tview.TextView
	footer      *tview.TextView
	table       *tview.Table
	filterInput *tview.InputField
	detailView  *tview.TextView
	layout      *tview.Flex
	mainFlex    *tview.Flex

	client      *client.Client
	serverAddr  string
	currentView string
	filter      string

	runs     []v1alpha1.CheckRun
	profiles []v1alpha1.AgentProfile
	lastErr  error

	mu sync.Mutex

	describeOpen bool
	filterOpen   bool
}

// NewApp creates a TUI connected to the agentcheck server at serverAddr.
func NewApp(serverAddr string) *App {
	a := &App{
		app:         tview.NewApplication(),
		client:      client.New(serverAddr),
		serverAddr:  serverAddr,
		currentView: viewRuns,
	}

	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	a.table = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0).
		SetSeparator(tview.Borders.Vertical)
	a.table.SetBorderPadding(0, 0, 1, 1)

	a.filterInput = tview.NewInputField().
		SetLabel(" Filter: ").
		SetFieldWidth(40).
		SetFieldBackgroundColor(tcell.ColorBlack).
		SetLabelColor(tcell.ColorYellow)
	a.filterInput.SetDoneFunc(func(key tcell.Key) {
		text := ""
		if key == tcell.KeyEnter {
			text = a.filterInput.GetText()
		}
		a.mu.Lock()
		a.filter = text
		a.mu.Unlock()
		a.filterInput.SetText(text)
		a.hideFilter()
		a.updateHeader()
		a.updateTable()
	})

	a.detailView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	a.detailView.SetBorder(true).
		SetTitle(" Describe ").
		SetBorderColor(tcell.ColorDodgerBlue)

	a.layout = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(a.table, 0, 1, true)

	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.layout, 0, 1, true).
		AddItem(a.footer, 1, 0, false)

	a.pages = tview.NewPages().
		AddPage("main", a.mainFlex, true, true)

	a.updateHeader()
	a.updateFooter()
	a.setupKeyBindings()

	a.app.SetRoot(a.pages, true).SetFocus(a.table)
	return a
}

// Run populates the table, starts the background poller and runs the event
// loop until the user quits.
func (a *App) Run() error {
	a.refresh()
	a.updateTable()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			a.refresh()
			a.app.QueueUpdateDraw(a.updateTable)
		}
	}()

	return a.app.Run()
}

// ---------------------------------------------------------------------------
// Key bindings
// ---------------------------------------------------------------------------

func (a *App) setupKeyBindings() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.filterOpen {
			return event
		}
		if a.describeOpen && event.Key() == tcell.KeyEscape {
			a.hideDescribe()
			return nil
		}

		switch event.Key() {
		case tcell.KeyRune:
			switch event.Rune() {
			case '1':
				a.switchView(viewRuns)
				return nil
			case '2':
				a.switchView(viewProfiles)
				return nil
			case '/':
				a.showFilter()
				return nil
			case 'q':
				a.app.Stop()
				return nil
			case 'r':
				go a.refreshAndDraw()
				return nil
			case 'c':
				a.runSelected()
				return nil
			case 'j':
				row, _ := a.table.GetSelection()
				if row < a.table.GetRowCount()-1 {
					a.table.Select(row+1, 0)
				}
				return nil
			case 'k':
				row, _ := a.table.GetSelection()
				if row > 1 {
					a.table.Select(row-1, 0)
				}
				return nil
			}
		case tcell.KeyEnter:
			a.showDescribe()
			return nil
		case tcell.KeyEscape:
			a.mu.Lock()
			cleared := a.filter != ""
			a.filter = ""
			a.mu.Unlock()
			if cleared {
				a.updateHeader()
				a.updateTable()
			}
			return nil
		}
		return event
	})
}

func (a *App) switchView(view string) {
	a.mu.Lock()
	a.currentView = view
	a.mu.Unlock()

	a.hideDescribe()
	a.updateHeader()
	go a.refreshAndDraw()
}

// ---------------------------------------------------------------------------
// Data refresh
// ---------------------------------------------------------------------------

func (a *App) refresh() {
	a.mu.Lock()
	view := a.currentView
	a.mu.Unlock()

	switch view {
	case viewRuns:
		runs, err := a.client.ListCheckRuns("")
		a.mu.Lock()
		a.runs, a.lastErr = runs, err
		a.mu.Unlock()
	case viewProfiles:
		profiles, err := a.client.ListProfiles()
		a.mu.Lock()
		a.profiles, a.lastErr = profiles, err
		a.mu.Unlock()
	}
}

func (a *App) refreshAndDraw() {
	a.refresh()
	a.app.QueueUpdateDraw(a.updateTable)
}

// ---------------------------------------------------------------------------
// Table rendering
// ---------------------------------------------------------------------------

func (a *App) updateTable() {
	a.table.Clear()

	a.mu.Lock()
	view := a.currentView
	filter := strings.ToLower(a.filter)
	err := a.lastErr
	runs := a.runs
	profiles := a.profiles
	a.mu.Unlock()

	if err != nil {
		a.setTableHeaders([]string{"ERROR"})
		a.table.SetCell(1, 0, tview.NewTableCell(fmt.Sprintf("Error: %v", err)).
			SetTextColor(tcell.ColorRed))
		return
	}

	switch view {
	case viewRuns:
		a.setTableHeaders(runHeaders)
		for i, row := range runRows(runs, filter) {
			a.setRow(i+1, row, 2, phaseColor(row[2]))
		}
	case viewProfiles:
		a.setTableHeaders(profileHeaders)
		for i, row := range profileRows(profiles, filter) {
			a.setRow(i+1, row, -1, tcell.ColorWhite)
		}
	}

	if a.table.GetRowCount() > 1 {
		a.table.Select(1, 0)
	}
}

func (a *App) setTableHeaders(headers []string) {
	for col, h := range headers {
		a.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorWhite).
			SetBackgroundColor(tcell.ColorDarkCyan).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false).
			SetExpansion(1))
	}
}

// setRow writes one table row; column colorCol, if any, gets color c.
func (a *App) setRow(row int, values []string, colorCol int, c tcell.Color) {
	for col, v := range values {
		cell := tview.NewTableCell(v).SetExpansion(1)
		if col == colorCol {
			cell.SetTextColor(c)
		}
		a.table.SetCell(row, col, cell)
	}
}

var (
	runHeaders     = []string{"NAME", "PROFILE", "PHASE", "PASSED", "FAILED", "AGE"}
	profileHeaders = []string{"NAME", "AGENT", "TEMPLATE", "BODY-RULES"}
)

// runRows returns filtered table rows for runs, newest first.
func runRows(runs []v1alpha1.CheckRun, filter string) [][]string {
	rows := make([][]string, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		row := []string{
			r.Metadata.Name,
			r.Spec.Profile,
			string(r.Status.Phase),
			strconv.Itoa(r.Status.Passed),
			strconv.Itoa(r.Status.Failed),
			formatAge(r.Metadata.CreatedAt),
		}
		if matchesFilter(filter, row...) {
			rows = append(rows, row)
		}
	}
	return rows
}

func profileRows(profiles []v1alpha1.AgentProfile, filter string) [][]string {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		row := []string{
			p.Metadata.Name,
			p.Spec.AgentPath,
			p.Spec.TemplatePath,
			strconv.Itoa(len(p.Spec.Body)),
		}
		if matchesFilter(filter, row...) {
			rows = append(rows, row)
		}
	}
	return rows
}

// matchesFilter reports whether any value contains the lower-cased filter.
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

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// selectedRow returns the first two cells of the selected row.
func (a *App) selectedRow() (first, second string, ok bool) {
	row, _ := a.table.GetSelection()
	if row < 1 || row >= a.table.GetRowCount() || a.table.GetColumnCount() < 2 {
		return "", "", false
	}
	return a.table.GetCell(row, 0).Text, a.table.GetCell(row, 1).Text, true
}

func (a *App) showDescribe() {
	first, _, ok := a.selectedRow()
	if !ok {
		return
	}

	a.mu.Lock()
	view := a.currentView
	profiles := a.profiles
	a.mu.Unlock()

	var detail string
	switch view {
	case viewRuns:
		run, err := a.client.GetCheckRun(first)
		if err != nil {
			detail = fmt.Sprintf("[red]Error: %v[-]", err)
		} else {
			detail = formatRunDescribe(run)
		}
	case viewProfiles:
		detail = "[red]profile not found[-]"
		for i := range profiles {
			if profiles[i].Metadata.Name == first {
				detail = formatProfileDescribe(&profiles[i])
			}
		}
	}

	a.detailView.Clear()
	a.detailView.SetText(detail)
	a.detailView.ScrollToBeginning()

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

// runSelected asks the server to run the selected profile, or the profile
// of the selected run, and switches to the runs view.
func (a *App) runSelected() {
	first, second, ok := a.selectedRow()
	if !ok {
		return
	}

	a.mu.Lock()
	profile := second
	if a.currentView == viewProfiles {
		profile = first
	}
	a.mu.Unlock()

	go func() {
		run, err := a.client.CreateCheckRun(profile)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash(fmt.Sprintf("[red]Run %s failed: %v[-]", profile, err))
				return
			}
			a.flash(fmt.Sprintf("[%s]%s: %s (%d failed)[-]",
				phaseColorName(string(run.Status.Phase)), run.Metadata.Name, run.Status.Phase, run.Status.Failed))
			a.switchView(viewRuns)
		})
	}()
}

// flash shows msg in the footer for a few seconds.
func (a *App) flash(msg string) {
	a.footer.SetText(" " + msg)
	go func() {
		time.Sleep(3 * time.Second)
		a.app.QueueUpdateDraw(a.updateFooter)
	}()
}

// ---------------------------------------------------------------------------
// Describe formatting
// ---------------------------------------------------------------------------

func formatRunDescribe(run *v1alpha1.CheckRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]Name:[-::-]     %s\n", run.Metadata.Name)
	fmt.Fprintf(&b, "[::b]UID:[-::-]      %s\n", run.Metadata.UID)
	fmt.Fprintf(&b, "[::b]Profile:[-::-]  %s\n", run.Spec.Profile)
	fmt.Fprintf(&b, "[::b]Agent:[-::-]    %s\n", run.Spec.AgentPath)
	if run.Spec.TemplatePath != "" {
		fmt.Fprintf(&b, "[::b]Template:[-::-] %s\n", run.Spec.TemplatePath)
	}
	fmt.Fprintf(&b, "[::b]Phase:[-::-]    [%s]%s[-]\n", phaseColorName(string(run.Status.Phase)), run.Status.Phase)
	fmt.Fprintf(&b, "[::b]Passed:[-::-]   %d\n", run.Status.Passed)
	fmt.Fprintf(&b, "[::b]Failed:[-::-]   %d\n", run.Status.Failed)
	fmt.Fprintf(&b, "[::b]Created:[-::-]  %s\n", run.Metadata.CreatedAt.Format(time.RFC3339))

	b.WriteString("\n[::b]Results:[-::-]\n")
	for _, r := range run.Status.Results {
		if r.Passed {
			fmt.Fprintf(&b, "  [green]PASS[-] %s\n", tview.Escape(r.Name))
			continue
		}
		fmt.Fprintf(&b, "  [red]FAIL[-] %s [gray](%s)[-]\n", tview.Escape(r.Name), r.Category)
		fmt.Fprintf(&b, "       %s\n", tview.Escape(r.Message))
	}
	return b.String()
}

func formatProfileDescribe(p *v1alpha1.AgentProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]Name:[-::-]          %s\n", p.Metadata.Name)
	if p.Spec.Description != "" {
		fmt.Fprintf(&b, "[::b]Description:[-::-]   %s\n", tview.Escape(p.Spec.Description))
	}
	fmt.Fprintf(&b, "[::b]Agent:[-::-]         %s\n", p.Spec.AgentPath)
	fmt.Fprintf(&b, "[::b]Template:[-::-]      %s\n", p.Spec.TemplatePath)
	fmt.Fprintf(&b, "[::b]Required Keys:[-::-] %s\n", strings.Join(p.Spec.Header.RequiredKeys, ", "))

	if len(p.Spec.Header.Fields) > 0 {
		b.WriteString("\n[::b]Fields:[-::-]\n")
		for _, f := range p.Spec.Header.Fields {
			fmt.Fprintf(&b, "  %s\n", f.Key)
		}
	}
	if len(p.Spec.Body) > 0 {
		b.WriteString("\n[::b]Body Rules:[-::-]\n")
		for _, r := range p.Spec.Body {
			fmt.Fprintf(&b, "  %s: %s\n", r.Name, tview.Escape(strings.Join(r.AnyOf, " | ")))
		}
	}
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

	a.mainFlex.RemoveItem(a.footer)
	a.mainFlex.AddItem(a.filterInput, 1, 0, true)
	a.app.SetFocus(a.filterInput)
}

func (a *App) hideFilter() {
	if !a.filterOpen {
		return
	}
	a.filterOpen = false

	a.mainFlex.RemoveItem(a.filterInput)
	a.mainFlex.AddItem(a.footer, 1, 0, false)
	a.app.SetFocus(a.table)
}

// ---------------------------------------------------------------------------
// Header & Footer
// ---------------------------------------------------------------------------

func (a *App) updateHeader() {
	a.mu.Lock()
	view := a.currentView
	filter := a.filter
	a.mu.Unlock()

	views := []struct{ key, name, view string }{
		{"1", "Runs", viewRuns},
		{"2", "Profiles", viewProfiles},
	}
	var parts []string
	for _, v := range views {
		if v.view == view {
			parts = append(parts, fmt.Sprintf("[::b]<%s>[%s][::-]", v.key, v.name))
		} else {
			parts = append(parts, fmt.Sprintf("<%s>%s", v.key, v.name))
		}
	}

	filterInfo := ""
	if filter != "" {
		filterInfo = fmt.Sprintf(" | [yellow]filter: %s[-]", tview.Escape(filter))
	}

	a.header.SetText(fmt.Sprintf(" [::b]agentcheck[::-] | %s | %s%s",
		a.serverAddr, strings.Join(parts, "  "), filterInfo))
}

func (a *App) updateFooter() {
	a.footer.SetText(" [yellow]<enter>[white]Describe  [yellow]<c>[white]Check now  [yellow]</>[white]Filter  [yellow]<r>[white]Refresh  [yellow]<esc>[white]Back  [yellow]<q>[white]Quit")
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// formatAge returns a short duration since t, or "-" for the zero time.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func phaseColor(phase string) tcell.Color {
	switch v1alpha1.CheckPhase(phase) {
	case v1alpha1.RunPassed:
		return tcell.ColorGreen
	case v1alpha1.RunFailed:
		return tcell.ColorRed
	default:
		return tcell.ColorWhite
	}
}

func phaseColorName(phase string) string {
	switch v1alpha1.CheckPhase(phase) {
	case v1alpha1.RunPassed:
		return "green"
	case v1alpha1.RunFailed:
		return "red"
	default:
		return "white"
	}
}
