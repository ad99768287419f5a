// Package tui provides the interactive Bubble Tea dashboard for subtrack.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/patcav/subtrack/internal/cli"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/notify"
	"github.com/patcav/subtrack/internal/subs"
)

// dataMsg is sent when a refresh of the repository and notifier finishes.
type dataMsg struct {
	active        []model.SubscriptionRecord
	past          []model.SubscriptionRecord
	total         decimal.Decimal
	notifications []model.Notification
	err           error
}

// App is the root Bubble Tea model.
type App struct {
	repo     *subs.Repository
	notifier *notify.Notifier

	spinner spinner.Model
	loading bool
	err     error

	active        []model.SubscriptionRecord
	past          []model.SubscriptionRecord
	total         decimal.Decimal
	notifications []model.Notification
	lastRefresh   time.Time

	cursor   int
	showPast bool
	width    int
	height   int
}

// New creates the dashboard model.
func New(repo *subs.Repository, notifier *notify.Notifier) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)
	return App{
		repo:     repo,
		notifier: notifier,
		spinner:  sp,
		loading:  true,
	}
}

// Run starts the dashboard and blocks until quit.
func Run(repo *subs.Repository, notifier *notify.Notifier) error {
	_, err := tea.NewProgram(New(repo, notifier), tea.WithAltScreen()).Run()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.refreshCmd())
}

func (a App) refreshCmd() tea.Cmd {
	repo, notifier := a.repo, a.notifier
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := repo.Refresh(ctx); err != nil {
			return dataMsg{err: err}
		}
		notifications, err := notifier.Refresh(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		active, past := repo.Partition()
		return dataMsg{
			active:        active,
			past:          past,
			total:         repo.MonthlyTotal(),
			notifications: notifications,
		}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case dataMsg:
		a.loading = false
		a.err = msg.err
		if msg.err == nil {
			a.active = msg.active
			a.past = msg.past
			a.total = msg.total
			a.notifications = msg.notifications
			a.lastRefresh = time.Now()
			if a.cursor >= len(a.visible()) {
				a.cursor = 0
			}
		}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return a, tea.Quit
		case "r":
			if !a.loading {
				a.loading = true
				a.err = nil
				return a, tea.Batch(a.spinner.Tick, a.refreshCmd())
			}
		case "p", "tab":
			a.showPast = !a.showPast
			a.cursor = 0
		case "up", "k":
			if a.cursor > 0 {
				a.cursor--
			}
		case "down", "j":
			if a.cursor < len(a.visible())-1 {
				a.cursor++
			}
		}
	}
	return a, nil
}

func (a App) visible() []model.SubscriptionRecord {
	if a.showPast {
		return a.past
	}
	return a.active
}

var (
	tuiTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(cli.ColorText)
	tuiSectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(cli.ColorAccent)
	tuiSelectedStyle = lipgloss.NewStyle().Foreground(cli.ColorText).Background(cli.ColorBorder)
	tuiMutedStyle    = lipgloss.NewStyle().Foreground(cli.ColorTextMuted)
	tuiWarnStyle     = lipgloss.NewStyle().Foreground(cli.ColorOrange)
	tuiKeyStyle      = lipgloss.NewStyle().Foreground(cli.ColorTextDim)
)

func (a App) View() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(tuiTitleStyle.Render("subtrack"))
	b.WriteString(tuiMutedStyle.Render("  monthly total " + cli.FormatTotal(a.total)))
	b.WriteString("\n\n")

	if a.loading {
		b.WriteString(fmt.Sprintf("  %s loading...\n", a.spinner.View()))
		return b.String()
	}
	if a.err != nil {
		b.WriteString(tuiWarnStyle.Render(fmt.Sprintf("  %v", a.err)))
		b.WriteString("\n\n")
		b.WriteString(tuiKeyStyle.Render("  r retry · q quit"))
		b.WriteString("\n")
		return b.String()
	}

	section := fmt.Sprintf("Active (%d)", len(a.active))
	if a.showPast {
		section = fmt.Sprintf("Past (%d)", len(a.past))
	}
	b.WriteString("  ")
	b.WriteString(tuiSectionStyle.Render(section))
	b.WriteString("\n")

	records := a.visible()
	if len(records) == 0 {
		b.WriteString(tuiMutedStyle.Render("    nothing here\n"))
	}
	for i, rec := range records {
		line := fmt.Sprintf("  %-28s %10s  next %s",
			cli.Truncate(rec.Name, 28),
			cli.FormatAmount(rec.AverageAmount),
			cli.FormatDate(rec.PredictedNextDate),
		)
		if i == a.cursor {
			line = tuiSelectedStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}

	if len(a.notifications) > 0 {
		b.WriteString("\n  ")
		b.WriteString(tuiSectionStyle.Render("Notifications"))
		b.WriteString("\n")
		for _, n := range a.notifications {
			b.WriteString(tuiMutedStyle.Render("    • "+n.Message) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(tuiKeyStyle.Render(fmt.Sprintf("  tab active/past · r refresh · q quit · refreshed %s",
		a.lastRefresh.Format("15:04:05"))))
	b.WriteString("\n")
	return b.String()
}
