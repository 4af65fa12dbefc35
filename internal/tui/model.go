// Package tui is the terminal presentation layer of the browse coordinator.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rulehub/rulehub-backend/internal/browse"
	"github.com/rulehub/rulehub-backend/internal/domain"
)

// Controller is the part of browse.Coordinator the view drives
type Controller interface {
	OnSearchInput(text string)
	OnCategorySelect(slug string)
	OnSortSelect(key domain.SortKey)
}

// Navigation moves through the URL history
type Navigation interface {
	Back() bool
	Forward() bool
}

// Engager records copies and votes for the selected rule
type Engager interface {
	CopyRule(ctx context.Context, slug string) (*domain.EngagementResponse, error)
	VoteRule(ctx context.Context, slug string, dir domain.VoteDirection) (*domain.EngagementResponse, error)
}

// Config wires the model. History and Engager are optional.
type Config struct {
	Controller Controller
	Trigger    *browse.ScrollTrigger
	Bridge     *Bridge
	History    Navigation
	Engager    Engager
	Timeout    time.Duration
}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeFilters
)

var sortCycle = []domain.SortKey{domain.SortNewest, domain.SortMostCopied, domain.SortTopVoted}

type engagementMsg struct {
	action string
	resp   *domain.EngagementResponse
	err    error
}

// Model bubbletea 모델
type Model struct {
	cfg Config

	snap   browse.Snapshot
	mode   mode
	search string

	cursor    int
	offset    int
	height    int
	catCursor int

	status string
}

// New creates the model. The list height defaults to 10 rows until the
// first window size message.
func New(cfg Config) Model {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Bridge == nil {
		cfg.Bridge = NewBridge()
	}
	return Model{cfg: cfg, height: 10}
}

func (m Model) Init() tea.Cmd {
	return m.cfg.Bridge.Wait()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.applySnapshot(msg)
		return m, m.cfg.Bridge.Wait()

	case engagementMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s %s: %d copies, +%d/-%d",
				msg.action, msg.resp.Slug, msg.resp.CopyCount, msg.resp.Upvotes, msg.resp.Downvotes)
		}
		return m, nil

	case tea.WindowSizeMsg:
		// header(3) + footer(2)
		m.height = max(1, msg.Height-5)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeFilters:
			return m.updateFilters(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m *Model) applySnapshot(msg snapshotMsg) {
	m.snap = msg.snap
	if m.mode != modeSearch {
		m.search = msg.snap.Filters.Search
	}
	if msg.closeFilters && m.mode == modeFilters {
		m.mode = modeList
	}
	m.clampCursor()
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.mode = modeList
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.search); len(r) > 0 {
			m.search = string(r[:len(r)-1])
			m.cfg.Controller.OnSearchInput(m.search)
		}
		return m, nil
	case tea.KeySpace:
		m.search += " "
		m.cfg.Controller.OnSearchInput(m.search)
		return m, nil
	case tea.KeyRunes:
		m.search += string(msg.Runes)
		m.cfg.Controller.OnSearchInput(m.search)
		return m, nil
	}
	return m, nil
}

func (m Model) updateFilters(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	options := m.categoryOptions()
	switch msg.String() {
	case "esc", "c":
		m.mode = modeList
	case "up", "k":
		if m.catCursor > 0 {
			m.catCursor--
		}
	case "down", "j":
		if m.catCursor < len(options)-1 {
			m.catCursor++
		}
	case "enter":
		// the coordinator closes the overlay through View.CloseFilters
		m.cfg.Controller.OnCategorySelect(options[m.catCursor].Slug)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.mode = modeSearch
	case "c":
		m.mode = modeFilters
		m.catCursor = 0
		for i, o := range m.categoryOptions() {
			if o.Slug == m.snap.Filters.Category {
				m.catCursor = i
			}
		}
	case "s":
		m.cfg.Controller.OnSortSelect(nextSort(m.snap.Filters.Sort))
	case "[":
		if m.cfg.History != nil {
			m.cfg.History.Back()
		}
	case "]":
		if m.cfg.History != nil {
			m.cfg.History.Forward()
		}
	case "down", "j":
		m.move(1)
	case "up", "k":
		m.move(-1)
	case "pgdown", " ":
		m.move(m.height)
	case "pgup":
		m.move(-m.height)
	case "G", "end":
		m.move(len(m.snap.Items))
	case "y":
		return m, m.engage("copy", func(ctx context.Context, slug string) (*domain.EngagementResponse, error) {
			return m.cfg.Engager.CopyRule(ctx, slug)
		})
	case "+":
		return m, m.engage("upvote", func(ctx context.Context, slug string) (*domain.EngagementResponse, error) {
			return m.cfg.Engager.VoteRule(ctx, slug, domain.VoteUp)
		})
	case "-":
		return m, m.engage("downvote", func(ctx context.Context, slug string) (*domain.EngagementResponse, error) {
			return m.cfg.Engager.VoteRule(ctx, slug, domain.VoteDown)
		})
	}
	return m, nil
}

// move shifts the cursor, keeps it visible and reports the scroll position.
func (m *Model) move(delta int) {
	m.cursor += delta
	m.clampCursor()
	if m.cfg.Trigger != nil {
		m.cfg.Trigger.OnScroll(m.offset, m.height, len(m.snap.Items))
	}
}

func (m *Model) clampCursor() {
	n := len(m.snap.Items)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	if m.offset > 0 && m.offset+m.height > n {
		m.offset = max(0, n-m.height)
	}
}

func (m Model) engage(action string, call func(context.Context, string) (*domain.EngagementResponse, error)) tea.Cmd {
	if m.cfg.Engager == nil || len(m.snap.Items) == 0 {
		return nil
	}
	slug := m.snap.Items[m.cursor].Slug
	timeout := m.cfg.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := call(ctx, slug)
		return engagementMsg{action: action, resp: resp, err: err}
	}
}

func (m Model) categoryOptions() []domain.CategoryResponse {
	opts := make([]domain.CategoryResponse, 0, len(m.snap.Categories)+1)
	opts = append(opts, domain.CategoryResponse{Name: "All", Slug: domain.CategoryAll})
	return append(opts, m.snap.Categories...)
}

func nextSort(cur domain.SortKey) domain.SortKey {
	for i, k := range sortCycle {
		if k == cur {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

// ============================================
// View
// ============================================

func (m Model) View() string {
	var b strings.Builder

	f := m.snap.Filters
	cursor := ""
	if m.mode == modeSearch {
		cursor = "_"
	}
	fmt.Fprintf(&b, "search: %s%s\n", m.search, cursor)
	fmt.Fprintf(&b, "category: %s | sort: %s | %s\n", f.Category, f.Sort, m.pageLine())
	b.WriteString(strings.Repeat("-", 60) + "\n")

	switch {
	case m.mode == modeFilters:
		for i, o := range m.categoryOptions() {
			marker := "  "
			if i == m.catCursor {
				marker = "> "
			}
			if o.Slug == domain.CategoryAll {
				fmt.Fprintf(&b, "%s%s\n", marker, o.Name)
			} else {
				fmt.Fprintf(&b, "%s%s (%d)\n", marker, o.Name, o.RuleCount)
			}
		}
	case m.snap.Loading == browse.InitialLoading:
		b.WriteString("loading...\n")
	case m.snap.Empty():
		b.WriteString("no rules found\n")
	default:
		end := min(len(m.snap.Items), m.offset+m.height)
		for i := m.offset; i < end; i++ {
			b.WriteString(m.itemLine(i))
		}
		switch m.snap.Loading {
		case browse.SearchLoading:
			b.WriteString("searching...\n")
		case browse.LoadingMore:
			b.WriteString("loading more...\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString("/ search  c category  s sort  y copy  +/- vote  [ ] history  q quit\n")
	return b.String()
}

func (m Model) pageLine() string {
	p := m.snap.Pagination
	return fmt.Sprintf("%d/%d pages, %d shown of %d", p.Page, p.TotalPages, len(m.snap.Items), p.Total)
}

func (m Model) itemLine(i int) string {
	it := m.snap.Items[i]
	marker := "  "
	if i == m.cursor {
		marker = "> "
	}
	cats := make([]string, len(it.Categories))
	for j, c := range it.Categories {
		cats[j] = c.Slug
	}
	return fmt.Sprintf("%s%-40s  copies %-4d  +%d/-%d  [%s]\n",
		marker, it.Title, it.CopyCount, it.Upvotes, it.Downvotes, strings.Join(cats, ","))
}
