package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"x86dis/internal/disasm"
	"x86dis/internal/loader"
	"x86dis/internal/report"
	"x86dis/internal/ui/colorize"
	xlog "x86dis/internal/x86dis/log"
)

type viewMode int

const (
	viewListing viewMode = iota
	viewDiagnostics
	viewSummary
)

// diagItem is one diagnostic in the diagnostics list.
type diagItem struct {
	line int // index into the listing
	inst disasm.Inst
}

func (i diagItem) Title() string {
	return fmt.Sprintf("%8x  %s", i.inst.Addr, disasm.HexBytes(i.inst.Raw))
}

func (i diagItem) Description() string { return i.inst.Err.Error() }

func (i diagItem) FilterValue() string {
	return fmt.Sprintf("%x %s", i.inst.Addr, i.inst.Err)
}

type diagDelegate struct{}

func (d diagDelegate) Height() int                               { return 1 }
func (d diagDelegate) Spacing() int                              { return 0 }
func (d diagDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d diagDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(diagItem)
	if !ok {
		return
	}

	indicator := " "
	addrStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		addrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	fmt.Fprintf(w, "%s %s  %s", indicator, addrStyle.Render(i.Title()), errStyle.Render(i.Description()))
}

type model struct {
	listing     viewport.Model
	diagList    list.Model
	summaryView viewport.Model
	mode        viewMode
	image       *loader.Image
	stream      disasm.Stream
	color       bool
	width       int
	height      int
}

func newModel(im *loader.Image, color bool) model {
	stream := disasm.Disassemble(im.Code, im.Base)

	var col *colorize.Colorizer
	if color {
		col = colorize.New()
	}
	lines := make([]string, len(stream))
	var items []list.Item
	for n, inst := range stream {
		if col != nil {
			lines[n] = col.Line(inst, "")
		} else {
			lines[n] = inst.String()
		}
		if inst.Err != nil {
			items = append(items, diagItem{line: n, inst: inst})
		}
	}

	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)
	vp.SetContent(strings.Join(lines, "\n"))

	diagList := list.New(items, diagDelegate{}, 80, 24)
	diagList.SetShowStatusBar(false)
	diagList.SetFilteringEnabled(true)
	diagList.Title = fmt.Sprintf("Diagnostics (%d total)", len(items))
	diagList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)

	svp := viewport.New()
	svp.SetWidth(80)
	svp.SetHeight(24)

	m := model{
		listing:     vp,
		diagList:    diagList,
		summaryView: svp,
		mode:        viewListing,
		image:       im,
		stream:      stream,
		color:       color,
		width:       80,
		height:      24,
	}
	m.updateSummary()
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.listing.SetWidth(msg.Width)
			m.listing.SetHeight(msg.Height - 2)
			m.diagList.SetWidth(msg.Width)
			m.diagList.SetHeight(msg.Height - 2)
			m.summaryView.SetWidth(msg.Width)
			m.summaryView.SetHeight(msg.Height - 2)
			m.updateSummary()
		}

	case tea.KeyMsg:
		if m.mode == viewDiagnostics && m.diagList.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "l":
			m.mode = viewListing
			return m, nil
		case "e":
			if len(m.diagList.Items()) > 0 {
				m.mode = viewDiagnostics
			}
			return m, nil
		case "s":
			m.mode = viewSummary
			return m, nil
		case "enter":
			if m.mode == viewDiagnostics {
				if item, ok := m.diagList.SelectedItem().(diagItem); ok {
					m.mode = viewListing
					m.listing.SetYOffset(item.line)
				}
			}
			return m, nil
		case "tab":
			m.mode = m.nextMode(1)
			return m, nil
		case "shift+tab":
			m.mode = m.nextMode(-1)
			return m, nil
		}
	}

	switch m.mode {
	case viewDiagnostics:
		m.diagList, cmd = m.diagList.Update(msg)
	case viewSummary:
		m.summaryView, cmd = m.summaryView.Update(msg)
	default:
		m.listing, cmd = m.listing.Update(msg)
	}
	return m, cmd
}

// nextMode cycles through the views, skipping diagnostics when there are none.
func (m model) nextMode(step int) viewMode {
	mode := m.mode
	for {
		mode = viewMode((int(mode) + step + 3) % 3)
		if mode != viewDiagnostics || len(m.diagList.Items()) > 0 {
			return mode
		}
	}
}

func (m model) View() string {
	var content, menu string
	switch m.mode {
	case viewDiagnostics:
		content = m.diagList.View()
		menu = " Enter: jump to line • L: listing • S: summary • Tab: cycle • Q: quit "
	case viewSummary:
		content = m.summaryView.View()
		menu = " L: listing • E: diagnostics • Tab: cycle • Q: quit "
	default:
		content = m.listing.View()
		if len(m.diagList.Items()) > 0 {
			menu = " E: diagnostics • S: summary • Tab: cycle • Q: quit "
		} else {
			menu = " S: summary • Tab: cycle • Q: quit "
		}
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

func (m *model) updateSummary() {
	sum := report.Summarize(m.stream)
	sum.File = m.image.Path
	sum.Kind = m.image.Kind
	sum.Base = m.image.Base

	rendered, err := report.Render(sum, m.width, m.color)
	if err != nil {
		rendered = sum.Markdown()
	}
	m.summaryView.SetContent(strings.TrimSuffix(rendered, "\n"))
}

func newViewCmd() *cobra.Command {
	viewCmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Browse the listing interactively",
		Long: `Open the listing in a terminal UI with a diagnostics list and a summary.
Press enter on a diagnostic to jump to it in the listing.`,
		Args: requireFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFromFlags(cmd)
			im, err := loader.Load(args[0], opts.Load)
			if err != nil {
				return err
			}
			defer xlog.RecoverPanic("view", nil)

			program := tea.NewProgram(
				newModel(im, opts.Color),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := program.Run(); err != nil {
				slog.Error("TUI run error", "error", err)
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}
	addLoadFlags(viewCmd)
	viewCmd.Flags().Bool("no-color", false, "Disable colour output")
	return viewCmd
}
