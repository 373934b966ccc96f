package ui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/fetch"
	"github.com/koki-develop/asciimage/internal/logging"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/koki-develop/asciimage/internal/style"
	"github.com/koki-develop/asciimage/internal/widget"
)

// terminal cells are reported to the resolver as pixels of this size
const (
	cellPixelWidth  = 8
	cellPixelHeight = 16

	// rows reserved below the image for the status and help lines
	chromeRows = 3

	gammaStep = 0.1
	minGamma  = 0.1
)

type Option struct {
	Src    string
	Config config.Render
	Loader fetch.Loader
	Logger *slog.Logger
}

func Start(opt *Option) error {
	m, err := newModel(opt)
	if err != nil {
		return err
	}
	defer m.widget.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	if m.err != nil {
		return m.err
	}

	return nil
}

var _ tea.Model = &model{}

type model struct {
	err error

	widget  *widget.Widget
	frames  chan widget.Frame
	spinner spinner.Model
	logger  *slog.Logger

	src       string
	cfg       config.Render
	maxHeight int
	frame     widget.Frame

	state        modelState
	windowHeight int
	windowWidth  int
}

func newModel(opt *Option) (*model, error) {
	cfg := opt.Config
	cfg.Format = config.FormatANSI

	loader := opt.Loader
	if loader == nil {
		loader = fetch.NewLoader(fetch.WithLogger(opt.Logger))
	}

	m := &model{
		frames:  make(chan widget.Frame, 1),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		logger:  logging.For(opt.Logger, logging.ChannelUI),
		src:       opt.Src,
		cfg:       cfg,
		maxHeight: cfg.MaxHeight,
		state:     modelStateLoading,
	}

	w, err := widget.New(loader, cfg,
		widget.WithLogger(opt.Logger),
		widget.OnRender(m.publish),
	)
	if err != nil {
		return nil, err
	}
	m.widget = w

	return m, nil
}

// publish hands a frame to the program, replacing any frame not yet read.
func (m *model) publish(f widget.Frame) {
	for {
		select {
		case m.frames <- f:
			return
		default:
		}
		select {
		case <-m.frames:
		default:
		}
	}
}

func (m *model) Init() tea.Cmd {
	m.widget.SetSource(m.src)
	return tea.Batch(m.spinner.Tick, m.waitForFrame())
}

func (m *model) View() string {
	switch m.state {
	case modelStateLoading:
		return m.loadingView()
	case modelStateFailed:
		return m.errorView()
	case modelStateViewing:
		return m.asciiView() + "\n" + m.statusView() + "\n" + m.helpView()
	}

	return ""
}

func (m *model) loadingView() string {
	return fmt.Sprintf("%s %s", m.spinner.View(), style.LoadingText)
}

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color(style.Dark.Error)).
	Padding(1, 2)

func (m *model) errorView() string {
	return errorStyle.Render(style.ErrorText(m.frame.Err)) + "\n" + m.helpView()
}

func (m *model) asciiView() string {
	lines := m.frame.Output.Lines()
	if len(lines) == 0 {
		return style.EmptyText
	}

	leftPad := strings.Repeat(" ", max(0, (m.windowWidth-m.frame.Grid.Cols)/2))
	b := new(strings.Builder)
	for _, line := range lines {
		b.WriteString(leftPad)
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(style.Dark.Muted))

func (m *model) statusView() string {
	dither := "off"
	if m.cfg.Dithering {
		dither = "on"
	}
	return statusStyle.Render(fmt.Sprintf("%s · %s · gamma %.1f · dither %s · %s",
		m.cfg.Mode, m.cfg.ColorMode, m.cfg.Gamma, dither, m.frame.Grid))
}

func (m *model) helpView() string {
	b := new(strings.Builder)
	b.WriteString(strings.Repeat(" ", max(0, (m.windowWidth-56)/2)))

	key := color.New(color.BgGreen, color.FgBlack)
	b.WriteString(key.Sprint(" m "))
	b.WriteString(" mode ")
	b.WriteString(key.Sprint(" c "))
	b.WriteString(" color ")
	b.WriteString(key.Sprint(" d "))
	b.WriteString(" dither ")
	b.WriteString(key.Sprint(" +/- "))
	b.WriteString(" gamma ")
	b.WriteString(color.New(color.BgRed, color.FgWhite).Sprint(" q "))
	b.WriteString(" quit")

	return b.String()
}

type modelState string

const (
	modelStateLoading modelState = "loading"
	modelStateViewing modelState = "viewing"
	modelStateFailed  modelState = "failed"
)

type frameMsg widget.Frame

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "m":
			m.cfg.Mode = charset.Next(m.cfg.Mode)
			return m, m.applyConfig()
		case "c":
			m.cfg.ColorMode = config.NextColorMode(m.cfg.ColorMode)
			return m, m.applyConfig()
		case "d":
			m.cfg.Dithering = !m.cfg.Dithering
			return m, m.applyConfig()
		case "+", "=":
			m.cfg.Gamma += gammaStep
			return m, m.applyConfig()
		case "-":
			m.cfg.Gamma = max(minGamma, m.cfg.Gamma-gammaStep)
			return m, m.applyConfig()
		case "r":
			m.widget.SetSource(m.src)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.windowHeight = msg.Height
		m.windowWidth = msg.Width
		cmd := m.fitHeight()
		m.widget.SetContainerSize(m.containerSize())
		return m, cmd

	case frameMsg:
		m.frame = widget.Frame(msg)
		prev := m.state
		switch {
		case m.frame.State.Failed():
			m.state = modelStateFailed
		case m.frame.State == widget.StateRendered:
			m.state = modelStateViewing
		case m.frame.State == widget.StateLoading:
			m.state = modelStateLoading
		}
		if m.state == modelStateLoading && prev != modelStateLoading {
			// the spinner stops ticking outside the loading state
			return m, tea.Batch(m.waitForFrame(), m.spinner.Tick)
		}
		return m, m.waitForFrame()

	case spinner.TickMsg:
		if m.state != modelStateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// containerSize converts the drawable part of the terminal to pixels.
func (m *model) containerSize() resize.Size {
	return resize.Size{
		Width:  float64(max(0, m.windowWidth) * cellPixelWidth),
		Height: float64(max(0, m.windowHeight-chromeRows) * cellPixelHeight),
	}
}

// fitHeight caps the image at the rows the chrome leaves free, never above
// the cap the viewer was started with.
func (m *model) fitHeight() tea.Cmd {
	limit := max(1, m.windowHeight-chromeRows)
	if m.maxHeight > 0 {
		limit = min(limit, m.maxHeight)
	}
	if m.cfg.MaxHeight == limit {
		return nil
	}
	m.cfg.MaxHeight = limit
	return m.applyConfig()
}

func (m *model) applyConfig() tea.Cmd {
	if err := m.widget.SetConfig(m.cfg); err != nil {
		m.logger.Warn("config rejected", "error", err)
		m.err = err
		return tea.Quit
	}
	return nil
}

func (m *model) waitForFrame() tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-m.frames)
	}
}
