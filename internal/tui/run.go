package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/neutronsim/internal/analysis"
	"github.com/san-kum/neutronsim/internal/config"
	"github.com/san-kum/neutronsim/internal/experiment"
)

type stage int

const (
	stageField stage = iota
	stageBeam
	stageDone
	stageFailed
)

type progressMsg struct{ done, total int }

type fieldDoneMsg struct{}

type resultMsg struct{ res *experiment.Result }

type errMsg struct{ err error }

type model struct {
	name   string
	stage  stage
	done   int
	total  int
	result *experiment.Result
	err    error
	cancel context.CancelFunc

	width int
}

func newModel(name string, cancel context.CancelFunc) model {
	return model{name: name, cancel: cancel, width: 80}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case progressMsg:
		m.done, m.total = msg.done, msg.total
	case fieldDoneMsg:
		m.stage = stageBeam
	case resultMsg:
		m.stage = stageDone
		m.result = msg.res
		return m, tea.Quit
	case errMsg:
		m.stage = stageFailed
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("   " + cyan.Render("n e u t r o n s i m") + "  " + dim.Render(m.name) + "\n")
	b.WriteString(dimmer.Render("   "+strings.Repeat("─", 40)) + "\n\n")

	bar := m.width - 30
	if bar < 20 {
		bar = 20
	}
	pct := 0
	if m.total > 0 {
		pct = 100 * m.done / m.total
	}
	b.WriteString(fmt.Sprintf("   %s %s %s\n", dim.Render("field"), cyan.Render(progressBar(m.done, m.total, bar)), white.Render(fmt.Sprintf("%3d%%", pct))))

	switch m.stage {
	case stageBeam:
		b.WriteString("   " + dim.Render("beam ") + " " + magenta.Render("propagating...") + "\n")
	case stageFailed:
		b.WriteString("\n   " + red.Render("error: "+m.err.Error()) + "\n")
	case stageDone:
		b.WriteString(m.viewResult(bar))
	}

	b.WriteString("\n" + dim.Render("   q quit") + "\n")
	return b.String()
}

func (m model) viewResult(width int) string {
	var b strings.Builder
	r := m.result

	b.WriteString(fmt.Sprintf("   %s  %s %d  %s %d  %s %d\n",
		dim.Render("beam "),
		dim.Render("created"), r.Created,
		dim.Render("live"), r.Live,
		dim.Render("steps"), r.Steps))
	b.WriteString(fmt.Sprintf("   %s  %s\n\n", dim.Render("P    "),
		green.Render(fmt.Sprintf("(%.4f, %.4f, %.4f)", r.Polarisation.X, r.Polarisation.Y, r.Polarisation.Z))))

	for _, c := range []analysis.Component{analysis.X, analysis.Y, analysis.Z} {
		_, values := analysis.Series(r.Profile, c)
		b.WriteString(fmt.Sprintf("   %s   %s\n", dim.Render("p"+c.String()), cyan.Render(sparkline(values, width))))
	}
	return b.String()
}

// Run computes the experiment while showing its progress. It returns the
// result, or the error that stopped it.
func Run(ctx context.Context, name string, cfg *config.Config, log *logrus.Logger) (*experiment.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(name, cancel))

	var res *experiment.Result
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		e := experiment.New(cfg,
			experiment.WithLogger(log),
			experiment.WithProgress(func(done, total int) {
				if done == total || done%64 == 0 {
					p.Send(progressMsg{done, total})
				}
			}),
		)
		_, c, err := e.ComputeField(ctx)
		if err != nil {
			runErr = err
			p.Send(errMsg{err})
			return
		}
		p.Send(fieldDoneMsg{})

		res, runErr = e.RunBeam(ctx, c)
		if runErr != nil {
			p.Send(errMsg{runErr})
			return
		}
		p.Send(resultMsg{res})
	}()

	_, err := p.Run()
	cancel()
	<-done
	if err != nil {
		return nil, err
	}
	if res == nil && runErr == nil {
		return nil, context.Canceled
	}
	return res, runErr
}
