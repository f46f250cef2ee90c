package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/plebchat-cli/internal/application"
)

type paymentDoneMsg struct {
	outcome application.SendOutcome
	err     error
}

type invoiceMsg struct {
	paymentRequest string
}

type paymentSpinnerModel struct {
	spinner spinner.Model
	label   string
	send    tea.Cmd
	cancel  context.CancelFunc

	invoice string
	outcome application.SendOutcome
	err     error
	done    bool
}

func newPaymentSpinnerModel(label string, send tea.Cmd, cancel context.CancelFunc) paymentSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return paymentSpinnerModel{
		spinner: s,
		label:   label,
		send:    send,
		cancel:  cancel,
	}
}

func (m paymentSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.send)
}

func (m paymentSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case invoiceMsg:
		m.invoice = msg.paymentRequest
		m.label = "Awaiting payment..."
		return m, nil
	case paymentDoneMsg:
		m.done = true
		m.outcome = msg.outcome
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			// The polling loop observes the cancelled context and
			// finishes with a paymentDoneMsg.
			m.cancel()
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m paymentSpinnerModel) View() string {
	if m.done {
		return ""
	}

	view := fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	if m.invoice != "" {
		view += fmt.Sprintf("\n\nPay this Lightning invoice to send the message:\n\n  %s\n\n(press q to cancel)", m.invoice)
	}
	return view
}

// runPaymentSpinner wraps a gated send in a spinner. When the manual payment
// path is taken the presenter pushes the invoice into the running program so
// it is shown while the settlement poll is in flight.
func runPaymentSpinner(
	ctx context.Context,
	output io.Writer,
	send func(ctx context.Context, present application.InvoicePresenter) (application.SendOutcome, error),
) (application.SendOutcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	present := func(paymentRequest string) {
		p.Send(invoiceMsg{paymentRequest: paymentRequest})
	}

	sendCmd := func() tea.Msg {
		outcome, err := send(ctx, present)
		return paymentDoneMsg{outcome: outcome, err: err}
	}

	p = tea.NewProgram(
		newPaymentSpinnerModel("Authorizing send...", sendCmd, cancel),
		tea.WithOutput(output),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.SendOutcome{}, err
	}

	result, ok := finalModel.(paymentSpinnerModel)
	if !ok {
		return application.SendOutcome{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.outcome, result.err
}
