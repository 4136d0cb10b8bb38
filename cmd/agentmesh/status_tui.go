package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aimami-art/agentmesh/internal/a2a"
	"github.com/aimami-art/agentmesh/internal/orchestrator"
)

// statusTickMsg triggers a status refresh.
type statusTickMsg time.Time

// statusModel renders a live view of a running mesh.
type statusModel struct {
	orch    *orchestrator.Orchestrator
	status  map[string]interface{}
	spinner spinner.Model
	width   int

	titleStyle  lipgloss.Style
	labelStyle  lipgloss.Style
	valueStyle  lipgloss.Style
	healthyTint lipgloss.Style
	warningTint lipgloss.Style
	panelStyle  lipgloss.Style
}

func newStatusModel(o *orchestrator.Orchestrator) statusModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return statusModel{
		orch:        o,
		status:      o.GetSystemStatus(),
		spinner:     sp,
		width:       80,
		titleStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45")),
		labelStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		valueStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		healthyTint: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		warningTint: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		panelStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1),
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, statusTick())
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case statusTickMsg:
		m.status = m.orch.GetSystemStatus()
		return m, statusTick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m statusModel) View() string {
	var b strings.Builder

	health, _ := m.status["health"].(string)
	healthStyle := m.healthyTint
	if health != "healthy" {
		healthStyle = m.warningTint
	}

	b.WriteString(m.titleStyle.Render("agentmesh"))
	b.WriteString("  ")
	b.WriteString(m.spinner.View())
	b.WriteString(healthStyle.Render(health))
	if uptime, ok := m.status["uptime"].(string); ok {
		b.WriteString(m.labelStyle.Render("  up "))
		b.WriteString(m.valueStyle.Render(uptime))
	}
	b.WriteString("\n\n")

	b.WriteString(m.panelStyle.Render(m.networkPanel()))
	b.WriteString("\n")
	b.WriteString(m.panelStyle.Render(m.agentsPanel()))
	b.WriteString("\n")
	b.WriteString(m.labelStyle.Render("press q to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m statusModel) networkPanel() string {
	stats, ok := m.status["network"].(a2a.NetworkStats)
	if !ok {
		return "network: unavailable"
	}

	var b strings.Builder
	b.WriteString(m.titleStyle.Render("Network"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n",
		m.labelStyle.Render("agents:"),
		m.valueStyle.Render(fmt.Sprintf("%d active / %d total", stats.ActiveAgents, stats.TotalAgents)))
	fmt.Fprintf(&b, "%s %s\n",
		m.labelStyle.Render("tasks:"),
		m.valueStyle.Render(fmt.Sprintf("%d total, %d pending", stats.TotalTasks, stats.PendingTasks)))

	statuses := make([]string, 0, len(stats.TaskStats))
	for status := range stats.TaskStats {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		if n := stats.TaskStats[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", status, n))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, "%s %s", m.labelStyle.Render("by status:"), m.valueStyle.Render(strings.Join(parts, " ")))
	}
	return b.String()
}

func (m statusModel) agentsPanel() string {
	agents, ok := m.status["agents"].(map[string]a2a.AgentStats)
	if !ok || len(agents) == 0 {
		return "agents: none"
	}

	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(m.titleStyle.Render("Agents"))
	b.WriteString("\n")
	for _, id := range ids {
		stats := agents[id]
		load := fmt.Sprintf("%d/%d", stats.CurrentTasks, stats.MaxConcurrentTasks)
		fmt.Fprintf(&b, "%s %s %s %s\n",
			m.valueStyle.Render(fmt.Sprintf("%-18s", id)),
			m.labelStyle.Render(fmt.Sprintf("%-10s", stats.Status)),
			m.valueStyle.Render(fmt.Sprintf("%5s", load)),
			m.labelStyle.Render(strings.Join(stats.Capabilities, ",")))
	}
	return strings.TrimRight(b.String(), "\n")
}

// runStatusTUI blocks until the user quits the live view.
func runStatusTUI(o *orchestrator.Orchestrator) error {
	program := tea.NewProgram(newStatusModel(o), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
