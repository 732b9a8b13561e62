package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"omlethub/pkg/sdk"
)

type item struct {
	server sdk.Server
}

func (i item) Title() string { return i.server.Name }
func (i item) Description() string {
	statusIcon := "🔴"
	switch i.server.Status {
	case "online":
		statusIcon = "🟢"
	case "paused":
		statusIcon = "🟡"
	}
	return fmt.Sprintf("%s %s | %s | %d/%d players | %dms | code %s",
		statusIcon, i.server.Status, i.server.Game,
		len(i.server.Players), i.server.MaxPlayers, i.server.Ping, i.server.JoinCode)
}
func (i item) FilterValue() string { return i.server.Name + " " + i.server.Game + " " + i.server.Status }

type listKeyMap struct {
	start   key.Binding
	pause   key.Binding
	restart key.Binding
	refresh key.Binding
}

func newListKeyMap() *listKeyMap {
	return &listKeyMap{
		start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		pause: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "pause"),
		),
		restart: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "restart"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

type listModel struct {
	list    list.Model
	client  *sdk.Client
	adminID string
	keys    *listKeyMap
	choice  *sdk.Server
}

func (m listModel) Init() tea.Cmd {
	return nil
}

type statusMsg string
type serverListMsg []sdk.Server

func (m listModel) control(action string) tea.Cmd {
	i, ok := m.list.SelectedItem().(item)
	if !ok {
		return nil
	}
	return tea.Batch(
		func() tea.Msg {
			if err := m.client.ControlServer(i.server.ID, m.adminID, action); err != nil {
				return statusMsg(fmt.Sprintf("Error sending %s to %s: %v", action, i.server.Name, err))
			}
			return statusMsg(fmt.Sprintf("Sent %s to %s", action, i.server.Name))
		},
		m.list.NewStatusMessage(statusStyle.Render(fmt.Sprintf("%s %s...", action, i.server.Name))),
	)
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.start):
			return m, m.control("start")
		case key.Matches(msg, m.keys.pause):
			return m, m.control("pause")
		case key.Matches(msg, m.keys.restart):
			return m, m.control("restart")
		case key.Matches(msg, m.keys.refresh):
			return m, refreshList(m.client)
		case msg.String() == "enter":
			i, ok := m.list.SelectedItem().(item)
			if ok {
				m.choice = &i.server
				return m, tea.Quit
			}
		}
	case statusMsg:
		cmd := m.list.NewStatusMessage(statusStyle.Render(string(msg)))
		return m, tea.Batch(cmd, refreshList(m.client))
	case serverListMsg:
		var items []list.Item
		for _, s := range msg {
			items = append(items, item{server: s})
		}
		cmd := m.list.SetItems(items)
		return m, cmd
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m listModel) View() string {
	return docStyle.Render(m.list.View())
}

func refreshList(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		servers, err := client.ListServers()
		if err != nil {
			return nil
		}
		return serverListMsg(servers)
	}
}

// RunServerList shows the interactive fleet dashboard. Control actions are
// sent with adminID as the acting account.
func RunServerList(client *sdk.Client, adminID string) {
	servers, err := client.ListServers()
	if err != nil {
		fmt.Printf("Error listing servers: %v\n", err)
		return
	}

	var items []list.Item
	for _, s := range servers {
		items = append(items, item{server: s})
	}

	keys := newListKeyMap()
	delegate := list.NewDefaultDelegate()

	l := list.New(items, delegate, 0, 0)
	l.Title = "Fleet"
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.start, keys.pause, keys.restart, keys.refresh}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.start, keys.pause, keys.restart, keys.refresh}
	}

	m := listModel{
		list:    l,
		client:  client,
		adminID: adminID,
		keys:    keys,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		fmt.Printf("Error running dashboard: %v\n", err)
		return
	}

	if m, ok := finalModel.(listModel); ok && m.choice != nil {
		fmt.Println("\nSelected server:")
		fmt.Printf("%s %s\n", detailKeyStyle.Render("Name:"), m.choice.Name)
		fmt.Printf("%s %s\n", detailKeyStyle.Render("ID:"), m.choice.ID)
		fmt.Printf("%s %s\n", detailKeyStyle.Render("Game:"), m.choice.Game)
		fmt.Printf("%s %s\n", detailKeyStyle.Render("Status:"), m.choice.Status)
		fmt.Printf("%s %s:%d\n", detailKeyStyle.Render("Address:"), m.choice.Address, m.choice.Port)
		fmt.Printf("%s %s\n", detailKeyStyle.Render("Join link:"), m.choice.JoinLink)
		fmt.Printf("%s %s\n", detailKeyStyle.Render("Join code:"), m.choice.JoinCode)
	}
}
