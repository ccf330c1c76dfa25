package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type contact struct {
	Name    string
	Role    string
	Active  bool
	Preview string
	Time    string
	Unread  int
}

// FirstName is used for the typing indicator.
func (c contact) FirstName() string {
	name := strings.TrimPrefix(c.Name, "Dr. ")
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

func (c contact) status() string {
	if c.Active {
		return "Active now"
	}
	return "Offline"
}

var experts = []contact{
	{Name: "Dr. Akeem", Role: "Ext. Officer", Active: true},
	{Name: "Mama Nkechi", Role: "Supplier", Active: true},
	{Name: "Oluwaseun", Role: "Vet"},
	{Name: "Co-op Group", Role: "Community"},
}

var recentChats = []contact{
	{Name: "Dr. Akeem", Active: true, Preview: "Remember to check the pH levels before applying fertilizer.", Time: "10:30 AM", Unread: 2},
	{Name: "Maize Farmers Co-op", Active: true, Preview: "Meeting scheduled for Friday at the town hall.", Time: "Yesterday"},
	{Name: "Mama Nkechi (Seeds)", Active: true, Preview: "Your order has been dispatched. Expect delivery tomorrow.", Time: "Yesterday"},
	{Name: "AgroSupport", Active: true, Preview: "Ticket #4029 resolved. Check your email for details.", Time: "Mon"},
	{Name: "John (Labor)", Active: true, Preview: "Boss, we are done with the weeding.", Time: "Mon", Unread: 1},
}

type openChatMsg struct {
	contact contact
}

// contactsModel lists the experts row followed by recent chats; the cursor
// walks both.
type contactsModel struct {
	entries []contact
	cursor  int
	width   int
	height  int
}

func newContactsModel() contactsModel {
	entries := make([]contact, 0, len(experts)+len(recentChats))
	entries = append(entries, experts...)
	entries = append(entries, recentChats...)
	return contactsModel{entries: entries}
}

func (m contactsModel) selected() contact {
	return m.entries[m.cursor]
}

func (m contactsModel) Update(msg tea.Msg) (contactsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			c := m.selected()
			c.Unread = 0
			m.entries[m.cursor].Unread = 0
			return m, func() tea.Msg { return openChatMsg{contact: c} }
		}
	}
	return m, nil
}

func (m contactsModel) View() string {
	var b strings.Builder
	b.WriteString("  " + appNameStyle.Render("* farmchat") + "  " + headerStyle.Render("Messages"))
	b.WriteString("\n")
	b.WriteString(separator(m.width))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Experts"))
	b.WriteString("\n")
	for i := range experts {
		b.WriteString(m.renderEntry(i))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  Recent chats"))
	b.WriteString("\n")
	for i := range recentChats {
		b.WriteString(m.renderEntry(len(experts) + i))
		b.WriteString("\n")
	}

	b.WriteString(separator(m.width))
	b.WriteString("\n")
	b.WriteString(centerText(helpStyle.Render("up/down: select - enter: open chat - ctrl+q: quit"), m.width))
	return b.String()
}

func (m contactsModel) renderEntry(i int) string {
	c := m.entries[i]
	cursor := "  "
	nameStyle := labelStyle
	if i == m.cursor {
		cursor = activeInputStyle.Render("> ")
		nameStyle = headerStyle
	}
	dot := offlineStyle.Render("o")
	if c.Active {
		dot = onlineStyle.Render("*")
	}

	if c.Preview == "" {
		return fmt.Sprintf("  %s%s %s %s", cursor, dot, nameStyle.Render(c.Name), labelStyle.Render("- "+c.Role))
	}
	line := fmt.Sprintf("  %s%s %s %s", cursor, dot, nameStyle.Render(c.Name), labelStyle.Render(c.Time))
	if c.Unread > 0 {
		line += " " + unreadStyle.Render(fmt.Sprintf("(%d)", c.Unread))
	}
	preview := trimLine(c.Preview, clampMin(m.width-10, 20))
	return line + "\n      " + subtitleStyle.Render(preview)
}
