package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Avicted/farmchat/internal/media"
)

type appState int

const (
	stateContacts appState = iota
	stateChat
)

type rootModel struct {
	app      *app
	state    appState
	contacts contactsModel
	chat     chatModel
	alerts   []media.Alert
	prompts  []promptMsg
	width    int
	height   int
}

func newRootModel(a *app) rootModel {
	return rootModel{
		app:      a,
		state:    stateContacts,
		contacts: newContactsModel(),
	}
}

func (m rootModel) Init() tea.Cmd {
	return waitForEvent(m.app.bus)
}

func (m rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
		m.height = wsm.Height
		m.contacts, _ = m.contacts.Update(msg)
		if m.state == stateChat {
			m.chat, _ = m.chat.Update(msg)
		}
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		if km.String() == "ctrl+q" {
			m.closeChat()
			for _, p := range m.prompts {
				p.answer <- false
			}
			m.prompts = nil
			m.app.bus.close()
			return m, tea.Quit
		}
		if len(m.prompts) > 0 {
			m.answerPrompt(km)
			return m, nil
		}
		if len(m.alerts) > 0 {
			switch km.String() {
			case "enter", "esc", " ":
				m.alerts = m.alerts[1:]
			}
			return m, nil
		}
	}

	switch msg := msg.(type) {
	case alertMsg:
		m.alerts = append(m.alerts, msg.alert)
		return m, waitForEvent(m.app.bus)

	case promptMsg:
		m.prompts = append(m.prompts, msg)
		return m, waitForEvent(m.app.bus)

	case storeChangedMsg, typingMsg, elapsedMsg, recordStateMsg, playbackMsg, pttMsg:
		var cmd tea.Cmd
		if m.state == stateChat {
			m.chat, cmd = m.chat.Update(msg)
		}
		return m, tea.Batch(cmd, waitForEvent(m.app.bus))

	case openChatMsg:
		session := m.app.openSession()
		m.chat = newChatModel(m.app, session, msg.contact, m.width, m.height)
		m.state = stateChat
		return m, m.chat.Init()

	case closeChatMsg:
		m.closeChat()
		m.state = stateContacts
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case stateContacts:
		m.contacts, cmd = m.contacts.Update(msg)
	case stateChat:
		m.chat, cmd = m.chat.Update(msg)
	}
	return m, cmd
}

func (m *rootModel) answerPrompt(km tea.KeyMsg) {
	var granted bool
	switch km.String() {
	case "y", "enter":
		granted = true
	case "n", "esc":
		granted = false
	default:
		return
	}
	m.prompts[0].answer <- granted
	m.prompts = m.prompts[1:]
}

func (m *rootModel) closeChat() {
	if m.state == stateChat {
		m.chat.session.close()
	}
}

func (m rootModel) View() string {
	if len(m.prompts) > 0 {
		c := m.prompts[0].capability
		return modal("Allow access?", "farmchat would like to use your "+c.String()+".", "y: allow - n: deny", m.width, m.height)
	}
	if len(m.alerts) > 0 {
		a := m.alerts[0]
		return modal(a.Title, a.Body, "enter: ok", m.width, m.height)
	}
	switch m.state {
	case stateChat:
		return m.chat.View()
	default:
		return m.contacts.View()
	}
}
