package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Avicted/farmchat/internal/emoji"
	"github.com/Avicted/farmchat/internal/media"
	"github.com/Avicted/farmchat/internal/message"
	"github.com/Avicted/farmchat/internal/picker"
	"github.com/Avicted/farmchat/internal/securelog"
)

const (
	emojiColumns = 8
	// header, separator, indicator, separator, input and help lines
	chatChromeLines = 6
)

const helpText = "/image <path> attach an image - /play <n> play voice note n - /help this text"

type closeChatMsg struct{}

type chatModel struct {
	app     *app
	session *chatSession
	contact contact

	viewport viewport.Model
	input    textinput.Model
	emoji    *emoji.Picker

	typing   bool
	recState media.State
	elapsed  int
	playing  message.ID
	notice   string
	errMsg   string
	width    int
	height   int
}

func newChatModel(a *app, s *chatSession, c contact, width, height int) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 4096
	input.Width = clampMin(width-8, 20)
	input.Focus()

	m := chatModel{
		app:      a,
		session:  s,
		contact:  c,
		viewport: viewport.New(clampMin(width-4, 10), 1),
		input:    input,
		emoji:    emoji.NewPicker(emoji.Glyphs, emojiColumns),
		width:    width,
		height:   height,
	}
	m.updateLayout()
	m.refreshViewport()
	return m
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) ours(session uint64) bool {
	return m.session != nil && m.session.id == session
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		if m.emoji.IsOpen() {
			if handled := m.handleEmojiKey(msg); handled {
				return m, nil
			}
		}
		switch msg.String() {
		case "enter":
			return m, m.sendCurrentMessage()
		case "esc":
			return m, func() tea.Msg { return closeChatMsg{} }
		case "ctrl+e":
			m.emoji.Toggle()
			m.updateLayout()
			return m, nil
		case "ctrl+r":
			if m.recState == media.StateRecording {
				return m, m.stopRecording()
			}
			return m, m.startRecording()
		case "ctrl+x":
			return m, m.cancelRecording()
		case "ctrl+p":
			return m, m.playLatestVoice()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case storeChangedMsg:
		if m.ours(msg.session) {
			m.refreshViewport()
		}
		return m, nil

	case typingMsg:
		if m.ours(msg.session) {
			m.typing = msg.typing
		}
		return m, nil

	case elapsedMsg:
		if m.ours(msg.session) {
			m.elapsed = msg.seconds
		}
		return m, nil

	case recordStateMsg:
		if m.ours(msg.session) {
			m.recState = msg.state
			if msg.state == media.StateIdle {
				m.elapsed = 0
			}
		}
		return m, nil

	case playbackMsg:
		if m.ours(msg.session) {
			if msg.playing {
				m.playing = msg.id
			} else if m.playing == msg.id {
				m.playing = ""
			}
			m.refreshViewport()
		}
		return m, nil

	case mediaResultMsg:
		if m.ours(msg.session) {
			m.handleMediaResult(msg)
		}
		return m, nil

	case pttMsg:
		if msg.down && m.recState == media.StateIdle {
			return m, m.startRecording()
		}
		if !msg.down && m.recState == media.StateRecording {
			return m, m.stopRecording()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) handleEmojiKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "left":
		m.emoji.Move(-1, 0)
	case "right":
		m.emoji.Move(1, 0)
	case "up":
		m.emoji.Move(0, -1)
	case "down":
		m.emoji.Move(0, 1)
	case "enter":
		m.input.SetValue(emoji.Insert(m.input.Value(), m.emoji.Select()))
		m.input.CursorEnd()
	case "esc", "ctrl+e":
		m.emoji.Close()
		m.updateLayout()
	default:
		return false
	}
	return true
}

func (m *chatModel) sendCurrentMessage() tea.Cmd {
	raw := m.input.Value()
	if trimmed := strings.TrimSpace(raw); isCommand(trimmed) {
		m.input.Reset()
		return m.handleCommand(trimmed)
	}
	if _, ok := m.session.store.AppendLocal(raw); !ok {
		return nil
	}
	m.session.reply.Schedule()
	m.input.Reset()
	m.errMsg = ""
	m.refreshViewport()
	return nil
}

// isCommand reports whether text starts with a known slash command; any
// other text, slashes included, is sent as a message.
func isCommand(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "/help", "/image", "/play":
		return true
	}
	return false
}

func (m *chatModel) handleCommand(raw string) tea.Cmd {
	parts := strings.Fields(raw)
	switch strings.ToLower(parts[0]) {
	case "/help":
		m.notice = helpText
	case "/image":
		path := strings.TrimSpace(strings.TrimPrefix(raw, parts[0]))
		if path == "" {
			m.errMsg = "usage: /image <path>"
			return nil
		}
		return m.sendImage(path)
	case "/play":
		if len(parts) != 2 {
			m.errMsg = "usage: /play <n>"
			return nil
		}
		n, err := strconv.Atoi(parts[1])
		notes := m.voiceNotes()
		if err != nil || n < 1 || n > len(notes) {
			m.errMsg = fmt.Sprintf("no voice note #%s", parts[1])
			return nil
		}
		return m.playVoice(notes[n-1])
	}
	return nil
}

// mediaCmd runs fn off the UI loop; the permission prompt needs the loop
// to stay responsive while fn waits for an answer.
func (m *chatModel) mediaCmd(action string, fn func(ctx context.Context) error) tea.Cmd {
	id := m.session.id
	return func() tea.Msg {
		return mediaResultMsg{session: id, action: action, err: fn(context.Background())}
	}
}

func (m *chatModel) startRecording() tea.Cmd {
	ctrl := m.session.media
	return m.mediaCmd("start recording", ctrl.StartRecording)
}

func (m *chatModel) stopRecording() tea.Cmd {
	ctrl := m.session.media
	return m.mediaCmd("stop recording", func(ctx context.Context) error {
		_, err := ctrl.StopRecording(ctx)
		return err
	})
}

func (m *chatModel) cancelRecording() tea.Cmd {
	if m.recState != media.StateRecording {
		return nil
	}
	ctrl := m.session.media
	return m.mediaCmd("cancel recording", func(context.Context) error {
		return ctrl.CancelRecording()
	})
}

func (m *chatModel) playVoice(msg message.Message) tea.Cmd {
	ctrl := m.session.media
	return m.mediaCmd("play voice note", func(ctx context.Context) error {
		return ctrl.PlayAudio(ctx, msg.AudioRef, msg.ID)
	})
}

func (m *chatModel) playLatestVoice() tea.Cmd {
	notes := m.voiceNotes()
	if len(notes) == 0 {
		m.errMsg = "no voice notes yet"
		return nil
	}
	return m.playVoice(notes[len(notes)-1])
}

func (m *chatModel) sendImage(path string) tea.Cmd {
	ctrl := m.session.media
	return m.mediaCmd("send image", func(ctx context.Context) error {
		_, _, err := ctrl.SendImage(ctx, picker.Path(path), media.DefaultPickOptions())
		return err
	})
}

func (m *chatModel) handleMediaResult(msg mediaResultMsg) {
	if msg.err == nil {
		m.errMsg = ""
		return
	}
	securelog.Error(msg.action, msg.err)
	// these already reached the user as an alert
	if errors.Is(msg.err, media.ErrPermissionDenied) ||
		errors.Is(msg.err, media.ErrPlayback) ||
		errors.Is(msg.err, media.ErrRecording) ||
		errors.Is(msg.err, picker.ErrNotImage) ||
		errors.Is(msg.err, picker.ErrTooLarge) ||
		errors.Is(msg.err, picker.ErrUnsupportedFormat) {
		return
	}
	switch {
	case errors.Is(msg.err, media.ErrAlreadyRecording):
		m.errMsg = "already recording"
	case errors.Is(msg.err, media.ErrNotRecording):
		m.errMsg = "not recording"
	default:
		m.errMsg = msg.action + " failed"
	}
}

func (m chatModel) voiceNotes() []message.Message {
	var notes []message.Message
	for _, msg := range m.session.store.Messages() {
		if msg.Kind == message.KindVoice {
			notes = append(notes, msg)
		}
	}
	return notes
}

func (m *chatModel) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *chatModel) updateLayout() {
	height := m.height - chatChromeLines
	if m.emoji.IsOpen() {
		height -= m.emojiRows() + 1
	}
	m.viewport.Width = clampMin(m.width-4, 10)
	m.viewport.Height = clampMin(height, 1)
	m.input.Width = clampMin(m.width-8, 20)
}

func (m chatModel) emojiRows() int {
	cols := m.emoji.Columns()
	return (len(m.emoji.Glyphs()) + cols - 1) / cols
}

func (m *chatModel) renderMessages() string {
	msgs := m.session.store.Messages()
	if len(msgs) == 0 {
		return labelStyle.Render("  No messages yet. Say hello!")
	}

	var b strings.Builder
	voice := 0
	for _, msg := range msgs {
		sender := "You"
		style := sentMsgStyle
		if msg.Sender == message.SenderRemote {
			sender = m.contact.FirstName()
			style = recvMsgStyle
		}

		body := msg.Text
		switch msg.Kind {
		case message.KindImage:
			body = "[image] " + filepath.Base(msg.AttachmentRef)
		case message.KindVoice:
			voice++
			icon := "▶"
			if msg.ID == m.playing {
				icon = "■ playing"
			}
			body = fmt.Sprintf("[voice #%d %s %s]", voice, msg.DurationLabel, icon)
		}

		lines := formatMessageLines(msg.TimestampLabel, sender, body, m.viewport.Width)
		for i, line := range lines {
			b.WriteString(style.Render(line))
			if i == len(lines)-1 && msg.Sender == message.SenderLocal {
				b.WriteString(" " + deliveryTicks(msg.DeliveryState))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func deliveryTicks(state message.DeliveryState) string {
	switch state {
	case message.StateRead:
		return readTickStyle.Render("✓✓")
	case message.StateDelivered:
		return tickStyle.Render("✓✓")
	default:
		return tickStyle.Render("✓")
	}
}

func (m *chatModel) renderEmojiPicker() string {
	var b strings.Builder
	glyphs := m.emoji.Glyphs()
	cols := m.emoji.Columns()
	for i, g := range glyphs {
		if i%cols == 0 {
			b.WriteString("  ")
		}
		cell := " " + g + " "
		if i == m.emoji.Cursor() {
			cell = emojiCursorStyle.Render(cell)
		}
		b.WriteString(cell)
		if i%cols == cols-1 || i == len(glyphs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString(helpStyle.Render("  arrows: move - enter: insert - esc: close"))
	return b.String()
}

func (m *chatModel) indicator() string {
	switch {
	case m.recState == media.StateRecording:
		return recordingStyle.Render("  * REC "+message.FormatDuration(m.elapsed)) +
			helpStyle.Render("  ctrl+r: send - ctrl+x: cancel")
	case m.typing:
		return typingStyle.Render("  " + m.contact.FirstName() + " is typing...")
	}
	return ""
}

func (m chatModel) View() string {
	var b strings.Builder

	header := fmt.Sprintf("  %s  %s", appNameStyle.Render("<"), headerStyle.Render(m.contact.Name))
	status := offlineStyle.Render(m.contact.status())
	if m.contact.Active {
		status = onlineStyle.Render(m.contact.status())
	}
	gap := max(1, m.width-textWidth(header)-textWidth(status)-2)
	b.WriteString(header + strings.Repeat(" ", gap) + status)
	b.WriteString("\n")
	b.WriteString(separator(m.width))
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.emoji.IsOpen() {
		b.WriteString(m.renderEmojiPicker())
		b.WriteString("\n")
	}
	b.WriteString(m.indicator())
	b.WriteString("\n")

	b.WriteString(separator(m.width))
	b.WriteString("\n")
	b.WriteString(activeInputStyle.Render("  > ") + m.input.View())
	b.WriteString("\n")

	switch {
	case m.errMsg != "":
		b.WriteString(errorStyle.Render("  x " + m.errMsg))
	case m.notice != "":
		b.WriteString(labelStyle.Render("  " + m.notice))
	default:
		b.WriteString(helpStyle.Render("  enter: send - ctrl+e: emoji - ctrl+r: record - ctrl+p: play - /help - esc: back"))
	}
	return b.String()
}

func clampMin(v, minimum int) int {
	if v < minimum {
		return minimum
	}
	return v
}

// trimLine cuts line to max runes, marking the cut with "...".
func trimLine(line string, max int) string {
	runes := []rune(line)
	if max <= 0 || len(runes) <= max {
		return line
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func formatMessageLines(ts, sender, body string, width int) []string {
	prefix := fmt.Sprintf("  [%s] %s: ", ts, sender)
	contPrefix := strings.Repeat(" ", textWidth(prefix))
	available := width - textWidth(prefix)
	if available < 10 {
		available = 10
	}

	var out []string
	for i, line := range strings.Split(body, "\n") {
		wrapped := wrapText(line, available)
		for j, part := range wrapped {
			if i == 0 && j == 0 {
				out = append(out, prefix+part)
				continue
			}
			out = append(out, contPrefix+part)
		}
	}
	return out
}

func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return []string{text}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if textWidth(current)+1+textWidth(word) <= width {
			current = current + " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
