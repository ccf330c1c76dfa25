package main

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Avicted/farmchat/internal/emoji"
	"github.com/Avicted/farmchat/internal/media"
	"github.com/Avicted/farmchat/internal/message"
)

func TestChatOpensWithHistory(t *testing.T) {
	m, _, _ := newTestChat(t, testConfig())
	if got := m.session.store.Len(); got != 3 {
		t.Fatalf("history length = %d, want 3", got)
	}
	content := m.renderMessages()
	if !strings.Contains(content, "maize harvest") || !strings.Contains(content, "Akeem:") {
		t.Fatalf("history not rendered:\n%s", content)
	}
	if !strings.Contains(m.View(), "Active now") {
		t.Fatalf("expected active status in header")
	}
}

func TestSendShowsTypingThenReply(t *testing.T) {
	m, a, clk := newTestChat(t, testConfig())

	m.input.SetValue("Need fertilizer advice")
	m, _ = m.Update(key(tea.KeyEnter))
	if m.input.Value() != "" {
		t.Fatalf("input not reset: %q", m.input.Value())
	}
	msgs := m.session.store.Messages()
	last := msgs[len(msgs)-1]
	if last.Sender != message.SenderLocal || last.Text != "Need fertilizer advice" || last.DeliveryState != message.StateSent {
		t.Fatalf("last message = %+v", last)
	}
	if last.TimestampLabel != "09:30 AM" {
		t.Fatalf("timestamp = %q", last.TimestampLabel)
	}

	clk.Advance(time.Second)
	m = applyEvents(m, a)
	if !m.typing || !strings.Contains(m.View(), "Akeem is typing...") {
		t.Fatalf("expected typing indicator after 1s")
	}

	clk.Advance(2 * time.Second)
	m = applyEvents(m, a)
	if m.typing {
		t.Fatal("typing indicator still shown after reply")
	}
	msgs = m.session.store.Messages()
	reply := msgs[len(msgs)-1]
	if reply.Sender != message.SenderRemote || !strings.HasPrefix(reply.Text, "That sounds excellent!") {
		t.Fatalf("reply = %+v", reply)
	}
	if !strings.Contains(m.renderMessages(), "That sounds excellent!") {
		t.Fatal("reply not rendered")
	}
}

func TestBlankSendIsIgnored(t *testing.T) {
	m, _, clk := newTestChat(t, testConfig())
	m.input.SetValue("   ")
	m, _ = m.Update(key(tea.KeyEnter))
	if m.session.store.Len() != 3 {
		t.Fatalf("blank send appended a message")
	}
	clk.Advance(5 * time.Second)
	if m.session.store.Len() != 3 {
		t.Fatalf("blank send scheduled a reply")
	}
}

func TestCommands(t *testing.T) {
	m, _, _ := newTestChat(t, testConfig())

	m.input.SetValue("/help")
	m, _ = m.Update(key(tea.KeyEnter))
	if m.notice != helpText {
		t.Fatalf("notice = %q", m.notice)
	}

	m.input.SetValue("/play 1")
	m, _ = m.Update(key(tea.KeyEnter))
	if !strings.Contains(m.errMsg, "no voice note #1") {
		t.Fatalf("errMsg = %q", m.errMsg)
	}

	m.input.SetValue("/image")
	m, _ = m.Update(key(tea.KeyEnter))
	if !strings.Contains(m.errMsg, "usage: /image") {
		t.Fatalf("errMsg = %q", m.errMsg)
	}
	if m.session.store.Len() != 3 {
		t.Fatal("commands must not be sent as messages")
	}
}

func TestSlashTextIsSentAsMessage(t *testing.T) {
	m, _, _ := newTestChat(t, testConfig())

	m.input.SetValue("/2 bags of urea")
	m, _ = m.Update(key(tea.KeyEnter))
	msgs := m.session.store.Messages()
	if len(msgs) != 4 || msgs[3].Text != "/2 bags of urea" {
		t.Fatalf("messages = %+v", msgs)
	}
	if m.errMsg != "" || m.input.Value() != "" {
		t.Fatalf("errMsg = %q, input = %q", m.errMsg, m.input.Value())
	}
	if !isCommand(" /PLAY 2") || isCommand("/dance") || isCommand("") {
		t.Fatal("isCommand misclassified input")
	}
}

func TestTrimLineKeepsRunesWhole(t *testing.T) {
	got := trimLine("Ọ̀gbẹ́ni Adéyẹmí", 8)
	if !strings.HasSuffix(got, "...") || !utf8.ValidString(got) {
		t.Fatalf("trimLine = %q", got)
	}
	if got := trimLine("short", 10); got != "short" {
		t.Fatalf("trimLine = %q", got)
	}
	if got := trimLine("héllo", 2); got != "hé" {
		t.Fatalf("trimLine = %q", got)
	}
}

func TestRecordAndSendVoiceNote(t *testing.T) {
	m, a, clk := newTestChat(t, testConfig())

	var cmd tea.Cmd
	m, cmd = m.Update(key(tea.KeyCtrlR))
	res := runCmd(t, cmd).(mediaResultMsg)
	if res.err != nil {
		t.Fatalf("start recording: %v", res.err)
	}
	m, _ = m.Update(res)
	m = applyEvents(m, a)
	if m.recState != media.StateRecording {
		t.Fatalf("state = %v, want recording", m.recState)
	}

	clk.Advance(5 * time.Second)
	m = applyEvents(m, a)
	if m.elapsed != 5 || !strings.Contains(m.View(), "REC 0:05") {
		t.Fatalf("elapsed = %d", m.elapsed)
	}

	m, cmd = m.Update(key(tea.KeyCtrlR))
	res = runCmd(t, cmd).(mediaResultMsg)
	if res.err != nil {
		t.Fatalf("stop recording: %v", res.err)
	}
	m = applyEvents(m, a)
	if m.recState != media.StateIdle || m.elapsed != 0 {
		t.Fatalf("state = %v elapsed = %d after stop", m.recState, m.elapsed)
	}
	notes := m.voiceNotes()
	if len(notes) != 1 || notes[0].DurationLabel != "0:05" || notes[0].AudioRef != "/tmp/note.ogg" {
		t.Fatalf("voice notes = %+v", notes)
	}
	if !strings.Contains(m.renderMessages(), "[voice #1 0:05 ▶]") {
		t.Fatalf("voice note not rendered:\n%s", m.renderMessages())
	}
}

func TestCancelRecordingSendsNothing(t *testing.T) {
	m, a, _ := newTestChat(t, testConfig())

	m, cmd := m.Update(key(tea.KeyCtrlR))
	runCmd(t, cmd)
	m = applyEvents(m, a)

	m, cmd = m.Update(key(tea.KeyCtrlX))
	if res := runCmd(t, cmd).(mediaResultMsg); res.err != nil {
		t.Fatalf("cancel: %v", res.err)
	}
	m = applyEvents(m, a)
	if m.recState != media.StateIdle || len(m.voiceNotes()) != 0 {
		t.Fatalf("cancel left state=%v notes=%d", m.recState, len(m.voiceNotes()))
	}

	if _, cmd := m.Update(key(tea.KeyCtrlX)); cmd != nil {
		t.Fatal("cancel while idle should do nothing")
	}
}

func TestPlaybackTogglesIndicator(t *testing.T) {
	m, a, _ := newTestChat(t, testConfig())
	_, cmd := m.Update(key(tea.KeyCtrlR))
	runCmd(t, cmd)
	m = applyEvents(m, a)
	_, cmd = m.Update(key(tea.KeyCtrlR))
	runCmd(t, cmd)
	m = applyEvents(m, a)

	m, cmd = m.Update(key(tea.KeyCtrlP))
	if res := runCmd(t, cmd).(mediaResultMsg); res.err != nil {
		t.Fatalf("play: %v", res.err)
	}
	m = applyEvents(m, a)
	if m.playing == "" || !strings.Contains(m.renderMessages(), "■ playing") {
		t.Fatalf("expected playing indicator, playing=%q", m.playing)
	}

	m, cmd = m.Update(key(tea.KeyCtrlP))
	runCmd(t, cmd)
	m = applyEvents(m, a)
	if m.playing != "" {
		t.Fatalf("second ctrl+p should stop playback, playing=%q", m.playing)
	}
}

func TestMediaErrorsAlreadyAlertedStayOffStatusLine(t *testing.T) {
	m, _, _ := newTestChat(t, testConfig())
	m.handleMediaResult(mediaResultMsg{session: m.session.id, action: "play voice note", err: media.ErrPlayback})
	if m.errMsg != "" {
		t.Fatalf("errMsg = %q", m.errMsg)
	}
	m.handleMediaResult(mediaResultMsg{session: m.session.id, action: "stop recording", err: media.ErrNotRecording})
	if m.errMsg != "not recording" {
		t.Fatalf("errMsg = %q", m.errMsg)
	}
	m.handleMediaResult(mediaResultMsg{session: m.session.id, action: "send image", err: errors.New("disk")})
	if m.errMsg != "send image failed" {
		t.Fatalf("errMsg = %q", m.errMsg)
	}
}

func TestEmojiPickerInsertsIntoInput(t *testing.T) {
	m, _, _ := newTestChat(t, testConfig())
	m.input.SetValue("Great harvest ")

	m, _ = m.Update(key(tea.KeyCtrlE))
	if !m.emoji.IsOpen() || !strings.Contains(m.View(), "enter: insert") {
		t.Fatal("picker not open")
	}
	m, _ = m.Update(key(tea.KeyRight))
	m, _ = m.Update(key(tea.KeyEnter))
	m, _ = m.Update(key(tea.KeyEnter))
	want := "Great harvest " + emoji.Glyphs[1] + emoji.Glyphs[1]
	if m.input.Value() != want {
		t.Fatalf("input = %q, want %q", m.input.Value(), want)
	}
	if m.session.store.Len() != 3 {
		t.Fatal("enter in the picker must not send")
	}

	m, _ = m.Update(key(tea.KeyEsc))
	if m.emoji.IsOpen() {
		t.Fatal("esc should close the picker")
	}
}

func TestEventsFromOtherSessionsAreIgnored(t *testing.T) {
	m, _, _ := newTestChat(t, testConfig())
	stale := m.session.id + 1
	m, _ = m.Update(typingMsg{session: stale, typing: true})
	m, _ = m.Update(recordStateMsg{session: stale, state: media.StateRecording})
	if m.typing || m.recState != media.StateIdle {
		t.Fatal("stale session event changed the chat")
	}
}

func TestPushToTalkDrivesRecording(t *testing.T) {
	m, a, _ := newTestChat(t, testConfig())

	m, cmd := m.Update(pttMsg{down: true})
	runCmd(t, cmd)
	m = applyEvents(m, a)
	if m.recState != media.StateRecording {
		t.Fatal("ptt down should start recording")
	}
	m, cmd = m.Update(pttMsg{down: false})
	runCmd(t, cmd)
	m = applyEvents(m, a)
	if m.recState != media.StateIdle || len(m.voiceNotes()) != 1 {
		t.Fatalf("ptt up should send the note, state=%v notes=%d", m.recState, len(m.voiceNotes()))
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps", 10)
	if len(lines) != 3 || lines[0] != "the quick" {
		t.Fatalf("wrapText = %q", lines)
	}
	if got := wrapText("   ", 10); len(got) != 1 {
		t.Fatalf("blank wrap = %q", got)
	}
}
