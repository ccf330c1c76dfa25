//go:build linux

package ptt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	portalService       = "org.freedesktop.portal.Desktop"
	portalPath          = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	shortcutsIface      = "org.freedesktop.portal.GlobalShortcuts"
	requestIface        = "org.freedesktop.portal.Request"
	sessionIface        = "org.freedesktop.portal.Session"
	portalShortcutID    = "farmchat_record"
	portalRequestWindow = 45 * time.Second
)

var errNoConn = errors.New("portal connection is not open")

// portalBackend listens for GlobalShortcuts signals. It is the only way to
// see global key transitions on Wayland.
type portalBackend struct {
	conn    *dbus.Conn
	session dbus.ObjectPath
}

type portalShortcut struct {
	ID      string
	Details map[string]dbus.Variant
}

func newPortalBackend(b Binding) (Backend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), portalRequestWindow)
	defer cancel()
	session, err := createPortalSession(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := bindPortalShortcut(ctx, conn, session, portalTrigger(b.Text)); err != nil {
		_ = closePortalSession(conn, session)
		_ = conn.Close()
		return nil, err
	}
	return &portalBackend{conn: conn, session: session}, nil
}

func (p *portalBackend) Run(ctx context.Context, onDown, onUp func()) error {
	if p == nil || p.conn == nil {
		return errNoConn
	}
	defer func() {
		_ = closePortalSession(p.conn, p.session)
		_ = p.conn.Close()
	}()

	signals := make(chan *dbus.Signal, 32)
	p.conn.Signal(signals)
	defer p.conn.RemoveSignal(signals)

	for _, member := range []string{"Activated", "Deactivated"} {
		opts := []dbus.MatchOption{
			dbus.WithMatchObjectPath(portalPath),
			dbus.WithMatchInterface(shortcutsIface),
			dbus.WithMatchMember(member),
		}
		if err := p.conn.AddMatchSignal(opts...); err != nil {
			return fmt.Errorf("portal match %s: %w", member, err)
		}
		defer func() { _ = p.conn.RemoveMatchSignal(opts...) }()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-signals:
			switch p.classify(sig) {
			case 'd':
				onDown()
			case 'u':
				onUp()
			}
		}
	}
}

// classify maps a signal to 'd' (down), 'u' (up) or 0 when it is not ours.
func (p *portalBackend) classify(sig *dbus.Signal) byte {
	if sig == nil || len(sig.Body) < 2 {
		return 0
	}
	session, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok || session != p.session {
		return 0
	}
	if id, ok := sig.Body[1].(string); !ok || id != portalShortcutID {
		return 0
	}
	switch sig.Name {
	case shortcutsIface + ".Activated":
		return 'd'
	case shortcutsIface + ".Deactivated":
		return 'u'
	}
	return 0
}

func createPortalSession(ctx context.Context, conn *dbus.Conn) (dbus.ObjectPath, error) {
	if conn == nil {
		return "", errNoConn
	}
	options := map[string]dbus.Variant{
		"handle_token":         dbus.MakeVariant(portalToken("request")),
		"session_handle_token": dbus.MakeVariant(portalToken("session")),
	}
	var request dbus.ObjectPath
	call := conn.Object(portalService, portalPath).CallWithContext(ctx, shortcutsIface+".CreateSession", 0, options)
	if call.Err != nil {
		return "", fmt.Errorf("portal CreateSession: %w", call.Err)
	}
	if err := call.Store(&request); err != nil {
		return "", fmt.Errorf("portal CreateSession reply: %w", err)
	}

	code, results, err := waitPortalResponse(ctx, conn, request)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("portal CreateSession denied: response=%d", code)
	}
	raw, ok := results["session_handle"]
	if !ok {
		return "", errors.New("portal CreateSession response missing session_handle")
	}
	return portalSessionPath(raw)
}

func portalSessionPath(raw dbus.Variant) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	switch v := raw.Value().(type) {
	case dbus.ObjectPath:
		path = v
	case string:
		path = dbus.ObjectPath(v)
	default:
		return "", fmt.Errorf("portal session_handle has unexpected type %T", raw.Value())
	}
	if !path.IsValid() {
		return "", fmt.Errorf("portal session_handle %q is not an object path", string(path))
	}
	return path, nil
}

// bindPortalShortcut asks for the preferred trigger first and falls back to
// letting the desktop pick one.
func bindPortalShortcut(ctx context.Context, conn *dbus.Conn, session dbus.ObjectPath, trigger string) error {
	if conn == nil {
		return errNoConn
	}
	if !session.IsValid() {
		return fmt.Errorf("invalid portal session %q", string(session))
	}
	if trigger != "" {
		if err := bindWithTrigger(ctx, conn, session, trigger); err == nil {
			return nil
		}
	}
	return bindWithTrigger(ctx, conn, session, "")
}

func bindWithTrigger(ctx context.Context, conn *dbus.Conn, session dbus.ObjectPath, trigger string) error {
	details := map[string]dbus.Variant{
		"description": dbus.MakeVariant("farmchat voice note"),
	}
	if trigger != "" {
		details["preferred_trigger"] = dbus.MakeVariant(trigger)
	}
	shortcuts := []portalShortcut{{ID: portalShortcutID, Details: details}}
	options := map[string]dbus.Variant{"handle_token": dbus.MakeVariant(portalToken("bind"))}

	var request dbus.ObjectPath
	call := conn.Object(portalService, portalPath).CallWithContext(ctx, shortcutsIface+".BindShortcuts", 0, session, shortcuts, "", options)
	if call.Err != nil {
		return fmt.Errorf("portal BindShortcuts: %w", call.Err)
	}
	if err := call.Store(&request); err != nil {
		return fmt.Errorf("portal BindShortcuts reply: %w", err)
	}
	code, _, err := waitPortalResponse(ctx, conn, request)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("portal BindShortcuts denied (trigger %q): response=%d", trigger, code)
	}
	return nil
}

func waitPortalResponse(ctx context.Context, conn *dbus.Conn, request dbus.ObjectPath) (uint32, map[string]dbus.Variant, error) {
	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(request),
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	}
	if err := conn.AddMatchSignal(opts...); err != nil {
		return 0, nil, fmt.Errorf("portal response match: %w", err)
	}
	defer func() { _ = conn.RemoveMatchSignal(opts...) }()

	for {
		select {
		case <-ctx.Done():
			return 0, nil, fmt.Errorf("portal response: %w", ctx.Err())
		case sig := <-signals:
			if sig == nil || sig.Name != requestIface+".Response" || sig.Path != request {
				continue
			}
			return parsePortalResponse(sig.Body)
		}
	}
}

func parsePortalResponse(body []interface{}) (uint32, map[string]dbus.Variant, error) {
	if len(body) < 2 {
		return 0, nil, errors.New("portal response malformed")
	}
	code, ok := body[0].(uint32)
	if !ok {
		return 0, nil, fmt.Errorf("portal response code type is %T", body[0])
	}
	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		results = map[string]dbus.Variant{}
	}
	return code, results, nil
}

func closePortalSession(conn *dbus.Conn, session dbus.ObjectPath) error {
	if conn == nil || session == "" {
		return nil
	}
	if call := conn.Object(portalService, session).Call(sessionIface+".Close", 0); call.Err != nil {
		return fmt.Errorf("portal session close: %w", call.Err)
	}
	return nil
}

// portalTrigger converts a binding into the portal trigger syntax,
// e.g. "ctrl+shift+r" becomes "<Ctrl><Shift>r". Keys the portal cannot
// express yield "".
func portalTrigger(binding string) string {
	var b strings.Builder
	key := ""
	for _, part := range strings.Split(strings.ToLower(strings.TrimSpace(binding)), "+") {
		switch part = strings.TrimSpace(part); part {
		case "ctrl", "control":
			b.WriteString("<Ctrl>")
		case "shift":
			b.WriteString("<Shift>")
		case "alt":
			b.WriteString("<Alt>")
		case "space":
			key = "space"
		default:
			if len(part) != 1 || part[0] < 'a' || part[0] > 'z' {
				return ""
			}
			key = part
		}
	}
	if key == "" {
		return ""
	}
	return b.String() + key
}

func portalToken(prefix string) string {
	return fmt.Sprintf("farmchat_%s_%d", prefix, time.Now().UnixNano())
}
