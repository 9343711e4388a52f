package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/livetemplate/jsblock"
	"github.com/livetemplate/jsblock/pkg/dom"
	"github.com/livetemplate/jsblock/pkg/editor"
)

// ActionAttach re-attaches a widget to a block, typically after destroy.
// Its only optional argument is an object of option overrides.
const ActionAttach = "attach"

// ActionReady is the first message a session sends; Result lists the
// block ids of the page.
const ActionReady = "ready"

// errRunDisabled is reported for run requests unless running is allowed.
var errRunDisabled = errors.New("running code is disabled on this server (start it with --allow-run)")

// Origins are checked by the upgrader's default same-host policy: a foreign
// page must not be able to run code through a visitor's browser.
var upgrader = websocket.Upgrader{}

// Message is a request from the browser to one block's widget.
type Message struct {
	BlockID string `json:"blockID"`
	Action  string `json:"action"`
	Args    []any  `json:"args,omitempty"`
}

// Reply answers a Message. HTML is the block's current markup: the widget
// container while attached, the original element after destroy.
type Reply struct {
	BlockID string  `json:"blockID,omitempty"`
	Action  string  `json:"action"`
	Result  any     `json:"result,omitempty"`
	HTML    string  `json:"html,omitempty"`
	Events  []Event `json:"events,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Event is a widget notification emitted while a message was handled.
type Event struct {
	Type string `json:"type"`
	Args []any  `json:"args,omitempty"`
}

// Session is one browser connection with its own widgets for one page.
type Session struct {
	server  *Server
	route   *Route
	conn    *websocket.Conn
	writeMu sync.Mutex

	// mu serializes widget access; widgets are not safe for concurrent use.
	mu       sync.Mutex
	registry *jsblock.Registry
	doc      *dom.Document
	blocks   map[string]*dom.Element // block id -> original element
	events   []Event
}

// NewSession mounts route's page into a fresh document and subscribes to
// the events of every widget. conn may be nil for sessions driven directly
// through Handle.
func NewSession(srv *Server, route *Route, conn *websocket.Conn) (*Session, error) {
	if route.Page == nil {
		return nil, fmt.Errorf("page %s is not available: %w", route.FilePath, route.Err)
	}

	reg := jsblock.NewRegistry(jsblock.WithRunner(srv.runner))
	doc, widgets, err := route.Page.Mount(reg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		server:   srv,
		route:    route,
		conn:     conn,
		registry: reg,
		doc:      doc,
		blocks:   make(map[string]*dom.Element, len(widgets)),
	}
	for _, w := range widgets {
		original := w.Original()
		s.blocks[original.ID()] = original
		// Events fire on the editable surface and the original element;
		// the original outlives destroy and re-attach.
		for _, typ := range []string{jsblock.EventRun, jsblock.EventConsole, jsblock.EventReset} {
			original.On(typ, s.record)
		}
	}
	return s, nil
}

func (s *Session) record(ev dom.Event) {
	s.events = append(s.events, Event{Type: ev.Type, Args: ev.Args})
}

// BlockIDs returns the page's block ids, sorted.
func (s *Session) BlockIDs() []string {
	ids := make([]string, 0, len(s.blocks))
	for id := range s.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Handle applies msg to its block and builds the reply.
func (s *Session) Handle(msg Message) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply := Reply{BlockID: msg.BlockID, Action: msg.Action}
	el, ok := s.blocks[msg.BlockID]
	if !ok {
		reply.Error = fmt.Sprintf("unknown block %q", msg.BlockID)
		return reply
	}

	s.events = nil
	res, err := s.dispatch(el, msg)
	reply.Events = s.events
	s.events = nil
	reply.HTML = s.html(el)

	if err != nil {
		reply.Error = err.Error()
		return reply
	}
	if res.IsValue {
		reply.Result = resultValue(res.Value)
	}
	return reply
}

func (s *Session) dispatch(el *dom.Element, msg Message) (jsblock.Result, error) {
	elems := []*dom.Element{el}

	switch msg.Action {
	case jsblock.ActionRun:
		if !s.server.runAllowed() {
			return jsblock.Result{}, errRunDisabled
		}
	case ActionAttach:
		// Start from the options the page gave this block.
		opts, err := jsblock.OptionsFromElement(el, jsblock.DefaultOptions())
		if err != nil {
			return jsblock.Result{}, err
		}
		if len(msg.Args) > 0 {
			overrides, ok := msg.Args[0].(map[string]any)
			if !ok {
				return jsblock.Result{}, fmt.Errorf("%w: attach wants an options object, got %T", jsblock.ErrBadArgument, msg.Args[0])
			}
			if opts, err = jsblock.MergeOptions(opts, overrides); err != nil {
				return jsblock.Result{}, err
			}
		}
		return s.registry.Dispatch(elems, opts)
	case "":
		return jsblock.Result{}, fmt.Errorf("%w: missing action", jsblock.ErrBadArgument)
	}

	return s.registry.Dispatch(elems, append([]any{msg.Action}, msg.Args...)...)
}

// html returns the markup the browser should show for a block.
func (s *Session) html(el *dom.Element) string {
	if w, ok := s.registry.Lookup(el); ok {
		return w.Container().OuterHTML()
	}
	return el.OuterHTML()
}

// resultValue makes getter results JSON friendly.
func resultValue(v any) any {
	if ed, ok := v.(editor.Editor); ok {
		return map[string]any{
			"value":      ed.Value(),
			"readOnly":   ed.ReadOnly(),
			"theme":      ed.Theme(),
			"showGutter": ed.ShowGutter(),
		}
	}
	return v
}

// Close destroys the session's widgets.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, el := range s.blocks {
		if _, ok := s.registry.Lookup(el); !ok {
			continue
		}
		if _, err := s.registry.Invoke([]*dom.Element{el}, jsblock.ActionDestroy); err != nil {
			log.Printf("[WS] Failed to destroy block %s: %v", id, err)
		}
	}
}

func (s *Session) write(data []byte) error {
	if s.conn == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) send(reply Reply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	return s.write(data)
}

// serveWebSocket opens a session for the page named by the "page" query
// parameter ("/" when absent).
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("page")
	if pattern == "" {
		pattern = "/"
	}
	route := s.Route(pattern)
	if route == nil {
		http.Error(w, "Unknown page", http.StatusNotFound)
		return
	}
	if route.Err != nil {
		http.Error(w, route.Err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	sess, err := NewSession(s, route, conn)
	if err != nil {
		log.Printf("[WS] Failed to start session for %s: %v", route.FilePath, err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "failed to load page"))
		return
	}
	defer sess.Close()

	s.RegisterSession(sess)
	defer s.UnregisterSession(sess)

	debug := s.debug()
	if debug {
		log.Printf("[WS] Client connected: %s (%s)", conn.RemoteAddr(), route.Pattern)
	}

	if err := sess.send(Reply{Action: ActionReady, Result: sess.BlockIDs()}); err != nil {
		log.Printf("[WS] Failed to send ready: %v", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close: %v", err)
			}
			break
		}

		if debug {
			log.Printf("[WS] Received: %s", data)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Failed to parse message: %v", err)
			_ = sess.send(Reply{Error: "invalid message: " + err.Error()})
			continue
		}

		reply := sess.Handle(msg)
		if reply.Error != "" && debug {
			log.Printf("[WS] %s %s: %s", msg.BlockID, msg.Action, reply.Error)
		}
		if err := sess.send(reply); err != nil {
			log.Printf("[WS] Failed to send reply: %v", err)
			break
		}
	}

	if debug {
		log.Printf("[WS] Client disconnected: %s", conn.RemoteAddr())
	}
}
