package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/haivivi/nearest/pkg/event"
	"github.com/haivivi/nearest/pkg/scene"
)

var quiet = slog.New(slog.DiscardHandler)

func newTestServer(t *testing.T, groups ...string) (*Server, *httptest.Server) {
	t.Helper()
	sc, err := scene.New(context.Background(), scene.Config{Dims: 2, Groups: groups, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{Scene: sc, Logger: quiet})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
		sc.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func roundTrip(t *testing.T, ws *websocket.Conn, enc event.Encoding, e event.Event) event.Result {
	t.Helper()
	data, err := event.Encode(enc, e)
	if err != nil {
		t.Fatal(err)
	}
	kind := websocket.TextMessage
	if enc == event.Msgpack {
		kind = websocket.BinaryMessage
	}
	if err := ws.WriteMessage(kind, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	gotKind, reply, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotKind != kind {
		t.Errorf("reply frame kind = %d, want %d", gotKind, kind)
	}
	res, err := event.DecodeResult(enc, reply)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return res
}

func TestWebsocketJSONAndMsgpack(t *testing.T) {
	_, ts := newTestServer(t, "enemy_.*", "enemy_boss")
	ws := dial(t, ts)

	res := roundTrip(t, ws, event.JSON, event.Event{
		Op: event.OpEnter, Name: "enemy_boss", ID: "/boss", Point: []float64{1, 0},
	})
	if diff := cmp.Diff(event.Result{Op: event.OpEnter, ID: "/boss", Groups: []int{0, 1}}, res); diff != "" {
		t.Errorf("enter (-want +got):\n%s", diff)
	}

	one := 1
	res = roundTrip(t, ws, event.Msgpack, event.Event{
		Op: event.OpQuery, Point: []float64{0, 0}, Group: 1, K: &one,
	})
	if !cmp.Equal(res.IDs, []string{"/boss"}) || !cmp.Equal(res.Distances, []float64{1}) {
		t.Errorf("msgpack query = %+v", res)
	}

	res = roundTrip(t, ws, event.JSON, event.Event{Op: event.OpQuery, Point: []float64{0, 0}, Group: 2})
	if res.Error == "" || len(res.IDs) != 0 {
		t.Errorf("out-of-range group = %+v", res)
	}
}

func TestWebsocketBadFrame(t *testing.T) {
	_, ts := newTestServer(t, "a")
	ws := dial(t, ts)

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"op":"move"}`)); err != nil {
		t.Fatal(err)
	}
	_, reply, err := ws.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	res, err := event.DecodeResult(event.JSON, reply)
	if err != nil {
		t.Fatal(err)
	}
	if res.Op != event.OpMove || !strings.Contains(res.Error, "move requires") {
		t.Errorf("bad frame reply = %+v", res)
	}

	// The connection stays usable.
	got := roundTrip(t, ws, event.JSON, event.Event{Op: event.OpDump})
	if !strings.HasPrefix(got.Dump, "Nearest2D(") {
		t.Errorf("dump = %q", got.Dump)
	}
}

func TestConcurrentClientsShareOneScene(t *testing.T) {
	s, ts := newTestServer(t, "unit")

	const clients = 8
	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
			ws, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer ws.Close()
			e := event.Event{Op: event.OpEnter, Name: "unit", ID: string(rune('a' + i)), Point: []float64{float64(i), 0}}
			data, _ := event.Encode(event.JSON, e)
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				t.Errorf("write: %v", err)
				return
			}
			if _, _, err := ws.ReadMessage(); err != nil {
				t.Errorf("read: %v", err)
			}
		}()
	}
	wg.Wait()

	res, err := s.Do(context.Background(), event.Event{Op: event.OpQuery, Point: []float64{0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.IDs) != clients {
		t.Errorf("got %d entries, want %d", len(res.IDs), clients)
	}
}

func TestDebugEndpoint(t *testing.T) {
	s, ts := newTestServer(t, "tree")
	s.Do(context.Background(), event.Event{Op: event.OpEnter, Name: "tree_oak", ID: "oak", Point: []float64{1, 1}})

	resp, err := http.Get(ts.URL + "/debug")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := strings.TrimSpace(string(body)); got != `Nearest2D(0:"tree"=1) objects=1` {
		t.Errorf("debug body = %q", got)
	}
}

func TestDoAfterClose(t *testing.T) {
	s, _ := newTestServer(t, "a")
	s.Close()
	if _, err := s.Do(context.Background(), event.Event{Op: event.OpDump}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, "a")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	// Wait until the listener answers.
	url := "http://" + ln.Addr().String() + "/debug"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestNewPanicsWithoutScene(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	New(Config{})
}
