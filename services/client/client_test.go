package client

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"robotcode-go/errcode"
	"robotcode-go/services/drive"
	"robotcode-go/services/httpapi"
)

type recDriver struct {
	mu   sync.Mutex
	got  []drive.Action
	stop int
}

func (r *recDriver) Execute(ctx context.Context, a drive.Action) error {
	r.mu.Lock()
	r.got = append(r.got, a)
	r.mu.Unlock()
	return nil
}

func (r *recDriver) Stop() {
	r.mu.Lock()
	r.stop++
	r.mu.Unlock()
}

func TestRequest(t *testing.T) {
	cases := []struct {
		a     drive.Action
		path  string
		query string
	}{
		{drive.Action{Command: drive.CmdDrive, Direction: "forward", Duration: 1500 * time.Millisecond}, "/drive", "direction=forward&duration=1500"},
		{drive.Action{Command: drive.CmdTurn, Direction: "left"}, "/turn", "degree=90&direction=left"},
		{drive.Action{Command: drive.CmdPause, Duration: time.Second}, "/pause", "duration=1000"},
		{drive.Action{Command: drive.CmdSpin, Duration: 250 * time.Millisecond}, "/spin", "duration=250"},
		{drive.Action{Command: drive.CmdFollowLine}, "/follow_line", ""},
		{drive.Action{Command: drive.CmdStop}, "/stop", ""},
	}
	for _, c := range cases {
		path, q := Request(c.a)
		if path != c.path || q.Encode() != c.query {
			t.Fatalf("%+v: got %s?%s", c.a, path, q.Encode())
		}
	}
}

func TestSendRoundTrip(t *testing.T) {
	drv := &recDriver{}
	srv := httptest.NewServer(httpapi.New(drv, nil, nil).Handler())
	defer srv.Close()

	c, err := New(srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sent := []drive.Action{
		{Command: drive.CmdDrive, Direction: "backward", Duration: 400 * time.Millisecond},
		{Command: drive.CmdTurn, Direction: "right", Degrees: 45},
		{Command: drive.CmdStop},
	}
	for _, a := range sent {
		views, err := c.Send(context.Background(), a)
		if err != nil {
			t.Fatalf("send %+v: %v", a, err)
		}
		if len(views) != 1 || views[0].ID == "" {
			t.Fatalf("reply %+v", views)
		}
	}
	drv.mu.Lock()
	defer drv.mu.Unlock()
	if diff := cmp.Diff(sent[:2], drv.got); diff != "" {
		t.Fatalf("executed (-want +got):\n%s", diff)
	}
	if drv.stop != 1 {
		t.Fatalf("stops = %d", drv.stop)
	}
}

func TestSendServerError(t *testing.T) {
	srv := httptest.NewServer(httpapi.New(&recDriver{}, nil, nil).Handler())
	defer srv.Close()
	c, _ := New(srv.URL, nil)

	_, err := c.Send(context.Background(), drive.Action{Command: drive.CmdFollowLine})
	if errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("got %v", err)
	}
	if _, err := c.Distance(context.Background()); errcode.Of(err) != errcode.NotReady {
		t.Fatalf("distance: got %v", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"robot.local", "ftp://robot", "http://[::1"} {
		if _, err := New(u, nil); err == nil {
			t.Fatalf("%q accepted", u)
		}
	}
}
