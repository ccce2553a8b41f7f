package document

import (
	"context"
	"testing"
	"time"

	"github.com/sloked/sloked/internal/encoding"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/pipe"
)

func TestNotifyServiceReportsCommittedLine(t *testing.T) {
	set := NewSet()
	doc := set.OpenDocument("", nil, encoding.UTF8)
	server := named.NewServer()
	if err := server.Register("/document/notify", NewNotifyService(set)); err != nil {
		t.Fatal(err)
	}
	if err := server.Register("/document/cursor", NewCursorService(set)); err != nil {
		t.Fatal(err)
	}

	notifyPipe, err := server.Connect("/document/notify")
	if err != nil {
		t.Fatal(err)
	}
	defer notifyPipe.Close()
	if err := notifyPipe.Write(connectParams(map[string]kgr.Value{
		"documentId": kgr.String(doc.ID.String()),
	})); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	cursorPipe, _ := server.Connect("/document/cursor")
	cursor := pipe.NewClient(cursorPipe)
	ctx := context.Background()
	if _, err := cursor.Invoke(ctx, "connect", connectParams(map[string]kgr.Value{
		"documentId": kgr.String(doc.ID.String()),
	})); err != nil {
		t.Fatal(err)
	}
	if _, err := cursor.Invoke(ctx, "insert", connectParams(map[string]kgr.Value{
		"text": kgr.String("hi"),
	})); err != nil {
		t.Fatal(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	msg, ok := notifyPipe.ReadWait(waitCtx)
	if !ok {
		t.Fatal("expected a notification after the insert committed")
	}
	lineVal, _ := msg.AsObject().Get("line")
	if lineVal.AsInt() != 0 {
		t.Fatalf("expected notification for line 0, got %d", lineVal.AsInt())
	}
}

func TestNotifyServiceClosesOnUnknownDocument(t *testing.T) {
	set := NewSet()
	server := named.NewServer()
	if err := server.Register("/document/notify", NewNotifyService(set)); err != nil {
		t.Fatal(err)
	}

	notifyPipe, err := server.Connect("/document/notify")
	if err != nil {
		t.Fatal(err)
	}
	defer notifyPipe.Close()
	if err := notifyPipe.Write(connectParams(map[string]kgr.Value{
		"documentId": kgr.String("00000000-0000-0000-0000-000000000000"),
	})); err != nil {
		t.Fatal(err)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, ok := notifyPipe.ReadWait(waitCtx); ok {
		t.Fatal("expected the pipe to close for an unknown document id")
	}
}
