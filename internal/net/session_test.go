package net

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func pipeSession(t *testing.T, opts SessionOptions) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	s := NewSession(server, 1, opts, zap.NewNop())
	s.Start()
	t.Cleanup(func() {
		s.Close()
		client.Close()
	})
	return s, client
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("place world 1 2 3\r\nworlds\nlast"))
	for _, want := range []string{"place world 1 2 3", "worlds", "last"} {
		got, err := ReadLine(r)
		if err != nil || got != want {
			t.Fatalf("ReadLine = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := ReadLine(r); err == nil {
		t.Fatal("expected EOF")
	}

	long := bufio.NewReaderSize(strings.NewReader(strings.Repeat("x", MaxLineLength+10)+"\n"), 16)
	if _, err := ReadLine(long); err != ErrLineTooLong {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteLineNormalizesNewlines(t *testing.T) {
	var sb strings.Builder
	if err := WriteLine(&sb, "a\nb\r\nc"); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "a\r\nb\r\nc\r\n" {
		t.Fatalf("got %q", sb.String())
	}
}

func TestSessionQueuesCommandsAndReplies(t *testing.T) {
	s, client := pipeSession(t, SessionOptions{})
	go func() { client.Write([]byte("worlds\n")) }()

	select {
	case line := <-s.InQueue:
		if line != "worlds" {
			t.Fatalf("line = %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command not queued")
	}

	s.Send("hello")
	s.FlushOutput()
	r := bufio.NewReader(client)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := ReadLine(r)
	if err != nil || got != "hello" {
		t.Fatalf("reply = %q, %v", got, err)
	}
}

func TestSessionCloseAfterFlush(t *testing.T) {
	s, client := pipeSession(t, SessionOptions{})
	s.Send("bye")
	s.CloseAfterFlush()
	s.FlushOutput()

	r := bufio.NewReader(client)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := ReadLine(r)
	if err != nil || got != "bye" {
		t.Fatalf("reply = %q, %v", got, err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !s.IsClosed() {
		if time.Now().After(deadline) {
			t.Fatal("session not closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionRateLimit(t *testing.T) {
	s, client := pipeSession(t, SessionOptions{CommandsPerSecond: 2, InQueueSize: 8})
	go func() { client.Write([]byte("a\nb\nc\nd\ne\nf\n")) }()
	deadline := time.Now().Add(2 * time.Second)
	for !s.IsClosed() {
		if time.Now().After(deadline) {
			t.Fatal("flooding session not closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
