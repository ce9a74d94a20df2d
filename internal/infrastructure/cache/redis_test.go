package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis speaks enough RESP2 for PING, GET and SET with EX/PX.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]fakeEntry
}

type fakeEntry struct {
	val string
	exp time.Time
}

func startFakeRedis(t *testing.T) (*fakeRedis, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	f := &fakeRedis{data: map[string]fakeEntry{}}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(c)
		}
	}()
	return f, ln.Addr().String()
}

func (f *fakeRedis) serve(c net.Conn) {
	defer c.Close()
	r := bufio.NewReader(c)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(c, f.reply(args)); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 3 || line[0] != '*' {
		return nil, errors.New("expected array")
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}
	args := make([]string, n)
	for i := range args {
		hdr, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		if len(hdr) < 3 || hdr[0] != '$' {
			return nil, errors.New("expected bulk string")
		}
		l, err := strconv.Atoi(strings.TrimSpace(hdr[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, l+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args[i] = string(buf[:l])
	}
	return args, nil
}

func (f *fakeRedis) reply(args []string) string {
	if len(args) == 0 {
		return "-ERR empty command\r\n"
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch strings.ToUpper(args[0]) {
	case "PING":
		return "+PONG\r\n"
	case "SET":
		if len(args) < 3 {
			return "-ERR wrong number of arguments\r\n"
		}
		e := fakeEntry{val: args[2]}
		for i := 3; i+1 < len(args); i += 2 {
			n, _ := strconv.Atoi(args[i+1])
			switch strings.ToLower(args[i]) {
			case "ex":
				e.exp = time.Now().Add(time.Duration(n) * time.Second)
			case "px":
				e.exp = time.Now().Add(time.Duration(n) * time.Millisecond)
			}
		}
		f.data[args[1]] = e
		return "+OK\r\n"
	case "GET":
		if len(args) != 2 {
			return "-ERR wrong number of arguments\r\n"
		}
		e, ok := f.data[args[1]]
		if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(e.val), e.val)
	default:
		return "-ERR unknown command\r\n"
	}
}

func (f *fakeRedis) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.data))
	for k := range f.data {
		out = append(out, k)
	}
	return out
}

func TestRedisMissHitAndTTL(t *testing.T) {
	ctx := context.Background()
	srv, addr := startFakeRedis(t)
	r, err := NewRedis(ctx, "redis://"+addr)
	require.NoError(t, err)
	defer r.Close()

	_, ok, err := r.Get(ctx, "contacts:u1:jane")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "contacts:u1:jane", `[{"email":"jane@x.com"}]`, time.Minute))
	v, ok, err := r.Get(ctx, "contacts:u1:jane")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"email":"jane@x.com"}]`, v)
	assert.Equal(t, []string{"meetsched:contacts:u1:jane"}, srv.keys())

	require.NoError(t, r.Set(ctx, "short", "v", 50*time.Millisecond))
	_, ok, err = r.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	_, ok, err = r.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires after its ttl")
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "http://not-redis")
	assert.ErrorContains(t, err, "parse redis url")
}
