package cache

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/molsim-ai/molsim/pkg/cache/memory"
	"github.com/molsim-ai/molsim/pkg/cache/postgres"
	"github.com/molsim-ai/molsim/pkg/cache/redis"
	"github.com/molsim-ai/molsim/pkg/cache/sqlite"
)

// Open returns the store named by a connection string. The scheme selects
// the backend; an empty string disables caching. When frontEntries is
// positive a persistent backend gets an LRU read tier of that size.
func Open(ctx context.Context, conn string, frontEntries int) (Store, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return Disabled{}, nil
	}

	var (
		s   Store
		err error
	)
	switch {
	case strings.HasPrefix(conn, "sqlite://"):
		s, err = sqlite.New(strings.TrimPrefix(conn, "sqlite://"))
	case strings.HasPrefix(conn, "file:"):
		s, err = sqlite.New(conn)
	case strings.HasPrefix(conn, "postgres://"), strings.HasPrefix(conn, "postgresql://"):
		s, err = postgres.New(ctx, conn)
	case strings.HasPrefix(conn, "redis://"), strings.HasPrefix(conn, "rediss://"):
		s, err = redis.New(ctx, conn)
	case strings.HasPrefix(conn, "memory://"):
		size, perr := memorySize(conn)
		if perr != nil {
			return nil, perr
		}
		return memory.New(size)
	default:
		return nil, fmt.Errorf("unsupported cache store %q", redact(conn))
	}
	if err != nil {
		return nil, err
	}

	if frontEntries > 0 {
		t, err := NewTiered(s, frontEntries)
		if err != nil {
			s.Close()
			return nil, err
		}
		return t, nil
	}
	return s, nil
}

func memorySize(conn string) (int, error) {
	u, err := url.Parse(conn)
	if err != nil {
		return 0, fmt.Errorf("parse memory store url: %w", err)
	}
	raw := u.Query().Get("size")
	if raw == "" {
		return memory.DefaultSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("memory store size must be a positive integer, got %q", raw)
	}
	return n, nil
}

// redact strips credentials before a connection string reaches logs.
func redact(conn string) string {
	u, err := url.Parse(conn)
	if err != nil || u.User == nil {
		return conn
	}
	u.User = url.User("xxx")
	return u.String()
}
