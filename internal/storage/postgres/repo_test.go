package postgres

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"csvpipe/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestSplitFQN(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{"people", pgx.Identifier{"people"}},
		{"public.people", pgx.Identifier{"public", "people"}},
		{" public . people ", pgx.Identifier{"public", "people"}},
		{"public..people", pgx.Identifier{"public", "people"}},
	}
	for _, tt := range tests {
		if got := splitFQN(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitFQN(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDescribeKeepsDetail(t *testing.T) {
	t.Parallel()
	base := &pgconn.PgError{Code: "23502", Detail: "Failing row contains (null)."}
	err := describe("copy", base)
	if !strings.Contains(err.Error(), "Failing row contains") || !strings.Contains(err.Error(), "23502") {
		t.Fatalf("err = %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatal("wrapped PgError lost")
	}
}

func TestNewRepositoryBadDSN(t *testing.T) {
	t.Parallel()
	if _, _, err := NewRepository(context.Background(), Config{DSN: "postgres://%zz"}); err == nil {
		t.Fatal("expected DSN parse error")
	}
}

// Not parallel: swaps the package-level constructor hook.
func TestRegistrationUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Repository{}
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind: "postgres", DSN: "postgres://u@localhost/db", Table: "public.people",
	})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if gotCfg.Table != "public.people" || gotCfg.DSN != "postgres://u@localhost/db" {
		t.Fatalf("cfg = %+v", gotCfg)
	}
	if w, ok := repo.(*wrappedRepo); !ok || w.Repository != fake {
		t.Fatalf("repo = %T", repo)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not call closeFn")
	}
}

func TestCopyFromEmptyIsNoop(t *testing.T) {
	t.Parallel()
	r := &Repository{}
	n, err := r.CopyFrom(context.Background(), []string{"a"}, nil)
	if n != 0 || err != nil {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
