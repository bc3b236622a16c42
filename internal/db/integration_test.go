package db_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ramqload/internal/db"
	"github.com/gyeh/ramqload/internal/ingest"
	"github.com/gyeh/ramqload/internal/load"
	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/validate"
)

const (
	testPort     = 15433
	testDB       = "ramqtest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var (
	testDSN string
	pg      *embeddedpostgres.EmbeddedPostgres
)

func TestMain(m *testing.M) {
	if os.Getenv("RAMQLOAD_PG_TESTS") != "1" {
		fmt.Fprintln(os.Stderr, "SKIP: set RAMQLOAD_PG_TESTS=1 to run Postgres integration tests")
		os.Exit(0)
	}

	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)

	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}
	os.Exit(code)
}

// setupDB drops the schema, applies migrations and returns a store.
func setupDB(t *testing.T) *db.PGStore {
	t.Helper()
	ctx := context.Background()

	pool, err := db.NewPool(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, "DROP SCHEMA IF EXISTS ramq CASCADE"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	if _, err := db.ApplyMigrations(ctx, pool, zerolog.Nop()); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return db.NewStore(pool)
}

func fixtureSources() []ingest.Source {
	var out []ingest.Source
	for _, k := range model.AllKinds {
		out = append(out, ingest.Source{
			Kind:   k,
			Path:   filepath.Join("..", "..", "testdata", "ramq", string(k)+".xml"),
			Format: ingest.FormatXML,
		})
	}
	return out
}

func count(t *testing.T, pool *pgxpool.Pool, table string) int64 {
	t.Helper()
	var n int64
	if err := pool.QueryRow(context.Background(), "SELECT count(*) FROM ramq."+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestMigrationsIdempotent(t *testing.T) {
	st := setupDB(t)
	applied, err := db.ApplyMigrations(context.Background(), st.Pool(), zerolog.Nop())
	if err != nil {
		t.Fatalf("second ApplyMigrations: %v", err)
	}
	if applied != 0 {
		t.Errorf("second run applied %d migrations, want 0", applied)
	}
}

func TestEndToEnd(t *testing.T) {
	st := setupDB(t)
	ctx := context.Background()

	p := ingest.New(st, st, zerolog.Nop(), ingest.Options{
		AsOf:        model.NewDate(2024, time.April, 1),
		LoadTimeout: 30 * time.Second,
	})
	summary, err := p.Run(ctx, fixtureSources())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Success() {
		t.Fatalf("run failed: %+v", summary.Failed())
	}

	t.Run("table_counts", func(t *testing.T) {
		want := map[string]int64{
			"billing_codes":        2,
			"specialties":          2,
			"context_elements":     3,
			"explanatory_messages": 2,
			"diagnostic_codes":     2,
			"location_codes":       2,
			"establishments":       2,
		}
		for table, n := range want {
			if got := count(t, st.Pool(), table); got != n {
				t.Errorf("%s: got %d rows, want %d", table, got, n)
			}
		}
	})

	t.Run("job_status", func(t *testing.T) {
		jobs, err := st.Jobs(ctx, summary.RunID)
		if err != nil {
			t.Fatalf("Jobs: %v", err)
		}
		if len(jobs) != len(model.AllKinds) {
			t.Fatalf("got %d jobs, want %d", len(jobs), len(model.AllKinds))
		}
		for _, j := range jobs {
			if j.State != model.StateCommitted {
				t.Errorf("%s: state %s", j.Kind, j.State)
			}
			if j.Kind == model.KindBillingCodes && (j.Inserted != 2 || j.Rejected != 3) {
				t.Errorf("billing_codes: inserted=%d rejected=%d", j.Inserted, j.Rejected)
			}
		}
	})

	t.Run("dangling", func(t *testing.T) {
		if len(summary.Dangling) != 1 || summary.Dangling[0].BillingCode != "99999" {
			t.Errorf("dangling: %+v", summary.Dangling)
		}
		rep, err := validate.Validate(ctx, st)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if rep.LinksChecked != 5 {
			t.Errorf("links checked: %d, want 5", rep.LinksChecked)
		}
	})

	t.Run("lookup_billing_code", func(t *testing.T) {
		b, err := st.BillingCode(ctx, "00001")
		if err != nil {
			t.Fatalf("BillingCode: %v", err)
		}
		if b.Start == nil || b.Start.String() != "2020-01-01" || b.End != nil {
			t.Errorf("window: %+v", b.Window)
		}
		if len(b.SpecialistRoles) == 0 {
			t.Error("specialist roles not round-tripped")
		}
		if _, err := st.BillingCode(ctx, "nope"); err == nil {
			t.Error("expected not found")
		}
	})

	t.Run("lookup_establishment_by_alternate", func(t *testing.T) {
		e, err := st.Establishment(ctx, "23457")
		if err != nil {
			t.Fatalf("Establishment: %v", err)
		}
		if e.IDLieuPhys != "23456" || e.IsActive {
			t.Errorf("got %s active=%t", e.IDLieuPhys, e.IsActive)
		}
	})

	t.Run("rerun_is_idempotent", func(t *testing.T) {
		again, err := p.Run(ctx, fixtureSources())
		if err != nil || !again.Success() {
			t.Fatalf("second run: err=%v", err)
		}
		if got := count(t, st.Pool(), "establishments"); got != 2 {
			t.Errorf("establishments after rerun: %d", got)
		}
	})
}

func TestLoadRollbackKeepsPriorRows(t *testing.T) {
	st := setupDB(t)
	ctx := context.Background()
	l := load.New(st, 10*time.Second, zerolog.Nop())

	set := func(codes ...string) model.TableRows {
		rows := make([]model.Record, len(codes))
		for i, c := range codes {
			rows[i] = model.DiagnosticCode{Code: c, Classification: model.ClassificationICD10}
		}
		return model.TableRows{Table: model.DiagnosticCodesTable, Rows: rows}
	}

	if res := l.Replace(ctx, model.KindDiagnosticCodes, set("A00", "B01")); res.Err != nil {
		t.Fatalf("first load: %v", res.Err)
	}
	// The duplicate key makes COPY fail partway through.
	res := l.Replace(ctx, model.KindDiagnosticCodes, set("C01", "C02", "C01"))
	if res.Err == nil {
		t.Fatal("expected duplicate key failure")
	}
	if res.Failed != 3 {
		t.Errorf("failed = %d, want 3", res.Failed)
	}
	if got := count(t, st.Pool(), "diagnostic_codes"); got != 2 {
		t.Errorf("diagnostic_codes after rollback: %d rows, want 2", got)
	}
}
