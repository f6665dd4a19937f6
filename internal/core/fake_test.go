package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/canvas-etl/internal/config"
	"github.com/JonMunkholm/canvas-etl/internal/logging"
)

type fakePartner struct {
	id  int64
	typ string
}

type companyKey struct {
	affiliate string
	partnerID int64
}

type fakeCompany struct {
	id int64
	Company
}

// fakeState is the content of the fake store.
type fakeState struct {
	nextID    int64
	partners  map[string]fakePartner
	companies map[companyKey]fakeCompany
	employees []Employee
	files     []FileRecord
}

func (s fakeState) clone() fakeState {
	c := fakeState{
		nextID:    s.nextID,
		partners:  make(map[string]fakePartner, len(s.partners)),
		companies: make(map[companyKey]fakeCompany, len(s.companies)),
		employees: append([]Employee(nil), s.employees...),
		files:     append([]FileRecord(nil), s.files...),
	}
	for k, v := range s.partners {
		c.partners[k] = v
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	return c
}

// fakeDB is an in-memory Connector. Only committed state survives a session.
type fakeDB struct {
	data     fakeState
	commits  int
	connects int
	closes   int

	connectErr  error
	failCompany func(Company) error
	failLedger  error
	failCommit  int // fail the nth commit (1-based); 0 never fails
}

func newFakeDB() *fakeDB {
	return &fakeDB{data: fakeState{}.clone()}
}

func (db *fakeDB) Connect(ctx context.Context) (Session, error) {
	db.connects++
	if db.connectErr != nil {
		return nil, db.connectErr
	}
	return &fakeSession{db: db, state: db.data.clone()}, nil
}

type fakeSession struct {
	db    *fakeDB
	state fakeState
}

func (s *fakeSession) ResolvePartner(ctx context.Context, name, typ string) (int64, error) {
	if p, ok := s.state.partners[name]; ok {
		return p.id, nil
	}
	s.state.nextID++
	s.state.partners[name] = fakePartner{id: s.state.nextID, typ: typ}
	return s.state.nextID, nil
}

func (s *fakeSession) ResolveCompany(ctx context.Context, c Company) (int64, error) {
	if s.db.failCompany != nil {
		if err := s.db.failCompany(c); err != nil {
			return 0, err
		}
	}
	key := companyKey{affiliate: c.AffiliateNumber, partnerID: c.PartnerID}
	if existing, ok := s.state.companies[key]; ok {
		return existing.id, nil
	}
	s.state.nextID++
	s.state.companies[key] = fakeCompany{id: s.state.nextID, Company: c}
	return s.state.nextID, nil
}

func (s *fakeSession) EmployeeExists(ctx context.Context, cin string, partnerID int64) (bool, error) {
	for _, e := range s.state.employees {
		if e.CIN == cin && e.PartnerID == partnerID {
			return true, nil
		}
	}
	return false, nil
}

// InsertEmployee enforces the partial unique index on (cin, partner_id).
func (s *fakeSession) InsertEmployee(ctx context.Context, e Employee) error {
	if e.CIN != "" {
		if exists, _ := s.EmployeeExists(ctx, e.CIN, e.PartnerID); exists {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	s.state.employees = append(s.state.employees, e)
	return nil
}

func (s *fakeSession) RecordFile(ctx context.Context, rec FileRecord) error {
	if s.db.failLedger != nil {
		return s.db.failLedger
	}
	s.state.files = append(s.state.files, rec)
	return nil
}

func (s *fakeSession) InRow(ctx context.Context, fn func(Store) error) error {
	snapshot := s.state.clone()
	if err := fn(s); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *fakeSession) Commit(ctx context.Context) error {
	if s.db.failCommit > 0 && s.db.commits+1 == s.db.failCommit {
		s.db.failCommit = 0
		s.state = s.db.data.clone()
		return errors.New("connection reset by peer")
	}
	s.db.data = s.state.clone()
	s.db.commits++
	return nil
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.db.closes++
	return nil
}

// Test helpers

func testCanvas(t *testing.T, types ...config.CanvasType) *config.CanvasTypes {
	t.Helper()
	if len(types) == 0 {
		types = []config.CanvasType{partTypeCanvas()}
	}
	ct, err := config.NewCanvasTypes(types...)
	if err != nil {
		t.Fatalf("NewCanvasTypes() error = %v", err)
	}
	return ct
}

func partTypeCanvas() config.CanvasType {
	return config.CanvasType{
		Key:         "PARTTYPE",
		PartnerName: "Partner One",
		PartnerType: "MUTUELLE",
		Mapping: map[string]string{
			FieldCompanyName: "Nom",
			FieldCIN:         "CIN",
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// logContext returns a context whose logger writes to the returned buffer.
func logContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New("debug", "text", &buf))
	return ctx, &buf
}

func countLevel(logs *bytes.Buffer, level string) int {
	return strings.Count(logs.String(), "level="+level)
}
