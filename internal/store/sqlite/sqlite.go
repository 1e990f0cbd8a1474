package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// Open opens (or creates) a SQLite database at the given path, enables WAL
// journal mode and applies the schema. Used for the local build target.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a SQLite store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &liteStore{db: db} }

type liteStore struct{ db *sql.DB }

func (s *liteStore) Users() store.Users                 { return &users{db: s.db} }
func (s *liteStore) Organizations() store.Organizations { return &organizations{db: s.db} }
func (s *liteStore) Services() store.Services           { return &services{db: s.db} }
func (s *liteStore) Contracts() store.Contracts         { return &contracts{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *liteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const ddl = `
CREATE TABLE IF NOT EXISTS users (
    username      TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    role          TEXT NOT NULL,
    api_key       TEXT NOT NULL UNIQUE,
    status        TEXT NOT NULL DEFAULT 'ACTIVE',
    creation_time TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS organizations (
    org_id        TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    owner         TEXT NOT NULL,
    members       TEXT NOT NULL DEFAULT '[]',
    api_keys      TEXT NOT NULL DEFAULT '[]',
    webhook_url   TEXT,
    creation_time TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS services (
    service_id    TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    description   TEXT,
    features      TEXT NOT NULL DEFAULT '[]',
    plans         TEXT NOT NULL DEFAULT '[]',
    creation_time TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS contracts (
    contract_id      TEXT PRIMARY KEY,
    org_id           TEXT NOT NULL REFERENCES organizations(org_id) ON DELETE CASCADE,
    service_id       TEXT NOT NULL REFERENCES services(service_id) ON DELETE CASCADE,
    plan_name        TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'ACTIVE',
    creation_time    TEXT NOT NULL,
    termination_time TEXT
);
`

// Timestamps are stored as RFC3339 text; SQLite has no native time type.
const timeLayout = time.RFC3339Nano

func now() string { return time.Now().UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	created := now()
	if _, err := u.db.ExecContext(ctx, `
        INSERT INTO users (username, email, role, api_key, status, creation_time)
        VALUES (?,?,?,?,'ACTIVE',?)
    `, m.Username, m.Email, m.Role, m.APIKey, created); err != nil {
		return nil, err
	}
	out := *m
	out.Status = "ACTIVE"
	out.CreationTime, _ = parseTime(created)
	return &out, nil
}

func (u *users) Get(ctx context.Context, username string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `
        SELECT username, email, role, api_key, status, creation_time
        FROM users WHERE username=?
    `, username))
}

func (u *users) GetByAPIKey(ctx context.Context, key string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `
        SELECT username, email, role, api_key, status, creation_time
        FROM users WHERE api_key=?
    `, key))
}

func scanUser(row rowScanner) (*model.User, error) {
	var out model.User
	var created string
	if err := row.Scan(&out.Username, &out.Email, &out.Role, &out.APIKey, &out.Status, &created); err != nil {
		return nil, notFound(err)
	}
	var err error
	if out.CreationTime, err = parseTime(created); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *users) List(ctx context.Context) ([]*model.User, error) {
	rows, err := u.db.QueryContext(ctx, `
        SELECT username, email, role, api_key, status, creation_time
        FROM users ORDER BY username
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.User
	for rows.Next() {
		m, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (u *users) Delete(ctx context.Context, username string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE username=?`, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Organizations ---

type organizations struct{ db *sql.DB }

func (o *organizations) Create(ctx context.Context, m *model.Organization) (*model.Organization, error) {
	id := m.OrgID
	if id == "" {
		id = uuid.New().String()
	}
	members, keys, err := marshalOrgJSON(m)
	if err != nil {
		return nil, err
	}
	created := now()
	if _, err := o.db.ExecContext(ctx, `
        INSERT INTO organizations (org_id, name, owner, members, api_keys, webhook_url, creation_time)
        VALUES (?,?,?,?,?,?,?)
    `, id, m.Name, m.Owner, members, keys, m.WebhookURL, created); err != nil {
		return nil, err
	}
	out := *m
	out.OrgID = id
	out.CreationTime, _ = parseTime(created)
	return &out, nil
}

func (o *organizations) GetByID(ctx context.Context, orgID string) (*model.Organization, error) {
	return scanOrg(o.db.QueryRowContext(ctx, `
        SELECT org_id, name, owner, members, api_keys, webhook_url, creation_time
        FROM organizations WHERE org_id=?
    `, orgID))
}

func (o *organizations) GetByAPIKey(ctx context.Context, key string) (*model.Organization, *model.OrgAPIKey, error) {
	org, err := scanOrg(o.db.QueryRowContext(ctx, `
        SELECT o.org_id, o.name, o.owner, o.members, o.api_keys, o.webhook_url, o.creation_time
        FROM organizations o
        WHERE EXISTS (
            SELECT 1 FROM json_each(o.api_keys)
            WHERE json_extract(json_each.value, '$.key') = ?
        )
    `, key))
	if err != nil {
		return nil, nil, err
	}
	entry, ok := org.KeyByValue(key)
	if !ok {
		return nil, nil, model.ErrNotFound
	}
	return org, &entry, nil
}

func (o *organizations) List(ctx context.Context) ([]*model.Organization, error) {
	rows, err := o.db.QueryContext(ctx, `
        SELECT org_id, name, owner, members, api_keys, webhook_url, creation_time
        FROM organizations ORDER BY creation_time
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (o *organizations) Update(ctx context.Context, m *model.Organization) (*model.Organization, error) {
	members, keys, err := marshalOrgJSON(m)
	if err != nil {
		return nil, err
	}
	res, err := o.db.ExecContext(ctx, `
        UPDATE organizations SET name=?, owner=?, members=?, api_keys=?, webhook_url=?
        WHERE org_id=?
    `, m.Name, m.Owner, members, keys, m.WebhookURL, m.OrgID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return o.GetByID(ctx, m.OrgID)
}

func (o *organizations) Delete(ctx context.Context, orgID string) error {
	res, err := o.db.ExecContext(ctx, `DELETE FROM organizations WHERE org_id=?`, orgID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func marshalOrgJSON(m *model.Organization) (members, keys string, err error) {
	ms := m.Members
	if ms == nil {
		ms = []model.OrgMember{}
	}
	ks := m.APIKeys
	if ks == nil {
		ks = []model.OrgAPIKey{}
	}
	mb, err := json.Marshal(ms)
	if err != nil {
		return "", "", err
	}
	kb, err := json.Marshal(ks)
	if err != nil {
		return "", "", err
	}
	return string(mb), string(kb), nil
}

func scanOrg(row rowScanner) (*model.Organization, error) {
	var out model.Organization
	var members, keys, created string
	if err := row.Scan(&out.OrgID, &out.Name, &out.Owner, &members, &keys, &out.WebhookURL, &created); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal([]byte(members), &out.Members); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keys), &out.APIKeys); err != nil {
		return nil, err
	}
	var err error
	if out.CreationTime, err = parseTime(created); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Services ---

type services struct{ db *sql.DB }

func (s *services) Create(ctx context.Context, m *model.Service) (*model.Service, error) {
	id := m.ServiceID
	if id == "" {
		id = uuid.New().String()
	}
	features, plans, err := marshalServiceJSON(m)
	if err != nil {
		return nil, err
	}
	created := now()
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO services (service_id, name, description, features, plans, creation_time)
        VALUES (?,?,?,?,?,?)
    `, id, m.Name, m.Description, features, plans, created); err != nil {
		return nil, err
	}
	out := *m
	out.ServiceID = id
	out.CreationTime, _ = parseTime(created)
	return &out, nil
}

func (s *services) GetByID(ctx context.Context, serviceID string) (*model.Service, error) {
	return scanService(s.db.QueryRowContext(ctx, `
        SELECT service_id, name, description, features, plans, creation_time
        FROM services WHERE service_id=?
    `, serviceID))
}

func (s *services) List(ctx context.Context) ([]*model.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT service_id, name, description, features, plans, creation_time
        FROM services ORDER BY name
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *services) Update(ctx context.Context, m *model.Service) (*model.Service, error) {
	features, plans, err := marshalServiceJSON(m)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE services SET name=?, description=?, features=?, plans=?
        WHERE service_id=?
    `, m.Name, m.Description, features, plans, m.ServiceID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return s.GetByID(ctx, m.ServiceID)
}

func (s *services) Delete(ctx context.Context, serviceID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE service_id=?`, serviceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func marshalServiceJSON(m *model.Service) (features, plans string, err error) {
	fs := m.Features
	if fs == nil {
		fs = []model.Feature{}
	}
	ps := m.Plans
	if ps == nil {
		ps = []model.PricingPlan{}
	}
	fb, err := json.Marshal(fs)
	if err != nil {
		return "", "", err
	}
	pb, err := json.Marshal(ps)
	if err != nil {
		return "", "", err
	}
	return string(fb), string(pb), nil
}

func scanService(row rowScanner) (*model.Service, error) {
	var out model.Service
	var features, plans, created string
	if err := row.Scan(&out.ServiceID, &out.Name, &out.Description, &features, &plans, &created); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal([]byte(features), &out.Features); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(plans), &out.Plans); err != nil {
		return nil, err
	}
	var err error
	if out.CreationTime, err = parseTime(created); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Contracts ---

type contracts struct{ db *sql.DB }

func (c *contracts) Create(ctx context.Context, m *model.Contract) (*model.Contract, error) {
	id := m.ContractID
	if id == "" {
		id = uuid.New().String()
	}
	created := now()
	if _, err := c.db.ExecContext(ctx, `
        INSERT INTO contracts (contract_id, org_id, service_id, plan_name, status, creation_time)
        VALUES (?,?,?,?,'ACTIVE',?)
    `, id, m.OrgID, m.ServiceID, m.PlanName, created); err != nil {
		return nil, err
	}
	out := *m
	out.ContractID = id
	out.Status = model.ContractActive
	out.CreationTime, _ = parseTime(created)
	return &out, nil
}

func (c *contracts) GetByID(ctx context.Context, contractID string) (*model.Contract, error) {
	return scanContract(c.db.QueryRowContext(ctx, `
        SELECT contract_id, org_id, service_id, plan_name, status, creation_time, termination_time
        FROM contracts WHERE contract_id=?
    `, contractID))
}

func (c *contracts) ListByOrg(ctx context.Context, orgID string) ([]*model.Contract, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT contract_id, org_id, service_id, plan_name, status, creation_time, termination_time
        FROM contracts WHERE org_id=? ORDER BY creation_time
    `, orgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Contract
	for rows.Next() {
		m, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *contracts) ActiveByOrgAndService(ctx context.Context, orgID, serviceID string) (*model.Contract, error) {
	return scanContract(c.db.QueryRowContext(ctx, `
        SELECT contract_id, org_id, service_id, plan_name, status, creation_time, termination_time
        FROM contracts WHERE org_id=? AND service_id=? AND status='ACTIVE'
    `, orgID, serviceID))
}

func (c *contracts) Update(ctx context.Context, m *model.Contract) (*model.Contract, error) {
	var term *string
	if m.TerminationTime != nil {
		s := m.TerminationTime.UTC().Format(timeLayout)
		term = &s
	}
	res, err := c.db.ExecContext(ctx, `
        UPDATE contracts SET plan_name=?, status=?, termination_time=?
        WHERE contract_id=?
    `, m.PlanName, m.Status, term, m.ContractID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return c.GetByID(ctx, m.ContractID)
}

func scanContract(row rowScanner) (*model.Contract, error) {
	var out model.Contract
	var created string
	var term *string
	if err := row.Scan(&out.ContractID, &out.OrgID, &out.ServiceID, &out.PlanName, &out.Status, &created, &term); err != nil {
		return nil, notFound(err)
	}
	var err error
	if out.CreationTime, err = parseTime(created); err != nil {
		return nil, err
	}
	if out.TerminationTime, err = parseTimePtr(term); err != nil {
		return nil, err
	}
	return &out, nil
}
