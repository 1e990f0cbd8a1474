package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users                 { return &users{db: s.db} }
func (s *pgStore) Organizations() store.Organizations { return &organizations{db: s.db} }
func (s *pgStore) Services() store.Services           { return &services{db: s.db} }
func (s *pgStore) Contracts() store.Contracts         { return &contracts{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap performs a connectivity check to ensure Postgres is reachable.
// Schema setup is handled by compose migrations; this is a fast ping only.
func Bootstrap(ctx context.Context, dsn string) error {
	if dsn == "" {
		return nil // No DSN configured, skip bootstrap
	}

	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.PingContext(ctx)
}

// Migrate applies the schema. Used by integration tests and local setups
// that run without the compose migration job.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, ddl)
	return err
}

const ddl = `
CREATE TABLE IF NOT EXISTS users (
    username      TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    role          TEXT NOT NULL,
    api_key       TEXT NOT NULL UNIQUE,
    status        TEXT NOT NULL DEFAULT 'ACTIVE',
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS organizations (
    org_id        TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    owner         TEXT NOT NULL,
    members       JSONB NOT NULL DEFAULT '[]',
    api_keys      JSONB NOT NULL DEFAULT '[]',
    webhook_url   TEXT,
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS organizations_api_keys_idx ON organizations USING gin (api_keys);
CREATE TABLE IF NOT EXISTS services (
    service_id    TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    description   TEXT,
    features      JSONB NOT NULL DEFAULT '[]',
    plans         JSONB NOT NULL DEFAULT '[]',
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS contracts (
    contract_id      TEXT PRIMARY KEY,
    org_id           TEXT NOT NULL REFERENCES organizations(org_id) ON DELETE CASCADE,
    service_id       TEXT NOT NULL REFERENCES services(service_id) ON DELETE CASCADE,
    plan_name        TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'ACTIVE',
    creation_time    TIMESTAMPTZ NOT NULL DEFAULT now(),
    termination_time TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS contracts_org_idx ON contracts(org_id);
`

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	var created time.Time
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (username, email, role, api_key, status)
        VALUES ($1,$2,$3,$4,'ACTIVE')
        RETURNING creation_time
    `, m.Username, m.Email, m.Role, m.APIKey)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.Status = "ACTIVE"
	out.CreationTime = created
	return &out, nil
}

func (u *users) Get(ctx context.Context, username string) (*model.User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
        SELECT username, email, role, api_key, status, creation_time
        FROM users WHERE username=$1
    `, username))
}

func (u *users) GetByAPIKey(ctx context.Context, key string) (*model.User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
        SELECT username, email, role, api_key, status, creation_time
        FROM users WHERE api_key=$1
    `, key))
}

func (u *users) scanOne(row *sql.Row) (*model.User, error) {
	var out model.User
	if err := row.Scan(&out.Username, &out.Email, &out.Role, &out.APIKey, &out.Status, &out.CreationTime); err != nil {
		return nil, notFound(err)
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
		var m model.User
		if err := rows.Scan(&m.Username, &m.Email, &m.Role, &m.APIKey, &m.Status, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (u *users) Delete(ctx context.Context, username string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE username=$1`, username)
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
	var created time.Time
	row := o.db.QueryRowContext(ctx, `
        INSERT INTO organizations (org_id, name, owner, members, api_keys, webhook_url)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING creation_time
    `, id, m.Name, m.Owner, members, keys, m.WebhookURL)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.OrgID = id
	out.CreationTime = created
	return &out, nil
}

func (o *organizations) GetByID(ctx context.Context, orgID string) (*model.Organization, error) {
	return scanOrg(o.db.QueryRowContext(ctx, `
        SELECT org_id, name, owner, members, api_keys, webhook_url, creation_time
        FROM organizations WHERE org_id=$1
    `, orgID))
}

func (o *organizations) GetByAPIKey(ctx context.Context, key string) (*model.Organization, *model.OrgAPIKey, error) {
	match, err := json.Marshal([]map[string]string{{"key": key}})
	if err != nil {
		return nil, nil, err
	}
	org, err := scanOrg(o.db.QueryRowContext(ctx, `
        SELECT org_id, name, owner, members, api_keys, webhook_url, creation_time
        FROM organizations WHERE api_keys @> $1
    `, string(match)))
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
		org, err := scanOrgRows(rows)
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
        UPDATE organizations SET name=$2, owner=$3, members=$4, api_keys=$5, webhook_url=$6
        WHERE org_id=$1
    `, m.OrgID, m.Name, m.Owner, members, keys, m.WebhookURL)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return o.GetByID(ctx, m.OrgID)
}

func (o *organizations) Delete(ctx context.Context, orgID string) error {
	res, err := o.db.ExecContext(ctx, `DELETE FROM organizations WHERE org_id=$1`, orgID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func marshalOrgJSON(m *model.Organization) (members, keys []byte, err error) {
	ms := m.Members
	if ms == nil {
		ms = []model.OrgMember{}
	}
	ks := m.APIKeys
	if ks == nil {
		ks = []model.OrgAPIKey{}
	}
	if members, err = json.Marshal(ms); err != nil {
		return nil, nil, err
	}
	if keys, err = json.Marshal(ks); err != nil {
		return nil, nil, err
	}
	return members, keys, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrg(row *sql.Row) (*model.Organization, error) {
	org, err := scanOrgRows(row)
	if err != nil {
		return nil, notFound(err)
	}
	return org, nil
}

func scanOrgRows(row rowScanner) (*model.Organization, error) {
	var out model.Organization
	var members, keys []byte
	if err := row.Scan(&out.OrgID, &out.Name, &out.Owner, &members, &keys, &out.WebhookURL, &out.CreationTime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(members, &out.Members); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(keys, &out.APIKeys); err != nil {
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
	var created time.Time
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO services (service_id, name, description, features, plans)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING creation_time
    `, id, m.Name, m.Description, features, plans)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.ServiceID = id
	out.CreationTime = created
	return &out, nil
}

func (s *services) GetByID(ctx context.Context, serviceID string) (*model.Service, error) {
	svc, err := scanService(s.db.QueryRowContext(ctx, `
        SELECT service_id, name, description, features, plans, creation_time
        FROM services WHERE service_id=$1
    `, serviceID))
	if err != nil {
		return nil, notFound(err)
	}
	return svc, nil
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
        UPDATE services SET name=$2, description=$3, features=$4, plans=$5
        WHERE service_id=$1
    `, m.ServiceID, m.Name, m.Description, features, plans)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return s.GetByID(ctx, m.ServiceID)
}

func (s *services) Delete(ctx context.Context, serviceID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE service_id=$1`, serviceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func marshalServiceJSON(m *model.Service) (features, plans []byte, err error) {
	fs := m.Features
	if fs == nil {
		fs = []model.Feature{}
	}
	ps := m.Plans
	if ps == nil {
		ps = []model.PricingPlan{}
	}
	if features, err = json.Marshal(fs); err != nil {
		return nil, nil, err
	}
	if plans, err = json.Marshal(ps); err != nil {
		return nil, nil, err
	}
	return features, plans, nil
}

func scanService(row rowScanner) (*model.Service, error) {
	var out model.Service
	var features, plans []byte
	if err := row.Scan(&out.ServiceID, &out.Name, &out.Description, &features, &plans, &out.CreationTime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &out.Features); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plans, &out.Plans); err != nil {
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
	var created time.Time
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO contracts (contract_id, org_id, service_id, plan_name, status)
        VALUES ($1,$2,$3,$4,'ACTIVE')
        RETURNING creation_time
    `, id, m.OrgID, m.ServiceID, m.PlanName)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.ContractID = id
	out.Status = model.ContractActive
	out.CreationTime = created
	return &out, nil
}

func (c *contracts) GetByID(ctx context.Context, contractID string) (*model.Contract, error) {
	m, err := scanContract(c.db.QueryRowContext(ctx, `
        SELECT contract_id, org_id, service_id, plan_name, status, creation_time, termination_time
        FROM contracts WHERE contract_id=$1
    `, contractID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (c *contracts) ListByOrg(ctx context.Context, orgID string) ([]*model.Contract, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT contract_id, org_id, service_id, plan_name, status, creation_time, termination_time
        FROM contracts WHERE org_id=$1 ORDER BY creation_time
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
	m, err := scanContract(c.db.QueryRowContext(ctx, `
        SELECT contract_id, org_id, service_id, plan_name, status, creation_time, termination_time
        FROM contracts WHERE org_id=$1 AND service_id=$2 AND status='ACTIVE'
    `, orgID, serviceID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (c *contracts) Update(ctx context.Context, m *model.Contract) (*model.Contract, error) {
	res, err := c.db.ExecContext(ctx, `
        UPDATE contracts SET plan_name=$2, status=$3, termination_time=$4
        WHERE contract_id=$1
    `, m.ContractID, m.PlanName, m.Status, m.TerminationTime)
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
	if err := row.Scan(&out.ContractID, &out.OrgID, &out.ServiceID, &out.PlanName, &out.Status, &out.CreationTime, &out.TerminationTime); err != nil {
		return nil, err
	}
	return &out, nil
}
