package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

const pgUniqueViolation = "23505"

var (
	_ core.IdentityStore = (*Postgres)(nil)
	_ core.RuleStore     = (*Postgres)(nil)
)

// Postgres backs both the identity and the rule store with one database.
// Username uniqueness is enforced by the primary key, which is what makes
// the engine's creation-race fallback safe across instances.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection, mainly for tests.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Close() error { return s.db.Close() }

// Migrate creates the schema if it does not exist yet.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		create table if not exists cas_provisioned_users (
			username           text primary key,
			external_id        text not null default '',
			email              text not null default '',
			first_name         text not null default '',
			last_name          text not null default '',
			display_name       text not null default '',
			phone_number       text not null default '',
			department         text not null default '',
			employee_id        text not null default '',
			provision_source   text not null,
			provisioned_at     timestamptz not null,
			last_login_at      timestamptz,
			last_updated_at    timestamptz,
			active             boolean not null default true,
			auto_provisioned   boolean not null default true,
			roles              jsonb not null default '[]',
			groups             jsonb not null default '[]',
			attributes         jsonb not null default '{}'
		);
		create index if not exists idx_users_source on cas_provisioned_users(provision_source);
		create index if not exists idx_users_last_login on cas_provisioned_users(last_login_at);

		create table if not exists cas_provisioning_rules (
			name                text primary key,
			description         text not null default '',
			enabled             boolean not null default true,
			eval_order          int not null default 0,
			source              text not null,
			condition_type      text not null,
			condition_attribute text not null default '',
			condition_value     text not null default '',
			roles               jsonb not null default '[]',
			groups              jsonb not null default '[]',
			created_at          timestamptz not null default now()
		);
	`)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

const identityColumns = `username, external_id, email, first_name, last_name, display_name,
	phone_number, department, employee_id, provision_source, provisioned_at,
	last_login_at, last_updated_at, active, auto_provisioned, roles, groups, attributes`

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*core.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from cas_provisioned_users where username = $1`,
		strings.ToLower(username))
	return scanIdentity(row)
}

func (s *Postgres) Create(ctx context.Context, identity *core.Identity) error {
	roles, groups, attrs, err := encodeIdentitySets(identity)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into cas_provisioned_users (`+identityColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		identity.Username, identity.ExternalID, identity.Email, identity.FirstName,
		identity.LastName, identity.DisplayName, identity.PhoneNumber,
		identity.Department, identity.EmployeeID, string(identity.Source),
		identity.ProvisionedAt, nullTime(identity.LastLoginAt), nullTime(identity.LastUpdatedAt),
		identity.Active, identity.AutoProvisioned, roles, groups, attrs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return core.ErrDuplicateUsername
		}
		return fmt.Errorf("inserting identity: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, identity *core.Identity) error {
	roles, groups, attrs, err := encodeIdentitySets(identity)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update cas_provisioned_users set
			external_id = $2, email = $3, first_name = $4, last_name = $5,
			display_name = $6, phone_number = $7, department = $8,
			employee_id = $9, provision_source = $10, last_login_at = $11,
			last_updated_at = $12, active = $13, auto_provisioned = $14,
			roles = $15, groups = $16, attributes = $17
		where username = $1
	`,
		identity.Username, identity.ExternalID, identity.Email, identity.FirstName,
		identity.LastName, identity.DisplayName, identity.PhoneNumber,
		identity.Department, identity.EmployeeID, string(identity.Source),
		nullTime(identity.LastLoginAt), nullTime(identity.LastUpdatedAt),
		identity.Active, identity.AutoProvisioned, roles, groups, attrs)
	if err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindInactiveSince(ctx context.Context, threshold time.Time) ([]*core.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+identityColumns+` from cas_provisioned_users
		where active and last_login_at is not null and last_login_at < $1
		order by username
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying inactive identities: %w", err)
	}
	return scanIdentities(rows)
}

func (s *Postgres) Search(ctx context.Context, filter core.IdentityFilter) ([]*core.Identity, error) {
	where := []string{"true"}
	var args []any
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		where = append(where, fmt.Sprintf("provision_source = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where = append(where, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(username like $%d or lower(email) like $%d or lower(display_name) like $%d)", n, n, n))
	}

	rows, err := s.db.QueryContext(ctx,
		`select `+identityColumns+` from cas_provisioned_users where `+
			strings.Join(where, " and ")+` order by username`, args...)
	if err != nil {
		return nil, fmt.Errorf("searching identities: %w", err)
	}
	return scanIdentities(rows)
}

const ruleColumns = `name, description, enabled, eval_order, source, condition_type,
	condition_attribute, condition_value, roles, groups`

func (s *Postgres) ListAll(ctx context.Context) ([]core.ProvisioningRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+ruleColumns+` from cas_provisioning_rules order by eval_order asc, created_at asc`)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	return scanRules(rows)
}

// SeedRules inserts configuration-file rules into an empty rule table.
func (s *Postgres) SeedRules(ctx context.Context, rules []core.ProvisioningRule) error {
	for _, rule := range rules {
		roles, err := json.Marshal(rule.Roles)
		if err != nil {
			return fmt.Errorf("encoding rule roles: %w", err)
		}
		groups, err := json.Marshal(rule.Groups)
		if err != nil {
			return fmt.Errorf("encoding rule groups: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			insert into cas_provisioning_rules (`+ruleColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, rule.Name, rule.Description, rule.Enabled, rule.Order, string(rule.Source),
			string(rule.Condition), rule.ConditionAttribute, rule.ConditionValue, roles, groups)
		if err != nil {
			return fmt.Errorf("inserting rule '%s': %w", rule.Name, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*core.Identity, error) {
	var (
		identity    core.Identity
		source      string
		lastLogin   sql.NullTime
		lastUpdated sql.NullTime
		roles       []byte
		groups      []byte
		attrs       []byte
	)
	err := row.Scan(
		&identity.Username, &identity.ExternalID, &identity.Email,
		&identity.FirstName, &identity.LastName, &identity.DisplayName,
		&identity.PhoneNumber, &identity.Department, &identity.EmployeeID,
		&source, &identity.ProvisionedAt, &lastLogin, &lastUpdated,
		&identity.Active, &identity.AutoProvisioned, &roles, &groups, &attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning identity: %w", err)
	}

	identity.Source = core.Source(source)
	identity.LastLoginAt = lastLogin.Time
	identity.LastUpdatedAt = lastUpdated.Time
	if err := decodeInto(roles, &identity.Roles); err != nil {
		return nil, err
	}
	if err := decodeInto(groups, &identity.Groups); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attrs, &identity.Attributes); err != nil {
		return nil, fmt.Errorf("decoding attributes: %w", err)
	}
	return &identity, nil
}

func scanIdentities(rows *sql.Rows) ([]*core.Identity, error) {
	defer rows.Close()
	var identities []*core.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

func scanRules(rows *sql.Rows) ([]core.ProvisioningRule, error) {
	defer rows.Close()
	var rules []core.ProvisioningRule
	for rows.Next() {
		var (
			rule          core.ProvisioningRule
			source        string
			condition     string
			roles, groups []byte
		)
		if err := rows.Scan(&rule.Name, &rule.Description, &rule.Enabled, &rule.Order,
			&source, &condition, &rule.ConditionAttribute, &rule.ConditionValue,
			&roles, &groups); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rule.Source = core.Source(source)
		rule.Condition = core.ConditionType(condition)
		if err := decodeInto(roles, &rule.Roles); err != nil {
			return nil, err
		}
		if err := decodeInto(groups, &rule.Groups); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func encodeIdentitySets(identity *core.Identity) (roles, groups, attrs []byte, err error) {
	if roles, err = json.Marshal(identity.Roles); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding roles: %w", err)
	}
	if groups, err = json.Marshal(identity.Groups); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding groups: %w", err)
	}
	attributes := identity.Attributes
	if attributes == nil {
		attributes = map[string]string{}
	}
	if attrs, err = json.Marshal(attributes); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding attributes: %w", err)
	}
	return roles, groups, attrs, nil
}

func decodeInto(data []byte, set *core.StringSet) error {
	if len(data) == 0 {
		*set = core.NewStringSet()
		return nil
	}
	if err := json.Unmarshal(data, set); err != nil {
		return fmt.Errorf("decoding set: %w", err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
