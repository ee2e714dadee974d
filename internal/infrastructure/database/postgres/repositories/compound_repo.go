package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/KeyIP-Chem/internal/domain/molecule"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

const uniqueViolation = "23505"

// DBTX is the subset of *pgxpool.Pool and pgx.Tx the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// CompoundRepository
// ─────────────────────────────────────────────────────────────────────────────

// CompoundRepository is the PostgreSQL implementation of molecule.Repository.
type CompoundRepository struct {
	db     DBTX
	logger logging.Logger
}

var _ molecule.Repository = (*CompoundRepository)(nil)

// NewCompoundRepository binds the repository to a pool or a transaction.
func NewCompoundRepository(db DBTX, log logging.Logger) *CompoundRepository {
	return &CompoundRepository{db: db, logger: log.Named("compound_repo")}
}

// executor prefers the transaction stored on ctx by postgres.WithTransaction.
func (r *CompoundRepository) executor(ctx context.Context) DBTX {
	if tx, ok := postgres.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

var compoundColumns = []string{
	"id", "name", "smiles", "formula", "atom_count", "bond_count", "properties", "created_at",
}

const selectCompound = `
	SELECT id, name, smiles, formula, atom_count, bond_count, properties, created_at
	FROM compounds`

// ─────────────────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────────────────

func (r *CompoundRepository) Save(ctx context.Context, c *molecule.Compound) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}
	props, err := marshalProperties(c.Properties)
	if err != nil {
		return err
	}

	_, err = r.executor(ctx).Exec(ctx, `
		INSERT INTO compounds (id, name, smiles, formula, atom_count, bond_count, properties, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, c.Name, c.SMILES, c.Formula, c.AtomCount, c.BondCount, props, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(err, errors.ErrCodeMoleculeAlreadyExists, "compound already registered").
				WithDetail(c.SMILES)
		}
		r.logger.Error("insert compound failed", logging.String("id", c.ID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert compound")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// BatchSave bulk-inserts compounds with pgx.CopyFrom.
// ─────────────────────────────────────────────────────────────────────────────

// BatchSave inserts cs with the COPY protocol.  COPY is atomic, so a single
// duplicate rejects the whole batch.
func (r *CompoundRepository) BatchSave(ctx context.Context, cs []*molecule.Compound) error {
	if len(cs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(cs))
	for _, c := range cs {
		id, err := parseID(c.ID)
		if err != nil {
			return err
		}
		props, err := marshalProperties(c.Properties)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			id, c.Name, c.SMILES, c.Formula, c.AtomCount, c.BondCount, props, c.CreatedAt,
		})
	}

	n, err := r.executor(ctx).CopyFrom(ctx, pgx.Identifier{"compounds"}, compoundColumns, pgx.CopyFromRows(rows))
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(err, errors.ErrCodeMoleculeAlreadyExists, "batch contains an already registered compound")
		}
		r.logger.Error("batch insert compounds failed", logging.Int("count", len(cs)), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to batch insert compounds")
	}

	r.logger.Debug("batch insert compounds", logging.Int64("inserted", n))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

func (r *CompoundRepository) FindByID(ctx context.Context, id string) (*molecule.Compound, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New(errors.ErrCodeMoleculeNotFound, "compound not found").WithDetail(id)
	}
	c, err := scanCompound(r.executor(ctx).QueryRow(ctx, selectCompound+` WHERE id = $1`, uid))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeMoleculeNotFound, "compound not found").WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load compound")
	}
	return c, nil
}

// Iterate streams compounds ordered by insertion.  Rows are decoded one at a
// time, so the library never has to fit in memory.
func (r *CompoundRepository) Iterate(ctx context.Context, fn func(*molecule.Compound) error) error {
	rows, err := r.executor(ctx).Query(ctx, selectCompound+` ORDER BY seq`)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query compounds")
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCompound(rows)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to decode compound")
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "compound iteration failed")
	}
	return nil
}

func (r *CompoundRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.executor(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM compounds`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count compounds")
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.ErrCodeValidation, "compound id must be a UUID").WithDetail(id)
	}
	return uid, nil
}

func scanCompound(row pgx.Row) (*molecule.Compound, error) {
	var (
		c     molecule.Compound
		id    uuid.UUID
		props []byte
	)
	if err := row.Scan(&id, &c.Name, &c.SMILES, &c.Formula, &c.AtomCount, &c.BondCount, &props, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = id.String()
	if len(props) > 0 {
		if err := json.Unmarshal(props, &c.Properties); err != nil {
			return nil, err
		}
	}
	if len(c.Properties) == 0 {
		c.Properties = nil
	}
	return &c, nil
}

func marshalProperties(p map[string]string) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode compound properties")
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

//Personal.AI order the ending
