package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/database"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/model"
	"go.uber.org/zap"
)

// recordColumns is the column list selected for a full record.
const recordColumns = `id, first_name, surname, phone, address_1, address_2, city, state, postcode, created_at, updated_at`

// Store lists, reads and writes contact records. It holds no mutable state besides the
// database handle, so a single Store serves all requests concurrently.
type Store struct {
	db       *sqlx.DB
	log      *zap.Logger
	dialect  dialect
	pageSize int

	// insert is a prepared statement for creating a record.
	insert *sqlx.NamedStmt

	// selectWhereId is a prepared statement for selecting the record with a given id.
	selectWhereId *sqlx.Stmt

	// selectIdWherePhone is a prepared statement for finding the record that owns a phone number.
	selectIdWherePhone *sqlx.Stmt

	// deleteWhereId is a prepared statement for deleting the record with a given id.
	deleteWhereId *sqlx.Stmt
}

// NewStore wraps the database handle and prepares all fixed statements. The handle can be a real
// database or a mock database within unit tests. A pageSize below 1 selects DefaultPageSize.
func NewStore(sqlDB *sql.DB, driver string, pageSize int, log *zap.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, driver)
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	s := &Store{
		db:       sqlx.NewDb(sqlDB, sqlxDriverName(driver)),
		log:      log,
		dialect:  d,
		pageSize: pageSize,
	}

	s.insert, err = s.db.PrepareNamed(`
		INSERT INTO phone_numbers (first_name, surname, phone, address_1, address_2, city, state, postcode, created_at, updated_at)
		VALUES (:first_name, :surname, :phone, :address_1, :address_2, :city, :state, :postcode, :created_at, :updated_at)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	s.selectWhereId, err = s.db.Preparex(`SELECT ` + recordColumns + ` FROM phone_numbers WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare select by id: %w", err)
	}
	s.selectIdWherePhone, err = s.db.Preparex(`SELECT id FROM phone_numbers WHERE phone = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare select by phone: %w", err)
	}
	s.deleteWhereId, err = s.db.Preparex(`DELETE FROM phone_numbers WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare delete: %w", err)
	}
	return s, nil
}

// sqlxDriverName returns the name sqlx uses to pick the bind variable style.
func sqlxDriverName(driver string) string {
	if driver == database.DriverSQLite {
		return "sqlite3"
	}
	return driver
}

// Ping verifies that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// List returns the requested page of records matching the query's search term, in the query's
// sort order. A page past the last one holds no records.
func (s *Store) List(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize(s.pageSize)
	s.log.Debug("Listing records",
		zap.String("search", q.Search),
		zap.String("sort", q.Sort),
		zap.String("direction", q.Direction),
		zap.Int("page", q.Page),
		zap.Int("pageSize", q.PageSize),
	)

	where, args := whereClause(s.dialect, q.Search)

	// Count and select see the same snapshot, so Total agrees with Records.
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Page{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM phone_numbers`+where, args...); err != nil {
		return Page{}, fmt.Errorf("count records: %w", err)
	}
	page := newPage(q, total)
	// Only existing pages are selected; their offset is below total.
	if total > 0 && q.Page <= page.PageCount {
		query := `SELECT ` + recordColumns + ` FROM phone_numbers` + where + orderByClause(q) + ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, q.offset())
		if err := tx.SelectContext(ctx, &page.Records, query, args...); err != nil {
			return Page{}, fmt.Errorf("select records: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Page{}, fmt.Errorf("commit list: %w", err)
	}
	return page, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id int64) (model.Record, error) {
	s.log.Debug("Getting record", zap.Int64("id", id))

	var record model.Record
	err := s.selectWhereId.GetContext(ctx, &record, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("select record: %w", err)
	}
	return record, nil
}

// Create validates the fields and stores them as a new record.
func (s *Store) Create(ctx context.Context, fields model.Fields) (model.Record, error) {
	fields = fields.Normalize()
	s.log.Debug("Creating record", zap.String("phone", fields.Phone))

	verr, err := validateFields(fields)
	if err != nil {
		return model.Record{}, err
	}
	if !verr.has("phone") {
		taken, err := ownedByOther(s.selectIdWherePhone.QueryRowxContext(ctx, fields.Phone), 0)
		if err != nil {
			return model.Record{}, err
		}
		if taken {
			verr.add("phone", phoneTakenMessage)
		}
	}
	if !verr.empty() {
		return model.Record{}, verr
	}

	now := time.Now().UTC().Truncate(time.Second)
	record := newRecord(fields, now)
	result, err := s.insert.ExecContext(ctx, &record)
	if database.IsUniqueViolation(err) {
		return model.Record{}, phoneTaken()
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("insert record: %w", err)
	}
	record.Id, err = result.LastInsertId()
	if err != nil {
		return model.Record{}, fmt.Errorf("read inserted id: %w", err)
	}
	return record, nil
}

// Update replaces all editable fields of the record with the given id. The record may keep its
// own phone number; any other record's phone number is rejected.
func (s *Store) Update(ctx context.Context, id int64, fields model.Fields) (model.Record, error) {
	fields = fields.Normalize()
	s.log.Debug("Updating record", zap.Int64("id", id), zap.String("phone", fields.Phone))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Record{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing model.Record
	err = tx.GetContext(ctx, &existing, `SELECT `+recordColumns+` FROM phone_numbers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("select record: %w", err)
	}

	verr, err := validateFields(fields)
	if err != nil {
		return model.Record{}, err
	}
	if !verr.has("phone") {
		row := tx.QueryRowxContext(ctx, `SELECT id FROM phone_numbers WHERE phone = ? AND id <> ?`, fields.Phone, id)
		taken, err := ownedByOther(row, id)
		if err != nil {
			return model.Record{}, err
		}
		if taken {
			verr.add("phone", phoneTakenMessage)
		}
	}
	if !verr.empty() {
		return model.Record{}, verr
	}

	record := newRecord(fields, time.Now().UTC().Truncate(time.Second))
	record.Id = id
	record.CreatedAt = existing.CreatedAt
	_, err = tx.NamedExecContext(ctx, `
		UPDATE phone_numbers
		SET first_name = :first_name, surname = :surname, phone = :phone,
			address_1 = :address_1, address_2 = :address_2, city = :city, state = :state,
			postcode = :postcode, updated_at = :updated_at
		WHERE id = :id
	`, &record)
	if database.IsUniqueViolation(err) {
		return model.Record{}, phoneTaken()
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("update record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if database.IsUniqueViolation(err) {
			return model.Record{}, phoneTaken()
		}
		return model.Record{}, fmt.Errorf("commit update: %w", err)
	}
	return record, nil
}

// Delete removes the record with the given id permanently.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.log.Debug("Deleting record", zap.Int64("id", id))

	result, err := s.deleteWhereId.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// ownedByOther reports whether the phone lookup row names a record other than self.
func ownedByOther(row *sqlx.Row, self int64) (bool, error) {
	var owner int64
	err := row.Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up phone: %w", err)
	}
	return owner != self, nil
}

func newRecord(fields model.Fields, now time.Time) model.Record {
	return model.Record{
		FirstName: fields.FirstName,
		Surname:   fields.Surname,
		Phone:     fields.Phone,
		Address1:  fields.Address1,
		Address2:  fields.Address2,
		City:      fields.City,
		State:     fields.State,
		Postcode:  fields.Postcode,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
