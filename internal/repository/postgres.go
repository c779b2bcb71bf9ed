// Package repository contains the PostgreSQL data-access layer.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mlebreton/parcloc-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrEquipmentNotFound is returned when no equipment matches the requested id.
var (
	ErrEquipmentNotFound = errors.New("equipment not found")
	// ErrEquipmentUnavailable is returned when a reservation targets equipment
	// that is not AVAILABLE.
	ErrEquipmentUnavailable = errors.New("equipment not available")
	// ErrNoActiveRental is returned when a lifecycle transition expects a
	// reservation or a running rental that does not exist.
	ErrNoActiveRental = errors.New("no active rental")
	// ErrClientExists is returned on a duplicate client name.
	ErrClientExists = errors.New("client already exists")
	// ErrClientNotFound is returned when no client matches the requested id.
	ErrClientNotFound = errors.New("client not found")
	// ErrPartExists is returned on a duplicate spare-part reference.
	ErrPartExists = errors.New("spare part already exists")
	// ErrPartNotFound is returned when no spare part matches the requested id.
	ErrPartNotFound = errors.New("spare part not found")
	// ErrInsufficientStock is returned when a stock movement would drive a
	// spare-part quantity below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// PostgresRepository provides access to the PostgreSQL store.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the repository and brings the schema up to
// date through the embedded migrations.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const equipmentColumns = `id, designation, statut, prix_ht_cents, client, debut_location,
	fin_location_theorique, est_pret, est_longue_duree, minimum_facturation_apply,
	minimum_facturation_cents, prochaine_vgp, created_at`

// CreateEquipment inserts a new fleet record and returns its id.
func (r *PostgresRepository) CreateEquipment(ctx context.Context, eq model.Equipment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO equipment (designation, statut, prix_ht_cents, prochaine_vgp)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		eq.Designation, string(eq.Status), eurosPtrToCents(eq.DailyRateHT), eq.NextVGP,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create equipment: %w", err)
	}
	return id, nil
}

// GetEquipment returns one fleet record by id.
func (r *PostgresRepository) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id)

	eq, err := scanEquipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return eq, nil
}

// ListEquipment returns the whole fleet ordered by designation.
func (r *PostgresRepository) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+equipmentColumns+` FROM equipment ORDER BY designation, id`)
	if err != nil {
		return nil, fmt.Errorf("select equipment: %w", err)
	}
	defer rows.Close()

	var fleet []model.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		fleet = append(fleet, *eq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return fleet, nil
}

// UpdateEquipment updates the descriptive fields of a fleet record. The
// rental fields move only through the lifecycle transitions.
func (r *PostgresRepository) UpdateEquipment(ctx context.Context, eq model.Equipment) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE equipment
		 SET designation = $2, prix_ht_cents = $3, prochaine_vgp = $4
		 WHERE id = $1`,
		eq.ID, eq.Designation, eurosPtrToCents(eq.DailyRateHT), eq.NextVGP,
	)
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEquipmentNotFound
	}
	return nil
}

// DeleteEquipment removes a fleet record and its history.
func (r *PostgresRepository) DeleteEquipment(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEquipmentNotFound
	}
	return nil
}

// RentalInfo carries the rental fields set on a reservation.
type RentalInfo struct {
	Client              string
	Start               time.Time
	TheoreticalEnd      *time.Time
	IsLoan              bool
	IsLongDuration      bool
	MinimumBillingApply bool
	MinimumBilling      *float64
}

// Reserve places a reservation on AVAILABLE equipment. The row is locked so
// two concurrent reservations cannot both win.
func (r *PostgresRepository) Reserve(ctx context.Context, id int64, info RentalInfo) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var status string
		err = tx.QueryRow(ctx, `SELECT statut FROM equipment WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEquipmentNotFound
			}
			return fmt.Errorf("lock equipment: %w", err)
		}

		if model.EquipmentStatus(status) != model.StatusAvailable {
			return ErrEquipmentUnavailable
		}

		_, err = tx.Exec(ctx,
			`UPDATE equipment
			 SET statut = $2, client = $3, debut_location = $4, fin_location_theorique = $5,
			     est_pret = $6, est_longue_duree = $7, minimum_facturation_apply = $8,
			     minimum_facturation_cents = $9
			 WHERE id = $1`,
			id, string(model.StatusReserved), info.Client, info.Start, info.TheoreticalEnd,
			info.IsLoan, info.IsLongDuration, info.MinimumBillingApply,
			eurosPtrToCents(info.MinimumBilling),
		)
		if err != nil {
			return fmt.Errorf("reserve equipment: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// StartRental moves a reservation to RENTED.
func (r *PostgresRepository) StartRental(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE equipment SET statut = $2 WHERE id = $1 AND statut = $3`,
		id, string(model.StatusRented), string(model.StatusReserved),
	)
	if err != nil {
		return fmt.Errorf("start rental: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNoActiveRental
	}
	return nil
}

// CancelReservation clears the rental fields of a RESERVED equipment and
// makes it AVAILABLE again.
func (r *PostgresRepository) CancelReservation(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE equipment
		 SET statut = $2, client = NULL, debut_location = NULL, fin_location_theorique = NULL,
		     est_pret = FALSE, est_longue_duree = FALSE, minimum_facturation_apply = FALSE,
		     minimum_facturation_cents = NULL
		 WHERE id = $1 AND statut = $3`,
		id, string(model.StatusAvailable), string(model.StatusReserved),
	)
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNoActiveRental
	}
	return nil
}

// SetStatus sets the fleet state directly; used when maintenance completes.
func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status model.EquipmentStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE equipment SET statut = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrEquipmentNotFound
	}
	return nil
}

// CloseRental archives a running rental into location_history, clears the
// rental fields and moves the equipment to MAINTENANCE, all in one
// transaction. The history record is frozen from that point on.
func (r *PostgresRepository) CloseRental(ctx context.Context, id int64, rec model.LocationHistoryRecord) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var status string
		err = tx.QueryRow(ctx, `SELECT statut FROM equipment WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEquipmentNotFound
			}
			return fmt.Errorf("lock equipment: %w", err)
		}

		if model.EquipmentStatus(status) != model.StatusRented {
			return ErrNoActiveRental
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO location_history
			 (equipment_id, client, date_debut, date_retour_reel, rentre_le,
			  duree_jours_ouvres, prix_ht_jour_cents, ca_total_ht_cents,
			  remise_ld, minimum_facturation_apply, est_pret)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			id, rec.Client, rec.StartDate, rec.ActualReturn, rec.ArchivedReturn,
			rec.BusinessDays, eurosPtrToCents(rec.DailyRateHT), eurosPtrToCents(rec.TotalHT),
			rec.LongDurationApplied, rec.MinimumBillingApplied, rec.IsLoan,
		)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE equipment
			 SET statut = $2, client = NULL, debut_location = NULL, fin_location_theorique = NULL,
			     est_pret = FALSE, est_longue_duree = FALSE, minimum_facturation_apply = FALSE,
			     minimum_facturation_cents = NULL
			 WHERE id = $1`,
			id, string(model.StatusInMaintenance),
		)
		if err != nil {
			return fmt.Errorf("clear rental fields: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// ListHistoryByEquipment returns the closed rentals of one equipment, most
// recent first.
func (r *PostgresRepository) ListHistoryByEquipment(ctx context.Context, equipmentID int64) ([]model.LocationHistoryRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, equipment_id, client, date_debut, date_retour_reel, rentre_le,
		        duree_jours_ouvres, prix_ht_jour_cents, ca_total_ht_cents,
		        remise_ld, minimum_facturation_apply, est_pret
		 FROM location_history
		 WHERE equipment_id = $1
		 ORDER BY date_debut DESC`,
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var res []model.LocationHistoryRecord
	for rows.Next() {
		var (
			rec        model.LocationHistoryRecord
			rateCents  *int64
			totalCents *int64
		)
		err := rows.Scan(&rec.ID, &rec.EquipmentID, &rec.Client, &rec.StartDate,
			&rec.ActualReturn, &rec.ArchivedReturn, &rec.BusinessDays,
			&rateCents, &totalCents, &rec.LongDurationApplied,
			&rec.MinimumBillingApplied, &rec.IsLoan)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		rec.DailyRateHT = centsPtrToEuros(rateCents)
		rec.TotalHT = centsPtrToEuros(totalCents)
		res = append(res, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateClient adds a directory entry.
func (r *PostgresRepository) CreateClient(ctx context.Context, c model.Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO clients (nom, contact, telephone, email) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, c.Contact, c.Phone, c.Email,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrClientExists, c.Name)
		}
		return 0, fmt.Errorf("create client: %w", err)
	}
	return id, nil
}

// ListClients returns the client directory ordered by name.
func (r *PostgresRepository) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, nom, contact, telephone, email, created_at FROM clients ORDER BY nom`)
	if err != nil {
		return nil, fmt.Errorf("select clients: %w", err)
	}
	defer rows.Close()

	var res []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Contact, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateClient updates a directory entry.
func (r *PostgresRepository) UpdateClient(ctx context.Context, c model.Client) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE clients SET nom = $2, contact = $3, telephone = $4, email = $5 WHERE id = $1`,
		c.ID, c.Name, c.Contact, c.Phone, c.Email,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrClientExists, c.Name)
		}
		return fmt.Errorf("update client: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

// DeleteClient removes a directory entry.
func (r *PostgresRepository) DeleteClient(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

// CreateSparePart adds a stock line.
func (r *PostgresRepository) CreateSparePart(ctx context.Context, p model.SparePart) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO spare_parts (reference, designation, quantite, seuil_alerte)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Reference, p.Designation, p.Quantity, p.AlertLevel,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrPartExists, p.Reference)
		}
		return 0, fmt.Errorf("create spare part: %w", err)
	}
	return id, nil
}

// ListSpareParts returns the stock ordered by reference.
func (r *PostgresRepository) ListSpareParts(ctx context.Context) ([]model.SparePart, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, reference, designation, quantite, seuil_alerte FROM spare_parts ORDER BY reference`)
	if err != nil {
		return nil, fmt.Errorf("select spare parts: %w", err)
	}
	defer rows.Close()

	var res []model.SparePart
	for rows.Next() {
		var p model.SparePart
		if err := rows.Scan(&p.ID, &p.Reference, &p.Designation, &p.Quantity, &p.AlertLevel); err != nil {
			return nil, fmt.Errorf("scan spare part: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AdjustSparePartStock applies a signed stock movement. The row is locked so
// concurrent movements cannot drive the quantity negative.
func (r *PostgresRepository) AdjustSparePartStock(ctx context.Context, id int64, delta int) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var quantity int
		err = tx.QueryRow(ctx, `SELECT quantite FROM spare_parts WHERE id = $1 FOR UPDATE`, id).Scan(&quantity)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPartNotFound
			}
			return fmt.Errorf("lock spare part: %w", err)
		}

		if quantity+delta < 0 {
			return ErrInsufficientStock
		}

		_, err = tx.Exec(ctx, `UPDATE spare_parts SET quantite = quantite + $2 WHERE id = $1`, id, delta)
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// ListVGPDueBefore returns equipment whose next statutory inspection is due
// on or before the given date.
func (r *PostgresRepository) ListVGPDueBefore(ctx context.Context, due time.Time) ([]model.Equipment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+equipmentColumns+`
		 FROM equipment
		 WHERE prochaine_vgp IS NOT NULL AND prochaine_vgp <= $1
		 ORDER BY prochaine_vgp`,
		due,
	)
	if err != nil {
		return nil, fmt.Errorf("select vgp due: %w", err)
	}
	defer rows.Close()

	var res []model.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		res = append(res, *eq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanEquipment(row pgx.Row) (*model.Equipment, error) {
	var (
		eq           model.Equipment
		status       string
		rateCents    *int64
		minimumCents *int64
	)
	err := row.Scan(&eq.ID, &eq.Designation, &status, &rateCents, &eq.Client,
		&eq.RentalStart, &eq.TheoreticalEnd, &eq.IsLoan, &eq.IsLongDuration,
		&eq.MinimumBillingApply, &minimumCents, &eq.NextVGP, &eq.CreatedAt)
	if err != nil {
		return nil, err
	}

	eq.Status = model.EquipmentStatus(status)
	eq.DailyRateHT = centsPtrToEuros(rateCents)
	eq.MinimumBilling = centsPtrToEuros(minimumCents)
	return &eq, nil
}

// Monetary amounts are stored as integer cents and exposed as euros.
func eurosPtrToCents(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := int64(*v*100 + 0.5)
	return &c
}

func centsPtrToEuros(c *int64) *float64 {
	if c == nil {
		return nil
	}
	v := float64(*c) / 100
	return &v
}
