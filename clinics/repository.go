// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package clinics

import (
	"database/sql"
	"time"

	"github.com/odontomapa/odontomapa/spatial"
)

// Repository handles persistence of the clinic directory.
type Repository interface {
	// CreateSchema creates the clinics table
	CreateSchema() error

	// SaveClinic inserts or updates a clinic keyed by name and city
	SaveClinic(clinic *Clinic) error

	// ListClinics returns clinics, optionally filtered by city
	ListClinics(city *string, limit, offset int) ([]*Clinic, error)

	// BulkInsertClinics inserts a slice of clinics into the database
	BulkInsertClinics(clinics []*Clinic) error

	// CountClinics returns the total number of clinics
	CountClinics() (int, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlClinicRepository struct {
	db *sql.DB
}

// NewRepository creates a new clinic repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlClinicRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlClinicRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlClinicRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS clinics_seq START 1;

		CREATE TABLE IF NOT EXISTS clinics (
			id INTEGER PRIMARY KEY DEFAULT nextval('clinics_seq'),
			name VARCHAR NOT NULL,
			city VARCHAR NOT NULL,
			state VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			phone VARCHAR NOT NULL,
			point POINT_2D,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT,
			UNIQUE(name, city)
		);
	`)

	return err
}

func (r *sqlClinicRepository) SaveClinic(clinic *Clinic) error {
	existing, err := r.list(baseSelect+" WHERE name = ? AND city = ? LIMIT 1", []any{clinic.Name, clinic.City})
	if err != nil {
		return err
	}

	if err = clinic.computeH3(); err != nil {
		return err
	}

	clinic.UpdatedAt = time.Now()
	if len(existing) > 0 {
		lng, lat := pointArgs(clinic.Point)

		_, err = r.db.Exec(`
			UPDATE clinics
			SET state = ?, address = ?, phone = ?,
			    point = CASE WHEN CAST(? AS DOUBLE) IS NULL THEN NULL ELSE ST_Point(?, ?) END,
			    updated_at = ?,
			    h3_res5 = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?
			WHERE name = ? AND city = ?
		`,
			clinic.State,
			clinic.Address,
			clinic.Phone,
			lng,
			lng,
			lat,
			clinic.UpdatedAt,
			clinic.H3Res5,
			clinic.H3Res6,
			clinic.H3Res7,
			clinic.H3Res8,
			clinic.Name,
			clinic.City,
		)

		return err
	}

	clinic.CreatedAt = clinic.UpdatedAt

	return r.BulkInsertClinics([]*Clinic{clinic})
}

func (r *sqlClinicRepository) BulkInsertClinics(clinics []*Clinic) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO clinics(
			name,
			city,
			state,
			address,
			phone,
			point,
			created_at,
			updated_at,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ?, CASE WHEN CAST(? AS DOUBLE) IS NULL THEN NULL ELSE ST_Point(?, ?) END, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	for _, c := range clinics {
		if err = c.computeH3(); err != nil {
			return err
		}

		lng, lat := pointArgs(c.Point)

		_, err := stmt.Exec(
			c.Name,
			c.City,
			c.State,
			c.Address,
			c.Phone,
			lng,
			lng,
			lat,
			c.CreatedAt,
			c.UpdatedAt,
			c.H3Res5,
			c.H3Res6,
			c.H3Res7,
			c.H3Res8,
		)
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}
	}

	return tx.Commit()
}

// pointArgs splits an optional point into the nullable bind parameters
// the insert and update statements expect.
func pointArgs(pt *spatial.Point) (lng, lat any) {
	if pt == nil {
		return nil, nil
	}

	return pt.Lng, pt.Lat
}

// nullablePoint scans a POINT_2D column that may be NULL.
type nullablePoint struct {
	point spatial.Point
	valid bool
}

func (n *nullablePoint) Scan(value any) error {
	if value == nil {
		n.valid = false

		return nil
	}

	n.valid = true

	return n.point.Scan(value)
}

var baseSelect = `
	SELECT id, name, city, state, address, phone, point,
	       created_at, updated_at,
	       h3_res5, h3_res6, h3_res7, h3_res8
	FROM clinics
`

func (r *sqlClinicRepository) list(query string, args []any) ([]*Clinic, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clinics []*Clinic

	for rows.Next() {
		clinic := &Clinic{}

		var point nullablePoint

		var h3Res5, h3Res6, h3Res7, h3Res8 sql.NullInt64

		err := rows.Scan(
			&clinic.ID, &clinic.Name, &clinic.City, &clinic.State,
			&clinic.Address, &clinic.Phone, &point,
			&clinic.CreatedAt, &clinic.UpdatedAt,
			&h3Res5, &h3Res6, &h3Res7, &h3Res8,
		)
		if err != nil {
			return nil, err
		}

		if point.valid {
			pt := point.point
			clinic.Point = &pt
		}

		if h3Res5.Valid {
			clinic.H3Res5 = h3Res5.Int64
		}

		if h3Res6.Valid {
			clinic.H3Res6 = h3Res6.Int64
		}

		if h3Res7.Valid {
			clinic.H3Res7 = h3Res7.Int64
		}

		if h3Res8.Valid {
			clinic.H3Res8 = h3Res8.Int64
		}

		clinics = append(clinics, clinic)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clinics, nil
}

func (r *sqlClinicRepository) ListClinics(city *string, limit, offset int) ([]*Clinic, error) {
	query := baseSelect

	args := []any{}

	if city != nil {
		query += " WHERE city = ?"

		args = append(args, *city)
	}

	query += " ORDER BY city, name"

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, limit, offset)
	}

	return r.list(query, args)
}

func (r *sqlClinicRepository) CountClinics() (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM clinics",
	).Scan(&count)

	return count, err
}
