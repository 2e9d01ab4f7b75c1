// Package session provides the SQLite-backed store for a collaborative
// editing session's activity history.
//
// Every recorded change is an activity with a monotonically increasing ID,
// so numeric order equals creation order. Package and transaction
// activities carry event payloads in side tables; connection and lock
// activities are bare records.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	_ "embed"

	"histedit/internal/cas"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrObjectNotFound   = errors.New("object not found")
)

// EventType is the kind of recorded activity.
type EventType string

const (
	EventPackage     EventType = "package"
	EventTransaction EventType = "transaction"
	EventConnection  EventType = "connection"
	EventLock        EventType = "lock"
)

// PackageUpdateType is what a package activity did to its package.
type PackageUpdateType string

const (
	PackageAdded   PackageUpdateType = "added"
	PackageSaved   PackageUpdateType = "saved"
	PackageRenamed PackageUpdateType = "renamed"
	PackageDeleted PackageUpdateType = "deleted"
)

// PackageInfo describes a package activity. NewName is set for renames
// only. DataDigest references the stored package data blob, if any.
type PackageInfo struct {
	UpdateType PackageUpdateType
	Name       string
	NewName    string
	DataDigest string
}

// ExportedObject is one object touched by a transaction. AllowCreate marks
// the transaction that created the object, PendingKill the one that removed
// it; at most one of the two is set.
type ExportedObject struct {
	Path        string `json:"path"`
	AllowCreate bool   `json:"allowCreate,omitempty"`
	PendingKill bool   `json:"pendingKill,omitempty"`
}

// TransactionInfo describes a transaction activity: the packages it
// modified and the objects it exported.
type TransactionInfo struct {
	ModifiedPackages []string         `json:"modifiedPackages"`
	ExportedObjects  []ExportedObject `json:"exportedObjects"`
}

// Activity is one history entry. Package is set for package activities,
// Transaction for transaction activities.
type Activity struct {
	ID          int64
	EndpointID  uuid.UUID
	Type        EventType
	Summary     string
	CreatedAt   int64
	Package     *PackageInfo
	Transaction *TransactionInfo
}

// DB wraps the SQLite connection holding the session history.
type DB struct {
	conn *sql.DB
}

// Open opens or creates a session database at the given path.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// AddPackageActivity records a package event. When data is non-nil it is
// stored as the package data blob and referenced from the event.
func (db *DB) AddPackageActivity(endpoint uuid.UUID, summary string, info PackageInfo, data []byte) (int64, error) {
	if data != nil {
		digest, err := db.WriteObject(data)
		if err != nil {
			return 0, err
		}
		info.DataDigest = digest
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	activityID, err := insertActivity(tx, endpoint, EventPackage, summary)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		INSERT INTO package_events (activity_id, update_type, package_name, new_package_name, data_digest)
		VALUES (?, ?, ?, ?, ?)
	`, activityID, string(info.UpdateType), info.Name, info.NewName, info.DataDigest)
	if err != nil {
		return 0, fmt.Errorf("inserting package event: %w", err)
	}

	return activityID, tx.Commit()
}

// AddTransactionActivity records a transaction event.
func (db *DB) AddTransactionActivity(endpoint uuid.UUID, summary string, info TransactionInfo) (int64, error) {
	modified, err := json.Marshal(info.ModifiedPackages)
	if err != nil {
		return 0, fmt.Errorf("marshaling modified packages: %w", err)
	}
	exported, err := json.Marshal(info.ExportedObjects)
	if err != nil {
		return 0, fmt.Errorf("marshaling exported objects: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	activityID, err := insertActivity(tx, endpoint, EventTransaction, summary)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		INSERT INTO transaction_events (activity_id, modified_packages, exported_objects)
		VALUES (?, ?, ?)
	`, activityID, string(modified), string(exported))
	if err != nil {
		return 0, fmt.Errorf("inserting transaction event: %w", err)
	}

	return activityID, tx.Commit()
}

// AddConnectionActivity records a client joining or leaving the session.
func (db *DB) AddConnectionActivity(endpoint uuid.UUID, summary string) (int64, error) {
	return db.addBareActivity(endpoint, EventConnection, summary)
}

// AddLockActivity records a lock or unlock of a resource.
func (db *DB) AddLockActivity(endpoint uuid.UUID, summary string) (int64, error) {
	return db.addBareActivity(endpoint, EventLock, summary)
}

func (db *DB) addBareActivity(endpoint uuid.UUID, eventType EventType, summary string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	activityID, err := insertActivity(tx, endpoint, eventType, summary)
	if err != nil {
		return 0, err
	}
	return activityID, tx.Commit()
}

func insertActivity(tx *sql.Tx, endpoint uuid.UUID, eventType EventType, summary string) (int64, error) {
	result, err := tx.Exec(`
		INSERT INTO activities (endpoint_id, event_type, summary, created_at)
		VALUES (?, ?, ?, ?)
	`, endpoint.String(), string(eventType), summary, cas.NowMs())
	if err != nil {
		return 0, fmt.Errorf("inserting activity: %w", err)
	}
	return result.LastInsertId()
}

// GetActivity retrieves an activity with its event payload.
func (db *DB) GetActivity(id int64) (*Activity, error) {
	var endpointStr, eventType, summary string
	var createdAt int64

	err := db.conn.QueryRow(`
		SELECT endpoint_id, event_type, summary, created_at FROM activities WHERE id = ?
	`, id).Scan(&endpointStr, &eventType, &summary, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("activity %d: %w", id, ErrActivityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}

	endpoint, err := uuid.Parse(endpointStr)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint id: %w", err)
	}

	activity := &Activity{
		ID:         id,
		EndpointID: endpoint,
		Type:       EventType(eventType),
		Summary:    summary,
		CreatedAt:  createdAt,
	}
	if err := db.loadEvent(activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// EnumerateActivities calls fn for every activity in creation order.
// Enumeration stops at the first error returned by fn.
func (db *DB) EnumerateActivities(fn func(*Activity) error) error {
	rows, err := db.conn.Query(`
		SELECT id, endpoint_id, event_type, summary, created_at FROM activities ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		var activity Activity
		var endpointStr, eventType string
		if err := rows.Scan(&activity.ID, &endpointStr, &eventType, &activity.Summary, &activity.CreatedAt); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		endpoint, err := uuid.Parse(endpointStr)
		if err != nil {
			return fmt.Errorf("parsing endpoint id: %w", err)
		}
		activity.EndpointID = endpoint
		activity.Type = EventType(eventType)
		activities = append(activities, &activity)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Event payloads are loaded after the cursor closes; SQLite dislikes
	// nested queries on one connection.
	for _, activity := range activities {
		if err := db.loadEvent(activity); err != nil {
			return err
		}
		if err := fn(activity); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) loadEvent(activity *Activity) error {
	switch activity.Type {
	case EventPackage:
		var info PackageInfo
		var updateType string
		err := db.conn.QueryRow(`
			SELECT update_type, package_name, new_package_name, data_digest
			FROM package_events WHERE activity_id = ?
		`, activity.ID).Scan(&updateType, &info.Name, &info.NewName, &info.DataDigest)
		if err != nil {
			return fmt.Errorf("querying package event %d: %w", activity.ID, err)
		}
		info.UpdateType = PackageUpdateType(updateType)
		activity.Package = &info

	case EventTransaction:
		var modifiedJSON, exportedJSON string
		err := db.conn.QueryRow(`
			SELECT modified_packages, exported_objects
			FROM transaction_events WHERE activity_id = ?
		`, activity.ID).Scan(&modifiedJSON, &exportedJSON)
		if err != nil {
			return fmt.Errorf("querying transaction event %d: %w", activity.ID, err)
		}

		var info TransactionInfo
		if err := json.Unmarshal([]byte(modifiedJSON), &info.ModifiedPackages); err != nil {
			return fmt.Errorf("unmarshaling modified packages: %w", err)
		}
		if err := json.Unmarshal([]byte(exportedJSON), &info.ExportedObjects); err != nil {
			return fmt.Errorf("unmarshaling exported objects: %w", err)
		}
		activity.Transaction = &info
	}
	return nil
}
