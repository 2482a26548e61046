package domain

// EntityStatus is the soft-delete marker carried by every persisted entity.
// Deleted rows stay in the database and are filtered out of normal reads.
type EntityStatus string

const (
	EntityStatusActive  EntityStatus = "ACTIVE"
	EntityStatusDeleted EntityStatus = "DELETED"
)

func (s EntityStatus) IsActive() bool {
	return s == EntityStatusActive
}
