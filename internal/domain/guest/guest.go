package guest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostledger/service-rental/internal/common/domain"
)

// Note is a free-text remark a host keeps about a guest.
type Note struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Guest is the aggregate root for a person who stays at the owner's properties.
type Guest struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	name      string
	email     string
	phone     string
	notes     []Note
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewGuest creates a guest with validated fields.
func NewGuest(ownerID uuid.UUID, name, email, phone string) (*Guest, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("guest name is required")
	}

	now := time.Now().UTC()
	return &Guest{
		id:        uuid.New(),
		ownerID:   ownerID,
		name:      name,
		email:     strings.TrimSpace(email),
		phone:     strings.TrimSpace(phone),
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Guest from persistence data (no validation).
func Reconstruct(
	id, ownerID uuid.UUID,
	name, email, phone string,
	notes []Note,
	version int64,
	createdAt, updatedAt time.Time,
) *Guest {
	return &Guest{
		id:        id,
		ownerID:   ownerID,
		name:      name,
		email:     email,
		phone:     phone,
		notes:     notes,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// --- Getters ---

func (g *Guest) ID() uuid.UUID        { return g.id }
func (g *Guest) OwnerID() uuid.UUID   { return g.ownerID }
func (g *Guest) Name() string         { return g.name }
func (g *Guest) Email() string        { return g.email }
func (g *Guest) Phone() string        { return g.phone }
func (g *Guest) Version() int64       { return g.version }
func (g *Guest) CreatedAt() time.Time { return g.createdAt }
func (g *Guest) UpdatedAt() time.Time { return g.updatedAt }

func (g *Guest) Notes() []Note {
	out := make([]Note, len(g.notes))
	copy(out, g.notes)
	return out
}

// --- Behavior ---

// IsOwnedBy checks if the guest belongs to the given owner.
func (g *Guest) IsOwnedBy(ownerID uuid.UUID) bool {
	return g.ownerID == ownerID
}

// Update applies partial updates; empty values leave the field unchanged.
func (g *Guest) Update(name, email, phone string) {
	if name = strings.TrimSpace(name); name != "" {
		g.name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		g.email = email
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		g.phone = phone
	}
	g.version++
	g.updatedAt = time.Now().UTC()
}

// AddNote appends a note.
func (g *Guest) AddNote(content string) (Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Note{}, domain.NewValidationError("note content is required")
	}
	now := time.Now().UTC()
	note := Note{ID: uuid.New(), Content: content, CreatedAt: now}
	g.notes = append(g.notes, note)
	g.version++
	g.updatedAt = now
	return note, nil
}
