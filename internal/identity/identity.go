// Package identity turns an authenticated request into the caller identity
// that case review decisions are made on.
package identity

import (
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnknownUser     = errors.New("unknown user")
)

const localsKey = "identity"

// Identity is the resolved caller. Admin implies every moderator privilege.
type Identity struct {
	UserID      uuid.UUID `json:"user_id"`
	IsAdmin     bool      `json:"is_admin"`
	IsModerator bool      `json:"is_moderator"`
}

// Privileged reports whether the caller may review cases.
func (i Identity) Privileged() bool {
	return i.IsAdmin || i.IsModerator
}

// Resolver maps verified token claims to an Identity using the users table.
type Resolver struct {
	db       *gorm.DB
	adminIDs map[uuid.UUID]bool
}

// NewResolver builds a resolver. adminUserIDs is a comma separated list of
// user ids that are admins regardless of their stored role.
func NewResolver(db *gorm.DB, adminUserIDs string) *Resolver {
	admins := make(map[uuid.UUID]bool)
	for _, part := range strings.Split(adminUserIDs, ",") {
		if id, err := uuid.Parse(strings.TrimSpace(part)); err == nil {
			admins[id] = true
		}
	}
	return &Resolver{db: db, adminIDs: admins}
}

// Resolve reads the subject of the verified token in c and loads its role.
func (r *Resolver) Resolve(c *fiber.Ctx) (Identity, error) {
	userID, err := UserIDFromToken(c)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	var user models.User
	if err := r.db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrUnknownUser
		}
		return Identity{}, err
	}
	return r.FromUser(&user), nil
}

// FromUser derives an Identity from a stored user.
func (r *Resolver) FromUser(u *models.User) Identity {
	id := Identity{UserID: u.ID}
	switch u.Role {
	case models.RoleAdmin:
		id.IsAdmin = true
		id.IsModerator = true
	case models.RoleModerator:
		id.IsModerator = true
	}
	if r.adminIDs[u.ID] {
		id.IsAdmin = true
		id.IsModerator = true
	}
	return id
}

// UserIDFromToken extracts the user UUID from the JWT placed in locals by the
// jwt middleware.
func UserIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// Set stores the resolved identity on the request.
func Set(c *fiber.Ctx, id Identity) {
	c.Locals(localsKey, id)
}

// Get returns the identity stored by Set.
func Get(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(localsKey).(Identity)
	return id, ok
}
