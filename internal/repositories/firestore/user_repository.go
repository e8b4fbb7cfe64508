package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	"github.com/velora-shop/api/internal/domain"
	pfirestore "github.com/velora-shop/api/internal/platform/firestore"
)

const (
	userCollection      = "users"
	userEmailCollection = "user_emails"
)

// UserRepository persists registered accounts in Firestore. A companion index
// collection keyed by lowercased email enforces one account per address.
type UserRepository struct {
	base     *pfirestore.BaseRepository[userDocument]
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil)
	return &UserRepository{base: base, provider: provider}, nil
}

// Create inserts the account and claims its email. An already claimed email
// surfaces as a conflict RepositoryError.
func (r *UserRepository) Create(ctx context.Context, user domain.UserProfile) (domain.UserProfile, error) {
	if r == nil || r.provider == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return domain.UserProfile{}, errors.New("user email is required")
	}

	userID := strings.TrimSpace(user.ID)
	if userID == "" {
		userID = ulid.Make().String()
	}

	now := time.Now().UTC()
	doc := fromDomainUser(user, now)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}
	userRef := client.Collection(userCollection).Doc(userID)
	emailRef := client.Collection(userEmailCollection).Doc(email)

	if err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(emailRef, emailIndexDocument{
			UserRef:   userID,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return tx.Create(userRef, doc)
	}); err != nil {
		return domain.UserProfile{}, err
	}

	created := toDomainUser(doc)
	created.ID = userID
	return created, nil
}

// FindByID loads the account by its identifier.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	user := toDomainUser(doc.Data)
	user.ID = doc.ID
	return user, nil
}

// FindByEmail resolves the lowercased email through the index collection.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.UserProfile, error) {
	if r == nil || r.provider == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.UserProfile{}, errors.New("user email is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}
	snap, err := client.Collection(userEmailCollection).Doc(email).Get(ctx)
	if err != nil {
		return domain.UserProfile{}, pfirestore.WrapError("user_emails.get", err)
	}

	var index emailIndexDocument
	if err := snap.DataTo(&index); err != nil {
		return domain.UserProfile{}, pfirestore.WrapError("user_emails.decode", err)
	}
	return r.FindByID(ctx, index.UserRef)
}

// List returns every account, newest first.
func (r *UserRepository) List(ctx context.Context) ([]domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("user repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	users := make([]domain.UserProfile, 0, len(docs))
	for _, doc := range docs {
		user := toDomainUser(doc.Data)
		user.ID = doc.ID
		users = append(users, user)
	}
	return users, nil
}

// UpdateProfile overwrites the mutable profile fields. Email and password are
// managed through dedicated flows and left untouched.
func (r *UserRepository) UpdateProfile(ctx context.Context, user domain.UserProfile) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	updates := []firestore.Update{
		{Path: "username", Value: strings.TrimSpace(user.Username)},
		{Path: "profileImage", Value: strings.TrimSpace(user.ProfileImage)},
		{Path: "bio", Value: strings.TrimSpace(user.Bio)},
		{Path: "profession", Value: strings.TrimSpace(user.Profession)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if _, err := r.base.Update(ctx, user.ID, updates, firestore.Exists); err != nil {
		return domain.UserProfile{}, err
	}
	return r.FindByID(ctx, user.ID)
}

// UpdateRole switches the account role.
func (r *UserRepository) UpdateRole(ctx context.Context, userID string, role domain.UserRole) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	updates := []firestore.Update{
		{Path: "role", Value: string(role)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if _, err := r.base.Update(ctx, userID, updates, firestore.Exists); err != nil {
		return domain.UserProfile{}, err
	}
	return r.FindByID(ctx, userID)
}

// Delete removes the account together with its email claim.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	if r == nil || r.provider == nil {
		return errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	userRef := client.Collection(userCollection).Doc(userID)

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(userRef)
		if err != nil {
			return err
		}
		var doc userDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if email := strings.ToLower(strings.TrimSpace(doc.Email)); email != "" {
			if err := tx.Delete(client.Collection(userEmailCollection).Doc(email)); err != nil {
				return err
			}
		}
		return tx.Delete(userRef)
	})
}

type userDocument struct {
	Username     string    `firestore:"username"`
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	Role         string    `firestore:"role"`
	ProfileImage string    `firestore:"profileImage,omitempty"`
	Bio          string    `firestore:"bio,omitempty"`
	Profession   string    `firestore:"profession,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type emailIndexDocument struct {
	UserRef   string    `firestore:"userRef"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func fromDomainUser(user domain.UserProfile, now time.Time) userDocument {
	doc := userDocument{
		Username:     strings.TrimSpace(user.Username),
		Email:        strings.ToLower(strings.TrimSpace(user.Email)),
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		ProfileImage: strings.TrimSpace(user.ProfileImage),
		Bio:          strings.TrimSpace(user.Bio),
		Profession:   strings.TrimSpace(user.Profession),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    now,
	}
	if doc.Role == "" {
		doc.Role = string(domain.UserRoleUser)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	return doc
}

func toDomainUser(doc userDocument) domain.UserProfile {
	return domain.UserProfile{
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         domain.UserRole(doc.Role),
		ProfileImage: doc.ProfileImage,
		Bio:          doc.Bio,
		Profession:   doc.Profession,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}
