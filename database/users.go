package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/utils"
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case utils.IsDuplicateKey(err):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		return err
	}
}

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(col *mongo.Collection) *UserRepository {
	return &UserRepository{col: col}
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByLogin looks the user up by e-mail when login contains "@", by phone
// otherwise.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, loginFilter(login)).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func loginFilter(login string) bson.M {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return bson.M{"email": utils.NormalizeEmail(login)}
	}
	return bson.M{"phone": login}
}

// Exists reports whether an account already uses email or phone. Empty
// values are not matched.
func (r *UserRepository) Exists(ctx context.Context, email, phone string) (bool, error) {
	filter, ok := identityFilter(email, phone)
	if !ok {
		return false, nil
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func identityFilter(email, phone string) (bson.M, bool) {
	var or bson.A
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if phone != "" {
		or = append(or, bson.M{"phone": phone})
	}
	if len(or) == 0 {
		return nil, false
	}
	return bson.M{"$or": or}, true
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, u)
	return translate(err)
}

// SaveProfile writes the identity fields of u. Cleared e-mail or phone
// values are unset so the sparse unique indexes ignore them.
func (r *UserRepository) SaveProfile(ctx context.Context, u *models.User) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, profileUpdate(u))
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func profileUpdate(u *models.User) bson.M {
	set := bson.M{
		"name":         u.Name,
		"passwordHash": u.PasswordHash,
		"updatedAt":    u.UpdatedAt,
	}
	unset := bson.M{}
	if u.Email != "" {
		set["email"] = u.Email
	} else {
		unset["email"] = ""
	}
	if u.Phone != "" {
		set["phone"] = u.Phone
	} else {
		unset["phone"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func (r *UserRepository) SaveAddresses(ctx context.Context, u *models.User) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{
		"$set": bson.M{"addresses": u.Addresses, "updatedAt": u.UpdatedAt},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, cursor.Err()
}

func (r *UserRepository) SetActive(ctx context.Context, id bson.ObjectID, active bool, at time.Time) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"isActive": active, "updatedAt": at},
	}, opts).Decode(&u)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
