package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fitcoach/internal/fitness"
	"fitcoach/internal/models"
)

const (
	usersCollection    = "users"
	workoutsCollection = "workout_plans"
	mealsCollection    = "meal_plans"
	paymentsCollection = "payments"
)

// MongoDB keeps one document per user, with the progress log embedded as an
// array, and one document per plan.
type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoDB{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the unique and lookup indexes the queries rely on.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "telegramId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	for _, name := range []string{workoutsCollection, mealsCollection} {
		_, err := m.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create %s index: %w", name, err)
		}
	}
	_, err = m.db.Collection(paymentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stripeSessionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create payment index: %w", err)
	}
	return nil
}

func (m *MongoDB) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.client.Disconnect(ctx)
}

func (m *MongoDB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := m.db.Collection(usersCollection).InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return fitness.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (m *MongoDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *MongoDB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return m.findUser(ctx, bson.M{"telegramId": telegramID})
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := m.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateUser sets the mutable user fields, leaving the embedded progress log alone.
func (m *MongoDB) UpdateUser(ctx context.Context, user *models.User) error {
	set := bson.M{
		"name":      user.Name,
		"premium":   user.Premium,
		"profile":   user.Profile,
		"updatedAt": user.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if user.TelegramID != 0 {
		set["telegramId"] = user.TelegramID
	} else {
		update["$unset"] = bson.M{"telegramId": ""}
	}
	return m.updateUser(ctx, user.ID, update)
}

func (m *MongoDB) SetTargetCalories(ctx context.Context, userID string, calories int) error {
	return m.updateUser(ctx, userID, bson.M{"$set": bson.M{
		"profile.targetCalories": calories,
		"updatedAt":              time.Now().UTC(),
	}})
}

func (m *MongoDB) SetPremium(ctx context.Context, userID string, premium bool) error {
	return m.updateUser(ctx, userID, bson.M{"$set": bson.M{
		"premium":   premium,
		"updatedAt": time.Now().UTC(),
	}})
}

func (m *MongoDB) updateUser(ctx context.Context, userID string, update bson.M) error {
	res, err := m.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fitness.ErrUserNotFound
	}
	return nil
}

func (m *MongoDB) SaveWorkoutPlan(ctx context.Context, plan *models.WorkoutPlan) error {
	if _, err := m.db.Collection(workoutsCollection).InsertOne(ctx, plan); err != nil {
		return fmt.Errorf("failed to insert workout plan: %w", err)
	}
	return nil
}

func (m *MongoDB) ListWorkoutPlans(ctx context.Context, userID string) ([]models.WorkoutPlan, error) {
	plans := make([]models.WorkoutPlan, 0)
	if err := m.listPlans(ctx, workoutsCollection, userID, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (m *MongoDB) GetWorkoutPlan(ctx context.Context, userID, planID string) (*models.WorkoutPlan, error) {
	var plan models.WorkoutPlan
	found, err := m.getPlan(ctx, workoutsCollection, userID, planID, &plan)
	if err != nil || !found {
		return nil, err
	}
	return &plan, nil
}

func (m *MongoDB) DeleteWorkoutPlan(ctx context.Context, userID, planID string) (bool, error) {
	return m.deletePlan(ctx, workoutsCollection, userID, planID)
}

func (m *MongoDB) SaveMealPlan(ctx context.Context, plan *models.MealPlan) error {
	if _, err := m.db.Collection(mealsCollection).InsertOne(ctx, plan); err != nil {
		return fmt.Errorf("failed to insert meal plan: %w", err)
	}
	return nil
}

func (m *MongoDB) ListMealPlans(ctx context.Context, userID string) ([]models.MealPlan, error) {
	plans := make([]models.MealPlan, 0)
	if err := m.listPlans(ctx, mealsCollection, userID, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (m *MongoDB) GetMealPlan(ctx context.Context, userID, planID string) (*models.MealPlan, error) {
	var plan models.MealPlan
	found, err := m.getPlan(ctx, mealsCollection, userID, planID, &plan)
	if err != nil || !found {
		return nil, err
	}
	return &plan, nil
}

func (m *MongoDB) DeleteMealPlan(ctx context.Context, userID, planID string) (bool, error) {
	return m.deletePlan(ctx, mealsCollection, userID, planID)
}

func (m *MongoDB) listPlans(ctx context.Context, collection, userID string, dst interface{}) error {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.db.Collection(collection).Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", collection, err)
	}
	if err := cur.All(ctx, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}

func (m *MongoDB) getPlan(ctx context.Context, collection, userID, planID string, dst interface{}) (bool, error) {
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": planID, "user": userID}).Decode(dst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", collection, err)
	}
	return true, nil
}

func (m *MongoDB) deletePlan(ctx context.Context, collection, userID, planID string) (bool, error) {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": planID, "user": userID})
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return res.DeletedCount > 0, nil
}

func (m *MongoDB) AppendProgress(ctx context.Context, userID string, entry models.ProgressEntry) error {
	return m.updateUser(ctx, userID, bson.M{"$push": bson.M{"progress": entry}})
}

func (m *MongoDB) ListProgress(ctx context.Context, userID string) ([]models.ProgressEntry, error) {
	var doc struct {
		Progress []models.ProgressEntry `bson:"progress"`
	}
	opts := options.FindOne().SetProjection(bson.M{"progress": 1})
	err := m.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.ProgressEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if doc.Progress == nil {
		return []models.ProgressEntry{}, nil
	}
	return doc.Progress, nil
}

func (m *MongoDB) SavePayment(ctx context.Context, payment *models.Payment) error {
	if _, err := m.db.Collection(paymentsCollection).InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (m *MongoDB) CompletePayment(ctx context.Context, sessionID string) (*models.Payment, error) {
	var payment models.Payment
	err := m.db.Collection(paymentsCollection).FindOneAndUpdate(ctx,
		bson.M{"stripeSessionId": sessionID},
		bson.M{"$set": bson.M{"status": models.PaymentCompleted, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	return &payment, nil
}

var _ fitness.Repository = (*MongoDB)(nil)
