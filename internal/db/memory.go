package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"fitcoach/internal/fitness"
	"fitcoach/internal/models"
)

// MemoryDB keeps everything in process memory. It backs the "memory" driver
// for local runs and the handler tests; data is lost on restart.
type MemoryDB struct {
	mu       sync.RWMutex
	users    map[string]models.User
	workouts map[string]models.WorkoutPlan
	meals    map[string]models.MealPlan
	progress map[string][]models.ProgressEntry
	payments map[string]models.Payment
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:    make(map[string]models.User),
		workouts: make(map[string]models.WorkoutPlan),
		meals:    make(map[string]models.MealPlan),
		progress: make(map[string][]models.ProgressEntry),
		payments: make(map[string]models.Payment),
	}
}

func (m *MemoryDB) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fitness.ErrEmailTaken
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryDB) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *MemoryDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Email == email }), nil
}

func (m *MemoryDB) GetUserByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.TelegramID == telegramID }), nil
}

func (m *MemoryDB) findUser(match func(models.User) bool) *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (m *MemoryDB) UpdateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return fitness.ErrUserNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryDB) SetTargetCalories(_ context.Context, userID string, calories int) error {
	return m.mutateUser(userID, func(u *models.User) { u.Profile.TargetCalories = calories })
}

func (m *MemoryDB) SetPremium(_ context.Context, userID string, premium bool) error {
	return m.mutateUser(userID, func(u *models.User) { u.Premium = premium })
}

func (m *MemoryDB) mutateUser(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fitness.ErrUserNotFound
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m *MemoryDB) SaveWorkoutPlan(_ context.Context, plan *models.WorkoutPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workouts[plan.ID] = *plan
	return nil
}

func (m *MemoryDB) ListWorkoutPlans(_ context.Context, userID string) ([]models.WorkoutPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.WorkoutPlan, 0)
	for _, p := range m.workouts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *MemoryDB) GetWorkoutPlan(_ context.Context, userID, planID string) (*models.WorkoutPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.workouts[planID]; ok && p.UserID == userID {
		return &p, nil
	}
	return nil, nil
}

func (m *MemoryDB) DeleteWorkoutPlan(_ context.Context, userID, planID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.workouts[planID]; ok && p.UserID == userID {
		delete(m.workouts, planID)
		return true, nil
	}
	return false, nil
}

func (m *MemoryDB) SaveMealPlan(_ context.Context, plan *models.MealPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meals[plan.ID] = *plan
	return nil
}

func (m *MemoryDB) ListMealPlans(_ context.Context, userID string) ([]models.MealPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.MealPlan, 0)
	for _, p := range m.meals {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

// newerFirst orders by creation time descending, then by ID so plans created
// in the same instant keep a fixed order.
func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA > idB
}

func (m *MemoryDB) GetMealPlan(_ context.Context, userID, planID string) (*models.MealPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.meals[planID]; ok && p.UserID == userID {
		return &p, nil
	}
	return nil, nil
}

func (m *MemoryDB) DeleteMealPlan(_ context.Context, userID, planID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.meals[planID]; ok && p.UserID == userID {
		delete(m.meals, planID)
		return true, nil
	}
	return false, nil
}

func (m *MemoryDB) AppendProgress(_ context.Context, userID string, entry models.ProgressEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[userID] = append(m.progress[userID], entry)
	return nil
}

func (m *MemoryDB) ListProgress(_ context.Context, userID string) ([]models.ProgressEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.ProgressEntry{}, m.progress[userID]...), nil
}

func (m *MemoryDB) SavePayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.StripeSessionID] = *p
	return nil
}

func (m *MemoryDB) CompletePayment(_ context.Context, sessionID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[sessionID]
	if !ok {
		return nil, nil
	}
	p.Status = models.PaymentCompleted
	m.payments[sessionID] = p
	return &p, nil
}

func (m *MemoryDB) Close() {}

var _ fitness.Repository = (*MemoryDB)(nil)
