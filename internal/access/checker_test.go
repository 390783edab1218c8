package access

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

// fakeStore implements the subset of storage.Store the checker touches.
// Unimplemented methods panic through the embedded nil interface.
type fakeStore struct {
	storage.Store

	users       map[uuid.UUID]*models.User
	locks       map[uuid.UUID]*models.Lock
	credentials map[uuid.UUID]*models.Credential
	schedules   []*models.AccessSchedule

	scheduleUses   map[uuid.UUID]int
	credentialUses map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:          make(map[uuid.UUID]*models.User),
		locks:          make(map[uuid.UUID]*models.Lock),
		credentials:    make(map[uuid.UUID]*models.Credential),
		scheduleUses:   make(map[uuid.UUID]int),
		credentialUses: make(map[uuid.UUID]int),
	}
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetLock(ctx context.Context, id uuid.UUID) (*models.Lock, error) {
	if l, ok := f.locks[id]; ok {
		return l, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetCredential(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	if c, ok := f.credentials[id]; ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) ListSchedulesForUserLock(ctx context.Context, userID, lockID uuid.UUID) ([]*models.AccessSchedule, error) {
	var out []*models.AccessSchedule
	for _, s := range f.schedules {
		if s.UserID == userID && s.LockID == lockID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) IncrementScheduleUse(ctx context.Context, id uuid.UUID) error {
	f.scheduleUses[id]++
	return nil
}

func (f *fakeStore) IncrementCredentialUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	f.credentialUses[id]++
	return nil
}

func seedUserAndLock(f *fakeStore) (uuid.UUID, uuid.UUID) {
	userID := uuid.New()
	lockID := uuid.New()
	f.users[userID] = &models.User{ID: userID, Status: models.UserStatusActive}
	f.locks[lockID] = &models.Lock{BaseModel: models.BaseModel{ID: lockID}}
	return userID, lockID
}

func TestCheckerGrantsThroughMatchingSchedule(t *testing.T) {
	store := newFakeStore()
	userID, lockID := seedUserAndLock(store)

	scheduleID := uuid.New()
	store.schedules = append(store.schedules, &models.AccessSchedule{
		BaseModel:    models.BaseModel{ID: scheduleID},
		UserID:       userID,
		LockID:       lockID,
		ScheduleType: models.ScheduleTypeRecurring,
		DaysOfWeek:   models.StringArray{"monday"},
		TimeSlots:    models.TimeSlots{{StartTime: "09:00", EndTime: "17:00"}},
		Status:       models.ScheduleStatusActive,
	})

	checker := NewChecker(store)
	result, err := checker.Check(context.Background(), Request{
		UserID: userID,
		LockID: lockID,
		At:     time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), // Monday
	})
	require.NoError(t, err)
	assert.True(t, result.Granted)
	require.NotNil(t, result.MatchedScheduleID)
	assert.Equal(t, scheduleID, *result.MatchedScheduleID)
}

func TestCheckerOrSemanticsAcrossSchedules(t *testing.T) {
	store := newFakeStore()
	userID, lockID := seedUserAndLock(store)

	store.schedules = append(store.schedules,
		&models.AccessSchedule{
			BaseModel:    models.BaseModel{ID: uuid.New()},
			UserID:       userID,
			LockID:       lockID,
			ScheduleType: models.ScheduleTypeRecurring,
			DaysOfWeek:   models.StringArray{"sunday"},
			Status:       models.ScheduleStatusActive,
		},
		&models.AccessSchedule{
			BaseModel:    models.BaseModel{ID: uuid.New()},
			UserID:       userID,
			LockID:       lockID,
			ScheduleType: models.ScheduleTypeRecurring,
			DaysOfWeek:   models.StringArray{"monday"},
			Status:       models.ScheduleStatusActive,
		},
	)

	checker := NewChecker(store)
	result, err := checker.Check(context.Background(), Request{
		UserID: userID,
		LockID: lockID,
		At:     time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), // Monday
	})
	require.NoError(t, err)
	assert.True(t, result.Granted)
}

func TestCheckerDeniesWithoutSchedules(t *testing.T) {
	store := newFakeStore()
	userID, lockID := seedUserAndLock(store)

	checker := NewChecker(store)
	result, err := checker.Check(context.Background(), Request{UserID: userID, LockID: lockID})
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "no access schedule configured", result.Reason)
}

func TestCheckerDeniesUnknownUser(t *testing.T) {
	store := newFakeStore()
	_, lockID := seedUserAndLock(store)

	checker := NewChecker(store)
	result, err := checker.Check(context.Background(), Request{UserID: uuid.New(), LockID: lockID})
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "unknown user", result.Reason)
}

func TestCheckerDeniesSuspendedUser(t *testing.T) {
	store := newFakeStore()
	userID, lockID := seedUserAndLock(store)
	store.users[userID].Status = models.UserStatusSuspended

	checker := NewChecker(store)
	result, err := checker.Check(context.Background(), Request{UserID: userID, LockID: lockID})
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "user is suspended", result.Reason)
}

func TestCheckerDeniesUnknownLock(t *testing.T) {
	store := newFakeStore()
	userID, _ := seedUserAndLock(store)

	checker := NewChecker(store)
	result, err := checker.Check(context.Background(), Request{UserID: userID, LockID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "unknown lock", result.Reason)
}

func TestCheckerCredentialGates(t *testing.T) {
	store := newFakeStore()
	userID, lockID := seedUserAndLock(store)

	store.schedules = append(store.schedules, &models.AccessSchedule{
		BaseModel:    models.BaseModel{ID: uuid.New()},
		UserID:       userID,
		LockID:       lockID,
		ScheduleType: models.ScheduleTypePermanent,
		Status:       models.ScheduleStatusActive,
	})

	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)

	tests := []struct {
		name       string
		credential *models.Credential
		wantGrant  bool
		wantReason string
	}{
		{
			name: "active credential passes",
			credential: &models.Credential{
				UserID:    userID,
				LockID:    lockID,
				Status:    models.CredentialStatusActive,
				ValidFrom: now.Add(-24 * time.Hour),
			},
			wantGrant: true,
		},
		{
			name: "expired credential denies",
			credential: &models.Credential{
				UserID:     userID,
				LockID:     lockID,
				Status:     models.CredentialStatusActive,
				ValidFrom:  now.Add(-24 * time.Hour),
				ValidUntil: &expired,
			},
			wantGrant:  false,
			wantReason: "credential is expired",
		},
		{
			name: "revoked credential denies",
			credential: &models.Credential{
				UserID:    userID,
				LockID:    lockID,
				Status:    models.CredentialStatusRevoked,
				ValidFrom: now.Add(-24 * time.Hour),
			},
			wantGrant:  false,
			wantReason: "credential is revoked",
		},
		{
			name: "not yet valid credential denies",
			credential: &models.Credential{
				UserID:    userID,
				LockID:    lockID,
				Status:    models.CredentialStatusActive,
				ValidFrom: now.Add(time.Hour),
			},
			wantGrant:  false,
			wantReason: "credential is not yet valid",
		},
		{
			name: "credential bound to another user denies",
			credential: &models.Credential{
				UserID:    uuid.New(),
				LockID:    lockID,
				Status:    models.CredentialStatusActive,
				ValidFrom: now.Add(-24 * time.Hour),
			},
			wantGrant:  false,
			wantReason: "credential is not bound to this user and lock",
		},
	}

	checker := NewChecker(store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credentialID := uuid.New()
			tt.credential.ID = credentialID
			store.credentials[credentialID] = tt.credential

			result, err := checker.Check(context.Background(), Request{
				UserID:       userID,
				LockID:       lockID,
				CredentialID: &credentialID,
				At:           now,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantGrant, result.Granted)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, result.Reason)
			}
		})
	}
}

func TestCheckerSkipsSchedulesPinnedToOtherCredential(t *testing.T) {
	store := newFakeStore()
	userID, lockID := seedUserAndLock(store)

	otherCredentialID := uuid.New()
	store.schedules = append(store.schedules, &models.AccessSchedule{
		BaseModel:    models.BaseModel{ID: uuid.New()},
		UserID:       userID,
		LockID:       lockID,
		CredentialID: &otherCredentialID,
		ScheduleType: models.ScheduleTypePermanent,
		Status:       models.ScheduleStatusActive,
	})

	checker := NewChecker(store)

	// Without a credential the pinned schedule does not apply
	result, err := checker.Check(context.Background(), Request{UserID: userID, LockID: lockID})
	require.NoError(t, err)
	assert.False(t, result.Granted)

	// With a different credential it still does not apply
	credentialID := uuid.New()
	store.credentials[credentialID] = &models.Credential{
		BaseModel: models.BaseModel{ID: credentialID},
		UserID:    userID,
		LockID:    lockID,
		Status:    models.CredentialStatusActive,
		ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	result, err = checker.Check(context.Background(), Request{
		UserID:       userID,
		LockID:       lockID,
		CredentialID: &credentialID,
	})
	require.NoError(t, err)
	assert.False(t, result.Granted)

	// The pinned credential itself is granted
	store.credentials[otherCredentialID] = &models.Credential{
		BaseModel: models.BaseModel{ID: otherCredentialID},
		UserID:    userID,
		LockID:    lockID,
		Status:    models.CredentialStatusActive,
		ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	result, err = checker.Check(context.Background(), Request{
		UserID:       userID,
		LockID:       lockID,
		CredentialID: &otherCredentialID,
	})
	require.NoError(t, err)
	assert.True(t, result.Granted)
}

func TestCheckerRecordUse(t *testing.T) {
	store := newFakeStore()
	checker := NewChecker(store)

	scheduleID := uuid.New()
	credentialID := uuid.New()

	result := &Result{
		Decision:          granted("within schedule window"),
		MatchedScheduleID: &scheduleID,
	}

	err := checker.RecordUse(context.Background(), result, &credentialID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, store.scheduleUses[scheduleID])
	assert.Equal(t, 1, store.credentialUses[credentialID])

	// No schedule match and no credential records nothing
	err = checker.RecordUse(context.Background(), &Result{Decision: denied("x")}, nil, time.Now())
	require.NoError(t, err)
	assert.Len(t, store.scheduleUses, 1)
	assert.Len(t, store.credentialUses, 1)
}
