package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/glucosense-api/shared/provider"
)

var errDuplicateKey = mongo.WriteException{
	WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[bson.ObjectID]model.User
	creates int
	updates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[bson.ObjectID]model.User)}
}

func (f *fakeUserRepo) conflicts(id bson.ObjectID, email, uid string) bool {
	for otherID, u := range f.users {
		if otherID == id {
			continue
		}
		if u.Email == email || (uid != "" && u.FirebaseUID == uid) {
			return true
		}
	}
	return false
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflicts(bson.NilObjectID, user.Email, user.FirebaseUID) {
		return nil, errDuplicateKey
	}

	user.ID = bson.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = *user
	f.creates++

	out := *user
	return &out, nil
}

func (f *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &u, nil
}

func (f *fakeUserRepo) find(match func(model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u model.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) GetUserByFirebaseUID(_ context.Context, uid string) (*model.User, error) {
	return f.find(func(u model.User) bool { return uid != "" && u.FirebaseUID == uid })
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, id string, p repository.UpdateUserParams) (*model.User, error) {
	if p.IsEmpty() {
		return nil, repository.ErrNoFieldsToUpdate
	}

	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.AuthProvider != nil {
		u.AuthProvider = *p.AuthProvider
	}
	if p.FirebaseUID != nil {
		u.FirebaseUID = *p.FirebaseUID
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
	if p.ProfilePhoto != nil {
		u.ProfilePhoto = *p.ProfilePhoto
	}
	if p.Language != nil {
		u.Language = *p.Language
	}

	if f.conflicts(objectID, u.Email, u.FirebaseUID) {
		return nil, errDuplicateKey
	}

	u.UpdatedAt = time.Now()
	f.users[objectID] = u
	f.updates++

	out := u
	return &out, nil
}

func (f *fakeUserRepo) EnsureIndexes(context.Context) error { return nil }

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

func (f *fakeUserRepo) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes []*model.VerificationCode
	seq   int
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{}
}

func (f *fakeCodeRepo) CreateCode(_ context.Context, code *model.VerificationCode) (*model.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	code.ID = bson.NewObjectID()
	code.CreatedAt = time.Unix(int64(f.seq), 0)
	stored := *code
	f.codes = append(f.codes, &stored)

	out := stored
	return &out, nil
}

// newestFirst returns codes ordered by creation, newest first. Caller holds mu.
func (f *fakeCodeRepo) newestFirst() []*model.VerificationCode {
	out := append([]*model.VerificationCode(nil), f.codes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeCodeRepo) FindLatestActive(_ context.Context, email, code string, now time.Time) (*model.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.newestFirst() {
		if c.Email == email && c.Code == code && !c.Used && c.ExpiresAt.After(now) {
			out := *c
			return &out, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeCodeRepo) InvalidateUnused(_ context.Context, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, c := range f.codes {
		if c.Email == email && !c.Used {
			c.Used = true
			n++
		}
	}
	return n, nil
}

func (f *fakeCodeRepo) MarkUsed(_ context.Context, id string, now time.Time) (bool, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.codes {
		if c.ID == objectID && !c.Used && c.Attempts < model.MaxCodeAttempts && c.ExpiresAt.After(now) {
			c.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCodeRepo) IncrementAttempts(_ context.Context, email string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.newestFirst() {
		if c.Email == email && !c.Used && c.ExpiresAt.After(now) {
			c.Attempts++
			return nil
		}
	}
	return nil
}

func (f *fakeCodeRepo) EnsureIndexes(context.Context) error { return nil }

func (f *fakeCodeRepo) latest(email string) *model.VerificationCode {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.newestFirst() {
		if c.Email == email {
			out := *c
			return &out
		}
	}
	return nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	codes       map[string]string
	welcomed    []string
	failCode    bool
	failWelcome bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: make(map[string]string)}
}

func (f *fakeNotifier) SendVerificationCode(email, code, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCode {
		return errors.New("smtp: connection refused")
	}
	f.codes[email] = code
	return nil
}

func (f *fakeNotifier) SendWelcome(email, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWelcome {
		return errors.New("smtp: connection refused")
	}
	f.welcomed = append(f.welcomed, email)
	return nil
}

func (f *fakeNotifier) codeFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[email]
}

type fakeVerifier map[string]*provider.IdentityClaim

const unavailableToken = "issuer-down"

func (f fakeVerifier) VerifyToken(_ context.Context, token string) (*provider.IdentityClaim, error) {
	if token == unavailableToken {
		return nil, provider.ErrVerifierUnavailable
	}
	claim, ok := f[token]
	if !ok {
		return nil, provider.ErrInvalidToken
	}
	out := *claim
	return &out, nil
}
