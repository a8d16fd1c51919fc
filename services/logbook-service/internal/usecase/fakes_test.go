package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/repository"
)

var nopLogger = zerolog.Nop()

var errDuplicateKey = mongo.WriteException{
	WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
}

type fakeLogbookRepo struct {
	mu       sync.Mutex
	readings []model.GlucoseReading
	insulin  []model.InsulinLog
	carbs    []model.CarbLog
	lastList repository.ListParams
}

func newFakeLogbookRepo() *fakeLogbookRepo {
	return &fakeLogbookRepo{}
}

func (f *fakeLogbookRepo) EnsureIndexes(context.Context) error { return nil }

func (f *fakeLogbookRepo) CreateReading(_ context.Context, r *model.GlucoseReading) (*model.GlucoseReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.ID = bson.NewObjectID()
	r.CreatedAt = time.Now()
	f.readings = append(f.readings, *r)

	out := *r
	return &out, nil
}

func (f *fakeLogbookRepo) ListReadings(_ context.Context, p repository.ListParams) ([]*model.GlucoseReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = p

	out := make([]*model.GlucoseReading, 0)
	for i := range f.readings {
		if inRange(p, f.readings[i].UserID, f.readings[i].Timestamp) {
			r := f.readings[i]
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	return out, nil
}

func (f *fakeLogbookRepo) LatestReading(_ context.Context, userID bson.ObjectID) (*model.GlucoseReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *model.GlucoseReading
	for i := range f.readings {
		r := f.readings[i]
		if r.UserID == userID && (latest == nil || r.Timestamp.After(latest.Timestamp)) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, mongo.ErrNoDocuments
	}

	return latest, nil
}

func (f *fakeLogbookRepo) CreateInsulinLog(_ context.Context, l *model.InsulinLog) (*model.InsulinLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l.ID = bson.NewObjectID()
	f.insulin = append(f.insulin, *l)

	out := *l
	return &out, nil
}

func (f *fakeLogbookRepo) ListInsulinLogs(_ context.Context, p repository.ListParams) ([]*model.InsulinLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = p

	out := make([]*model.InsulinLog, 0)
	for i := range f.insulin {
		if inRange(p, f.insulin[i].UserID, f.insulin[i].Timestamp) {
			l := f.insulin[i]
			out = append(out, &l)
		}
	}

	return out, nil
}

func (f *fakeLogbookRepo) DeleteInsulinLog(_ context.Context, userID, id bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, l := range f.insulin {
		if l.ID == id && l.UserID == userID {
			f.insulin = append(f.insulin[:i], f.insulin[i+1:]...)
			return nil
		}
	}

	return mongo.ErrNoDocuments
}

func (f *fakeLogbookRepo) CreateCarbLog(_ context.Context, l *model.CarbLog) (*model.CarbLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l.ID = bson.NewObjectID()
	f.carbs = append(f.carbs, *l)

	out := *l
	return &out, nil
}

func (f *fakeLogbookRepo) ListCarbLogs(_ context.Context, p repository.ListParams) ([]*model.CarbLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = p

	out := make([]*model.CarbLog, 0)
	for i := range f.carbs {
		if inRange(p, f.carbs[i].UserID, f.carbs[i].Timestamp) {
			l := f.carbs[i]
			out = append(out, &l)
		}
	}

	return out, nil
}

func (f *fakeLogbookRepo) DeleteCarbLog(_ context.Context, userID, id bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, l := range f.carbs {
		if l.ID == id && l.UserID == userID {
			f.carbs = append(f.carbs[:i], f.carbs[i+1:]...)
			return nil
		}
	}

	return mongo.ErrNoDocuments
}

func inRange(p repository.ListParams, userID bson.ObjectID, ts time.Time) bool {
	if userID != p.UserID {
		return false
	}
	if p.Start != nil && ts.Before(*p.Start) {
		return false
	}
	if p.End != nil && ts.After(*p.End) {
		return false
	}
	return true
}

type fakeSensorRepo struct {
	mu      sync.Mutex
	sensors map[bson.ObjectID]model.Sensor
	// raceSerial makes CreateSensor fail as if another request inserted it first.
	raceSerial string
}

func newFakeSensorRepo() *fakeSensorRepo {
	return &fakeSensorRepo{sensors: make(map[bson.ObjectID]model.Sensor)}
}

func (f *fakeSensorRepo) EnsureIndexes(context.Context) error { return nil }

func (f *fakeSensorRepo) CreateSensor(_ context.Context, s *model.Sensor) (*model.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s.SerialNumber == f.raceSerial {
		return nil, errDuplicateKey
	}
	for _, existing := range f.sensors {
		if existing.SerialNumber == s.SerialNumber {
			return nil, errDuplicateKey
		}
	}

	s.ID = bson.NewObjectID()
	f.sensors[s.ID] = *s

	out := *s
	return &out, nil
}

func (f *fakeSensorRepo) GetSensorBySerial(_ context.Context, serial string) (*model.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.sensors {
		if s.SerialNumber == serial {
			out := s
			return &out, nil
		}
	}

	return nil, mongo.ErrNoDocuments
}

func (f *fakeSensorRepo) GetSensor(_ context.Context, userID, id bson.ObjectID) (*model.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sensors[id]
	if !ok || s.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}

	return &s, nil
}

func (f *fakeSensorRepo) ListActiveSensors(_ context.Context, userID bson.ObjectID) ([]*model.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*model.Sensor, 0)
	for _, s := range f.sensors {
		if s.UserID == userID && s.IsActive {
			sensor := s
			out = append(out, &sensor)
		}
	}

	return out, nil
}

func (f *fakeSensorRepo) DeactivateSensor(_ context.Context, userID, id bson.ObjectID) (*model.Sensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sensors[id]
	if !ok || s.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}
	s.IsActive = false
	f.sensors[id] = s

	return &s, nil
}
