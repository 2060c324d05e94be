package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"querymate-be/internal/entity"
	"querymate-be/internal/repository/contract"
	"querymate-be/internal/repository/specification"
	"querymate-be/internal/repository/unitofwork"
	"querymate-be/pkg/contextbuilder"
	"querymate-be/pkg/events"
)

// fakeDB is an in-memory stand-in for the GORM repositories.
type fakeDB struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*entity.User
	documents map[uuid.UUID]*entity.ContextDocument
	keys      map[uuid.UUID]*entity.ApiKey
	widgets   map[uuid.UUID]*entity.WidgetSettings
	upserts   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:     map[uuid.UUID]*entity.User{},
		documents: map[uuid.UUID]*entity.ContextDocument{},
		keys:      map[uuid.UUID]*entity.ApiKey{},
		widgets:   map[uuid.UUID]*entity.WidgetSettings{},
	}
}

func (db *fakeDB) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return &fakeUow{db: db} }

func (db *fakeDB) addUser(email string) *entity.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := &entity.User{Id: uuid.New(), Email: email, CreatedAt: time.Now()}
	db.users[u.Id] = u
	return u
}

type fakeUow struct{ db *fakeDB }

func (u *fakeUow) Transaction(ctx context.Context, fn func(tx unitofwork.UnitOfWork) error) error {
	return fn(u)
}

func (u *fakeUow) UserRepository() contract.UserRepository { return fakeUserRepo{u.db} }
func (u *fakeUow) ContextDocumentRepository() contract.ContextDocumentRepository {
	return fakeDocRepo{u.db}
}
func (u *fakeUow) ApiKeyRepository() contract.ApiKeyRepository { return fakeKeyRepo{u.db} }
func (u *fakeUow) WidgetSettingsRepository() contract.WidgetSettingsRepository {
	return fakeWidgetRepo{u.db}
}

type fakeUserRepo struct{ db *fakeDB }

func (r fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == user.Email {
			return contract.ErrDuplicate
		}
	}
	cp := *user
	r.db.users[user.Id] = &cp
	return nil
}

func (r fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		match := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				match = match && u.Id == s.ID
			case specification.ByEmail:
				match = match && u.Email == specification.NormalizeEmail(s.Email)
			}
		}
		if match {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r fakeUserRepo) RecordLogin(ctx context.Context, userId uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u, ok := r.db.users[userId]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func ownerOf(specs []specification.Specification) (uuid.UUID, bool) {
	for _, spec := range specs {
		if s, ok := spec.(specification.UserOwnedBy); ok {
			return s.UserID, true
		}
	}
	return uuid.Nil, false
}

type fakeDocRepo struct{ db *fakeDB }

func (r fakeDocRepo) Upsert(ctx context.Context, doc *entity.ContextDocument) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *doc
	r.db.documents[doc.UserId] = &cp
	r.db.upserts++
	return nil
}

func (r fakeDocRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ContextDocument, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	owner, _ := ownerOf(specs)
	if d, ok := r.db.documents[owner]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

type fakeKeyRepo struct{ db *fakeDB }

func (r fakeKeyRepo) Upsert(ctx context.Context, key *entity.ApiKey) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *key
	r.db.keys[key.UserId] = &cp
	return nil
}

func (r fakeKeyRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ApiKey, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if owner, ok := ownerOf(specs); ok {
		if k, ok := r.db.keys[owner]; ok {
			cp := *k
			return &cp, nil
		}
		return nil, nil
	}
	for _, spec := range specs {
		if s, ok := spec.(specification.ByApiKey); ok {
			for _, k := range r.db.keys {
				if k.Key == s.Key {
					cp := *k
					return &cp, nil
				}
			}
		}
	}
	return nil, nil
}

type fakeWidgetRepo struct{ db *fakeDB }

func (r fakeWidgetRepo) Upsert(ctx context.Context, settings *entity.WidgetSettings) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *settings
	cp.Settings = map[string]string{}
	for k, v := range settings.Settings {
		cp.Settings[k] = v
	}
	r.db.widgets[settings.UserId] = &cp
	return nil
}

func (r fakeWidgetRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WidgetSettings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	owner, _ := ownerOf(specs)
	if w, ok := r.db.widgets[owner]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// scriptedExtractor returns queued results in order.
type scriptedExtractor struct {
	mu      sync.Mutex
	results []contextbuilder.Result
	calls   int
	priors  []contextbuilder.Fields
	delay   time.Duration
}

func (e *scriptedExtractor) Extract(ctx context.Context, prior contextbuilder.Fields, transcript []contextbuilder.Turn, utterance string) contextbuilder.Result {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.priors = append(e.priors, prior.Clone())
	idx := e.calls
	e.calls++
	if idx < len(e.results) {
		return e.results[idx]
	}
	return contextbuilder.Result{Reply: "Tell me more."}
}
