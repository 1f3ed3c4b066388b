// Package memory keeps guardians, participants and registrations in process
// memory. Transactions take a store-wide lock and restore a snapshot when the
// callback fails.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"retreat/internal/registration/models"
	id "retreat/pkg/domain"
	"retreat/pkg/platform/sentinel"
)

type participantRow struct {
	participant models.Participant
	seq         int
}

type state struct {
	guardians     map[id.GuardianID]models.Guardian
	emails        map[string]id.GuardianID
	participants  map[id.ParticipantID]participantRow
	registrations map[id.RegistrationID]models.Registration
	intents       map[string]id.RegistrationID
	seq           int
}

func (st *state) clone() state {
	return state{
		guardians:     maps.Clone(st.guardians),
		emails:        maps.Clone(st.emails),
		participants:  maps.Clone(st.participants),
		registrations: maps.Clone(st.registrations),
		intents:       maps.Clone(st.intents),
		seq:           st.seq,
	}
}

// Store owns the three record sets. Use Guardians, Participants and
// Registrations for the per-set views.
type Store struct {
	// txMu serializes transactions against each other and against reads and
	// writes made outside a transaction.
	txMu sync.Mutex
	mu   sync.RWMutex
	st   state
}

func New() *Store {
	return &Store{st: state{
		guardians:     make(map[id.GuardianID]models.Guardian),
		emails:        make(map[string]id.GuardianID),
		participants:  make(map[id.ParticipantID]participantRow),
		registrations: make(map[id.RegistrationID]models.Registration),
		intents:       make(map[string]id.RegistrationID),
	}}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTx runs fn with exclusive write access. Writes made by fn are undone
// if it returns an error. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// write takes the write locks, skipping txMu when ctx already holds it.
func (s *Store) write(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// read takes the read lock. Outside a transaction it also waits on txMu so
// rows from an uncommitted transaction are never visible.
func (s *Store) read(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.RLock()
		return s.mu.RUnlock
	}
	s.txMu.Lock()
	s.mu.RLock()
	return func() {
		s.mu.RUnlock()
		s.txMu.Unlock()
	}
}

func (s *Store) Guardians() *GuardianStore         { return &GuardianStore{s: s} }
func (s *Store) Participants() *ParticipantStore   { return &ParticipantStore{s: s} }
func (s *Store) Registrations() *RegistrationStore { return &RegistrationStore{s: s} }

type GuardianStore struct{ s *Store }

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (g *GuardianStore) Create(ctx context.Context, guardian *models.Guardian) error {
	defer g.s.write(ctx)()
	st := &g.s.st
	if _, ok := st.guardians[guardian.ID]; ok {
		return sentinel.ErrConflict
	}
	key := emailKey(guardian.Email)
	if _, ok := st.emails[key]; ok {
		return sentinel.ErrConflict
	}
	st.guardians[guardian.ID] = *guardian
	st.emails[key] = guardian.ID
	return nil
}

func (g *GuardianStore) Update(ctx context.Context, guardian *models.Guardian) error {
	defer g.s.write(ctx)()
	st := &g.s.st
	current, ok := st.guardians[guardian.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey, newKey := emailKey(current.Email), emailKey(guardian.Email)
	if oldKey != newKey {
		if _, taken := st.emails[newKey]; taken {
			return sentinel.ErrConflict
		}
		delete(st.emails, oldKey)
		st.emails[newKey] = guardian.ID
	}
	st.guardians[guardian.ID] = *guardian
	return nil
}

func (g *GuardianStore) FindByID(ctx context.Context, guardianID id.GuardianID) (*models.Guardian, error) {
	defer g.s.read(ctx)()
	guardian, ok := g.s.st.guardians[guardianID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &guardian, nil
}

func (g *GuardianStore) FindByEmail(ctx context.Context, email string) (*models.Guardian, error) {
	defer g.s.read(ctx)()
	guardianID, ok := g.s.st.emails[emailKey(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	guardian := g.s.st.guardians[guardianID]
	return &guardian, nil
}

func (g *GuardianStore) Delete(ctx context.Context, guardianID id.GuardianID) error {
	defer g.s.write(ctx)()
	st := &g.s.st
	guardian, ok := st.guardians[guardianID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(st.emails, emailKey(guardian.Email))
	delete(st.guardians, guardianID)
	return nil
}

// Count returns the number of stored guardians.
func (g *GuardianStore) Count() int {
	defer g.s.read(context.Background())()
	return len(g.s.st.guardians)
}

type ParticipantStore struct{ s *Store }

func (p *ParticipantStore) CreateMany(ctx context.Context, participants []*models.Participant) error {
	defer p.s.write(ctx)()
	st := &p.s.st
	for _, participant := range participants {
		if _, ok := st.participants[participant.ID]; ok {
			return sentinel.ErrConflict
		}
	}
	for _, participant := range participants {
		st.seq++
		st.participants[participant.ID] = participantRow{participant: *participant, seq: st.seq}
	}
	return nil
}

func (p *ParticipantStore) ListByRegistration(ctx context.Context, registrationID id.RegistrationID) ([]*models.Participant, error) {
	defer p.s.read(ctx)()
	var rows []participantRow
	for _, row := range p.s.st.participants {
		if row.participant.RegistrationID == registrationID {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b participantRow) int { return a.seq - b.seq })
	out := make([]*models.Participant, 0, len(rows))
	for _, row := range rows {
		participant := row.participant
		out = append(out, &participant)
	}
	return out, nil
}

func (p *ParticipantStore) DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) (int, error) {
	defer p.s.write(ctx)()
	n := 0
	for pid, row := range p.s.st.participants {
		if row.participant.RegistrationID == registrationID {
			delete(p.s.st.participants, pid)
			n++
		}
	}
	return n, nil
}

type RegistrationStore struct{ s *Store }

func cloneRegistration(r models.Registration) *models.Registration {
	r.ParticipantIDs = slices.Clone(r.ParticipantIDs)
	r.ParticipantNames = slices.Clone(r.ParticipantNames)
	return &r
}

func (r *RegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	defer r.s.write(ctx)()
	st := &r.s.st
	if _, ok := st.registrations[reg.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := st.intents[reg.PaymentIntentID]; ok {
		return sentinel.ErrConflict
	}
	st.registrations[reg.ID] = *cloneRegistration(*reg)
	st.intents[reg.PaymentIntentID] = reg.ID
	return nil
}

func (r *RegistrationStore) Update(ctx context.Context, reg *models.Registration) error {
	defer r.s.write(ctx)()
	st := &r.s.st
	current, ok := st.registrations[reg.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.PaymentIntentID != reg.PaymentIntentID {
		if _, taken := st.intents[reg.PaymentIntentID]; taken {
			return sentinel.ErrConflict
		}
		delete(st.intents, current.PaymentIntentID)
		st.intents[reg.PaymentIntentID] = reg.ID
	}
	st.registrations[reg.ID] = *cloneRegistration(*reg)
	return nil
}

func (r *RegistrationStore) SetWaiver(ctx context.Context, registrationID id.RegistrationID, waiverID string, updatedAt time.Time) error {
	defer r.s.write(ctx)()
	reg, ok := r.s.st.registrations[registrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	reg.WaiverID = waiverID
	reg.UpdatedAt = updatedAt
	r.s.st.registrations[registrationID] = reg
	return nil
}

func (r *RegistrationStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	defer r.s.read(ctx)()
	reg, ok := r.s.st.registrations[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (r *RegistrationStore) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Registration, error) {
	defer r.s.read(ctx)()
	registrationID, ok := r.s.st.intents[paymentIntentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(r.s.st.registrations[registrationID]), nil
}

func (r *RegistrationStore) List(ctx context.Context, filter models.Filter) ([]*models.Registration, error) {
	defer r.s.read(ctx)()
	out := make([]*models.Registration, 0)
	for _, reg := range r.s.st.registrations {
		if filter.Matches(&reg) {
			out = append(out, cloneRegistration(reg))
		}
	}
	slices.SortFunc(out, func(a, b *models.Registration) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (r *RegistrationStore) CountByGuardian(ctx context.Context, guardianID id.GuardianID) (int, error) {
	defer r.s.read(ctx)()
	n := 0
	for _, reg := range r.s.st.registrations {
		if reg.GuardianID == guardianID {
			n++
		}
	}
	return n, nil
}

func (r *RegistrationStore) CountParticipants(ctx context.Context, eventSlug string) (int, error) {
	defer r.s.read(ctx)()
	n := 0
	for _, reg := range r.s.st.registrations {
		if reg.EventSlug == eventSlug && reg.Status == models.StatusConfirmed {
			n += len(reg.ParticipantIDs)
		}
	}
	return n, nil
}

func (r *RegistrationStore) Delete(ctx context.Context, registrationID id.RegistrationID) error {
	defer r.s.write(ctx)()
	st := &r.s.st
	reg, ok := st.registrations[registrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(st.intents, reg.PaymentIntentID)
	delete(st.registrations, registrationID)
	return nil
}
